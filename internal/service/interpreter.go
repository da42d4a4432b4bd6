package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/pkg/hgvs"
)

// InterpreterOptions configures a pipeline run.
type InterpreterOptions struct {
	Level          domain.AnnotationLevel
	Policy         domain.NoRulePolicy
	FlagCoreGenes  bool
	PrintNonAMR    bool
	FullDisrupt    bool
	Workers        int
	CacheSize      int
	RulesetVersion string
}

// SampleResult holds one sample's annotated records and summary.
type SampleResult struct {
	Sample   string                   `json:"sample"`
	Organism string                   `json:"organism"`
	Records  []domain.AnnotatedRecord `json:"records"`
	Summary  []domain.SummaryEntry    `json:"summary"`
}

// RunResult is the output of one interpretation run. Samples appear in the
// order they were first seen in the input.
type RunResult struct {
	Columns []string         `json:"columns"`
	Samples []SampleResult   `json:"samples"`
	Report  domain.RunReport `json:"report"`
}

// Records flattens the per-sample annotated records in sample order.
func (r *RunResult) Records() []domain.AnnotatedRecord {
	var out []domain.AnnotatedRecord
	for _, s := range r.Samples {
		out = append(out, s.Records...)
	}
	return out
}

// Summaries flattens the per-sample summaries in sample order.
func (r *RunResult) Summaries() []domain.SummaryEntry {
	var out []domain.SummaryEntry
	for _, s := range r.Samples {
		out = append(out, s.Summary...)
	}
	return out
}

// Interpreter runs marker calls through normalization, rule resolution,
// annotation and summarization.
type Interpreter struct {
	logger     *logrus.Logger
	rules      *domain.RuleTable
	resources  domain.ResourceProvider
	organisms  domain.OrganismAssignment
	normalizer domain.Normalizer
	annotator  domain.Annotator
	summarizer *Summarizer
	opts       InterpreterOptions
}

// NewInterpreter wires the pipeline stages for a rule table and drug
// catalog.
func NewInterpreter(
	logger *logrus.Logger,
	rules *domain.RuleTable,
	catalog *domain.DrugCatalog,
	resources domain.ResourceProvider,
	organisms domain.OrganismAssignment,
	opts InterpreterOptions,
) *Interpreter {
	opts = opts.withDefaults()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Interpreter{
		logger:     logger,
		rules:      rules,
		resources:  resources,
		organisms:  organisms,
		normalizer: hgvs.NewNormalizer(opts.FullDisrupt),
		annotator:  NewAnnotator(opts.Level, opts.RulesetVersion),
		summarizer: NewSummarizer(logger, rules, catalog, SummarizerOptions{
			Policy:        opts.Policy,
			FlagCoreGenes: opts.FlagCoreGenes,
		}),
		opts: opts,
	}
}

// Derive returns an interpreter for different organisms and options that
// shares i's rule table, resources and compiled combination rules.
func (i *Interpreter) Derive(organisms domain.OrganismAssignment, opts InterpreterOptions) *Interpreter {
	opts = opts.withDefaults()
	return &Interpreter{
		logger:     i.logger,
		rules:      i.rules,
		resources:  i.resources,
		organisms:  organisms,
		normalizer: hgvs.NewNormalizer(opts.FullDisrupt),
		annotator:  NewAnnotator(opts.Level, opts.RulesetVersion),
		summarizer: i.summarizer.WithOptions(SummarizerOptions{
			Policy:        opts.Policy,
			FlagCoreGenes: opts.FlagCoreGenes,
		}),
		opts: opts,
	}
}

func (o InterpreterOptions) withDefaults() InterpreterOptions {
	if o.Level == "" {
		o.Level = domain.AnnotationMinimal
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

// Columns returns the annotation columns written after the marker columns.
func (i *Interpreter) Columns() []string {
	return i.annotator.Columns()
}

type sampleOutcome struct {
	result    SampleResult
	matched   int
	unmatched int
	skipped   []domain.SkippedRecord
	failure   *domain.SampleFailure
}

// Run interprets calls. Malformed records and samples without usable rules
// are reported in the run report; only resource failures abort the run.
func (i *Interpreter) Run(ctx context.Context, calls []domain.MarkerCall) (*RunResult, error) {
	report := domain.RunReport{
		RunID:          uuid.New().String(),
		StartedAt:      time.Now().UTC(),
		RulesetVersion: i.opts.RulesetVersion,
	}

	hierarchy, err := i.resources.Hierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load gene hierarchy: %w", err)
	}
	dbVersion, err := i.resources.DatabaseVersion(ctx)
	if err != nil {
		i.logger.WithError(err).Warn("AMRFinderPlus database version unavailable")
	}
	report.DatabaseVersion = dbVersion

	resolver, err := NewResolver(i.logger, i.opts.CacheSize, i.rules, hierarchy)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}

	order, bySample := groupBySample(calls)
	outcomes := make([]sampleOutcome, len(order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Workers)
	for idx, sample := range order {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[idx] = i.runSample(sample, bySample[sample], resolver)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &RunResult{Columns: i.annotator.Columns()}
	for _, o := range outcomes {
		report.Matched += o.matched
		report.Unmatched += o.unmatched
		report.Skipped = append(report.Skipped, o.skipped...)
		if o.failure != nil {
			report.FailedSamples = append(report.FailedSamples, *o.failure)
			continue
		}
		result.Samples = append(result.Samples, o.result)
	}
	report.Samples = len(result.Samples)
	report.FinishedAt = time.Now().UTC()
	result.Report = report

	stats := resolver.Stats()
	i.logger.WithFields(logrus.Fields{
		"run_id":         report.RunID,
		"samples":        report.Samples,
		"failed_samples": len(report.FailedSamples),
		"skipped":        len(report.Skipped),
		"cache_hits":     stats.Hits,
		"cache_misses":   stats.Misses,
	}).Info(report.String())

	return result, nil
}

func (i *Interpreter) runSample(sample string, calls []domain.MarkerCall, resolver *Resolver) sampleOutcome {
	var out sampleOutcome
	logger := i.logger.WithField("sample", sample)

	organism, err := i.organisms.For(sample)
	if err == nil {
		if _, ok := i.rules.ForOrganism(organism); !ok {
			err = fmt.Errorf("%w: %s", domain.ErrUnknownOrganism, organism)
		}
	}
	if err != nil {
		logger.WithError(err).Error("Sample cannot be interpreted")
		out.failure = &domain.SampleFailure{Sample: sample, Organism: organism, Reason: err.Error()}
		return out
	}

	var records []domain.AnnotatedRecord
	for _, call := range calls {
		if !call.IsAMR() {
			if i.opts.PrintNonAMR {
				records = append(records, i.annotator.Passthrough(call))
			}
			continue
		}
		call.Organism = organism

		normalized, err := i.normalizer.Normalize(call)
		if err != nil {
			recErr := &domain.RecordError{Line: call.Line, Sample: sample, Symbol: call.ElementSymbol, Err: err}
			logger.WithError(recErr).Warn("Skipping malformed record")
			out.skipped = append(out.skipped, domain.SkippedRecord{
				Line:   call.Line,
				Sample: sample,
				Symbol: call.ElementSymbol,
				Reason: err.Error(),
			})
			continue
		}

		matched := resolver.Resolve(normalized)
		if len(matched) > 0 {
			out.matched++
		} else {
			out.unmatched++
		}
		records = append(records, i.annotator.Annotate(normalized, matched)...)
	}

	out.result = SampleResult{
		Sample:   sample,
		Organism: organism,
		Records:  records,
		Summary:  i.summarizer.Summarize(sample, organism, records),
	}
	return out
}

// groupBySample partitions calls by sample, keeping input order within each
// sample and returning samples in order of first appearance.
func groupBySample(calls []domain.MarkerCall) ([]string, map[string][]domain.MarkerCall) {
	var order []string
	bySample := make(map[string][]domain.MarkerCall)
	for _, c := range calls {
		sample := c.Sample
		if sample == "" {
			sample = domain.DefaultSampleName
			c.Sample = sample
		}
		if _, ok := bySample[sample]; !ok {
			order = append(order, sample)
		}
		bySample[sample] = append(bySample[sample], c)
	}
	return order, bySample
}
