package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/pkg/logic"
)

const coreSuffix = " (core)"

// SummarizerOptions controls no-rule interpretation and marker display.
type SummarizerOptions struct {
	Policy        domain.NoRulePolicy
	FlagCoreGenes bool
}

type compiledCombo struct {
	expr logic.Expr
	err  error
}

// Summarizer aggregates a sample's annotated records into per drug class
// and per drug summary entries.
//
// Each class produces a class-level entry (drug "-") from the markers
// scoped to the class as a whole. Each drug entry aggregates its own
// markers together with the class-level result, so a drug is never
// reported as more susceptible than its class.
type Summarizer struct {
	logger  *logrus.Logger
	table   *domain.RuleTable
	catalog *domain.DrugCatalog
	opts    SummarizerOptions
	combos  map[string]compiledCombo
}

// NewSummarizer creates a summarizer and compiles every combination rule in
// the table. Rules whose logic cannot be evaluated are logged once and never
// match.
func NewSummarizer(logger *logrus.Logger, table *domain.RuleTable, catalog *domain.DrugCatalog, opts SummarizerOptions) *Summarizer {
	if opts.Policy == "" {
		opts.Policy = domain.PolicyNonWildtypeR
	}
	s := &Summarizer{
		logger:  logger,
		table:   table,
		catalog: catalog,
		opts:    opts,
		combos:  make(map[string]compiledCombo),
	}
	for _, organism := range table.Organisms() {
		for _, rule := range table.Combinations(organism) {
			c := s.compile(rule)
			if c.err != nil && logger != nil {
				logger.WithError(c.err).WithFields(logrus.Fields{
					"rule_id":  rule.ID,
					"organism": organism,
					"logic":    rule.Gene,
				}).Warn("Combination rule will never match")
			}
			s.combos[rule.ID] = c
		}
	}
	return s
}

// WithOptions returns a summarizer with different options that shares the
// compiled combination rules.
func (s *Summarizer) WithOptions(opts SummarizerOptions) *Summarizer {
	if opts.Policy == "" {
		opts.Policy = domain.PolicyNonWildtypeR
	}
	c := *s
	c.opts = opts
	return &c
}

func (s *Summarizer) compile(rule domain.Rule) compiledCombo {
	expr, err := logic.Parse(rule.Gene)
	if err != nil {
		return compiledCombo{err: fmt.Errorf("%w: %w", domain.ErrAmbiguousCombinationLogic, err)}
	}
	for _, id := range logic.Identifiers(expr) {
		if component, ok := s.table.Lookup(id); !ok || component.Organism != rule.Organism {
			return compiledCombo{err: fmt.Errorf("%w: unknown rule %q for %s", domain.ErrAmbiguousCombinationLogic, id, rule.Organism)}
		}
	}
	return compiledCombo{expr: expr}
}

type classGroup struct {
	scoped []contribution
	drugs  map[string][]contribution
}

// Summarize returns the sample's summary entries ordered by drug class, with
// the "other markers" class last. Within a class the class-level entry comes
// first, followed by drugs in alphabetical order.
func (s *Summarizer) Summarize(sample, organism string, records []domain.AnnotatedRecord) []domain.SummaryEntry {
	groups := make(map[string]*classGroup)
	for _, rec := range records {
		if !rec.Processed {
			continue
		}
		for _, c := range s.contributions(rec) {
			g, ok := groups[c.drugClass]
			if !ok {
				g = &classGroup{drugs: make(map[string][]contribution)}
				groups[c.drugClass] = g
			}
			if c.drug == domain.Unset {
				g.scoped = append(g.scoped, c)
			} else {
				g.drugs[c.drug] = append(g.drugs[c.drug], c)
			}
		}
	}

	combos := s.table.Combinations(organism)
	var entries []domain.SummaryEntry
	for _, class := range sortedClasses(groups) {
		g := groups[class]

		classAgg := newAggregate()
		var classIDs orderedSet
		for _, c := range g.scoped {
			classAgg.add(c)
			if c.hasRule {
				classIDs.add(c.ruleID)
			}
		}
		for _, cs := range g.drugs {
			for _, c := range cs {
				if c.hasRule {
					classIDs.add(c.ruleID)
				}
			}
		}
		classCombos := s.matchCombos(combos, classIDs.items(), func(r domain.Rule) bool {
			return domain.IsUnset(r.Drug) && r.DrugClass == class
		})
		for _, r := range classCombos {
			classAgg.addCombo(r)
		}
		if len(g.scoped) > 0 || len(classCombos) > 0 {
			entries = append(entries, classAgg.entry(sample, organism, domain.Unset, class))
		}

		drugs := make([]string, 0, len(g.drugs))
		for d := range g.drugs {
			drugs = append(drugs, d)
		}
		drugs = append(drugs, s.comboOnlyDrugs(combos, class, g, classAgg)...)
		sortFolded(drugs)
		for _, drug := range drugs {
			agg := newAggregate()
			for _, c := range g.drugs[drug] {
				agg.add(c)
			}
			agg.merge(classAgg)
			drugCombos := s.matchCombos(combos, agg.ruleIDs.items(), func(r domain.Rule) bool {
				return r.Drug == drug
			})
			for _, r := range drugCombos {
				agg.addCombo(r)
			}
			entries = append(entries, agg.entry(sample, organism, drug, class))
		}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"sample":   sample,
			"organism": organism,
			"records":  len(records),
			"entries":  len(entries),
		}).Debug("Summarized sample")
	}
	return entries
}

// comboOnlyDrugs returns the drugs of class that no marker maps to but
// whose drug-scoped combination rules hold on the class aggregate.
func (s *Summarizer) comboOnlyDrugs(combos []domain.Rule, class string, g *classGroup, classAgg *aggregate) []string {
	var out []string
	seen := make(map[string]bool)
	ids := classAgg.ruleIDs.items()
	for _, rule := range combos {
		drug, comboClass := s.ruleDrugClass(rule)
		if drug == domain.Unset || comboClass != class || seen[drug] {
			continue
		}
		if _, ok := g.drugs[drug]; ok {
			continue
		}
		if len(s.matchCombos([]domain.Rule{rule}, ids, func(domain.Rule) bool { return true })) > 0 {
			seen[drug] = true
			out = append(out, drug)
		}
	}
	return out
}

// matchCombos returns the applicable combination rules whose logic holds
// for ids.
func (s *Summarizer) matchCombos(combos []domain.Rule, ids []string, applies func(domain.Rule) bool) []domain.Rule {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	var out []domain.Rule
	for _, rule := range combos {
		if !applies(rule) {
			continue
		}
		c, ok := s.combos[rule.ID]
		if !ok {
			c = s.compile(rule)
		}
		if c.err != nil {
			continue
		}
		if c.expr.Eval(func(id string) bool { return set[id] }) {
			out = append(out, rule)
		}
	}
	return out
}

func (s *Summarizer) contributions(rec domain.AnnotatedRecord) []contribution {
	marker := s.markerLabel(rec)
	if rec.Rule != nil {
		r := rec.Rule
		drug, class := s.ruleDrugClass(*r)
		return []contribution{{
			marker:    marker,
			drug:      drug,
			drugClass: class,
			category:  r.Category,
			phenotype: r.Phenotype,
			grade:     r.EvidenceGrade,
			ruleID:    r.ID,
			hasRule:   true,
		}}
	}

	category := s.noRuleCategory(rec.Call)
	assignments := s.catalog.FromSubclass(rec.Call.Subclass)
	if len(assignments) == 0 {
		assignments = []domain.DrugAssignment{{Drug: domain.Unset, DrugClass: domain.OtherMarkersClass}}
	}
	out := make([]contribution, 0, len(assignments))
	for _, a := range assignments {
		drug, class := orUnset(a.Drug), a.DrugClass
		if domain.IsUnset(class) {
			class = domain.OtherMarkersClass
			if cls, ok := s.catalog.ClassOf(drug); ok && drug != domain.Unset {
				class = cls
			}
		}
		out = append(out, contribution{
			marker:    marker,
			drug:      drug,
			drugClass: class,
			category:  category,
			phenotype: domain.PhenotypeNonWildtype,
			grade:     domain.EvidenceVeryLow,
		})
	}
	return out
}

// noRuleCategory applies the no-rule policy. Inactivated genes are
// non-functional and default to S, except for disrupted core genes, which
// follow a resistant-leaning policy.
func (s *Summarizer) noRuleCategory(call domain.MarkerCall) domain.ClinicalCategory {
	if call.VariationType == domain.VariationInactivating {
		if call.IsPointDisrupt() && s.opts.Policy == domain.PolicyNonWildtypeR {
			return domain.CategoryResistant
		}
		return domain.CategorySusceptible
	}
	if s.opts.Policy == domain.PolicyNonWildtypeS {
		return domain.CategorySusceptible
	}
	return domain.CategoryResistant
}

func (s *Summarizer) ruleDrugClass(r domain.Rule) (drug, class string) {
	if !domain.IsUnset(r.Drug) {
		if cls, ok := s.catalog.ClassOf(r.Drug); ok {
			return r.Drug, cls
		}
		if !domain.IsUnset(r.DrugClass) {
			return r.Drug, r.DrugClass
		}
		return r.Drug, domain.OtherMarkersClass
	}
	if !domain.IsUnset(r.DrugClass) {
		return domain.Unset, r.DrugClass
	}
	return domain.Unset, domain.OtherMarkersClass
}

func (s *Summarizer) markerLabel(rec domain.AnnotatedRecord) string {
	label := rec.Call.DisplayMarker
	if label == "" {
		label = rec.Call.ElementSymbol
	}
	if s.opts.FlagCoreGenes && rec.Rule != nil && rec.Rule.IsCore() &&
		rec.Call.VariationType == domain.VariationGenePresence {
		label += coreSuffix
	}
	return label
}

func sortedClasses(groups map[string]*classGroup) []string {
	classes := make([]string, 0, len(groups))
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		if (a == domain.OtherMarkersClass) != (b == domain.OtherMarkersClass) {
			return b == domain.OtherMarkersClass
		}
		return lessFolded(a, b)
	})
	return classes
}

// lessFolded orders names alphabetically ignoring case, falling back to
// byte order so the result is deterministic.
func lessFolded(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

func sortFolded(names []string) {
	sort.Slice(names, func(i, j int) bool { return lessFolded(names[i], names[j]) })
}
