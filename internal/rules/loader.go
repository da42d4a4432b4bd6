// Package rules loads organism rule tables from tab-separated files.
package rules

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/internal/tsvio"
)

// ColRuleType optionally marks Combination rules independently of the
// variation type column.
const ColRuleType = "rule type"

const ruleTypeCombination = "Combination"

var ruleFileExtensions = []string{".txt", ".tsv"}

var requiredColumns = []string{
	domain.ColRuleID,
	domain.ColOrganism,
	domain.ColVariationType,
	domain.ColMutation,
	domain.ColDrug,
	domain.ColDrugClass,
	domain.ColPhenotype,
	domain.ColClinicalCategory,
	domain.ColEvidenceGrade,
	domain.ColGeneContext + "|" + domain.ColContext,
	strings.Join([]string{
		domain.ColNodeID,
		domain.ColNucleotideAccession,
		domain.ColProteinAccession,
		domain.ColHMMAccession,
	}, "|"),
}

// Loader reads rule files into a domain.RuleTable.
type Loader struct {
	logger *logrus.Logger
}

// NewLoader creates a rule loader.
func NewLoader(logger *logrus.Logger) *Loader {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Loader{logger: logger}
}

// LoadDir loads every rule file in dir.
func (l *Loader) LoadDir(dir string) (*domain.RuleTable, error) {
	files, err := ruleFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no rule files found in %s", dir)
	}
	return l.LoadFiles(files...)
}

// LoadFiles loads the given rule files, in order, into one table. Rule IDs
// must be unique across files.
func (l *Loader) LoadFiles(paths ...string) (*domain.RuleTable, error) {
	var all []domain.Rule
	seen := make(map[string]string)
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open rule file: %w", err)
		}
		rules, err := ReadRules(f, filepath.Base(path))
		f.Close()
		if err != nil {
			return nil, err
		}
		for _, r := range rules {
			if prev, ok := seen[r.ID]; ok {
				return nil, fmt.Errorf("duplicate rule %s in %s (first seen in %s)", r.ID, path, prev)
			}
			seen[r.ID] = path
		}
		l.logger.WithFields(logrus.Fields{
			"file":  path,
			"rules": len(rules),
		}).Debug("Loaded rule file")
		all = append(all, rules...)
	}

	table := domain.NewRuleTable(all)
	l.logger.WithFields(logrus.Fields{
		"files":     len(paths),
		"rules":     table.Len(),
		"organisms": len(table.Organisms()),
	}).Info("Rule table loaded")
	return table, nil
}

// ReadRules parses one rule table. name identifies the table in errors.
func ReadRules(r io.Reader, name string) ([]domain.Rule, error) {
	tr, err := tsvio.NewTableReader(r, name, requiredColumns...)
	if err != nil {
		return nil, err
	}
	contextCol := tr.Column(domain.ColGeneContext, domain.ColContext)

	var out []domain.Rule
	for {
		row, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rule, err := parseRule(row, contextCol)
		if err != nil {
			return nil, fmt.Errorf("%s: line %d: %w", name, row.Line, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

func parseRule(row tsvio.Row, contextCol string) (domain.Rule, error) {
	rule := domain.Rule{
		ID:                  row.Get(domain.ColRuleID),
		Organism:            row.Get(domain.ColOrganism),
		Gene:                row.Get(domain.ColGene),
		NodeID:              row.Get(domain.ColNodeID),
		NucleotideAccession: row.Get(domain.ColNucleotideAccession),
		ProteinAccession:    row.Get(domain.ColProteinAccession),
		HMMAccession:        row.Get(domain.ColHMMAccession),
		AROAccession:        row.Get(domain.ColAROAccession),
		Mutation:            row.Get(domain.ColMutation),
		VariationType:       domain.VariationType(row.Get(domain.ColVariationType)),
		Context:             row.Get(contextCol),
		Drug:                row.Get(domain.ColDrug),
		DrugClass:           row.Get(domain.ColDrugClass),
		Breakpoint:          row.Get(domain.ColBreakpoint),
		BreakpointStandard:  row.Get(domain.ColBreakpointStandard),
		BreakpointCondition: row.Get(domain.ColBreakpointCondition),
		EvidenceCode:        row.Get(domain.ColEvidenceCode),
		EvidenceLimitations: row.Get(domain.ColEvidenceLimitations),
		PMID:                row.Get(domain.ColPMID),
		CurationNote:        row.Get(domain.ColCurationNote),
	}
	if rule.ID == "" {
		return rule, errors.New("empty ruleID")
	}
	if strings.EqualFold(row.Get(ColRuleType), ruleTypeCombination) {
		rule.VariationType = domain.VariationCombination
	}

	var err error
	if rule.Phenotype, err = domain.ParsePhenotype(row.Get(domain.ColPhenotype)); err != nil {
		return rule, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.Category, err = domain.ParseClinicalCategory(row.Get(domain.ColClinicalCategory)); err != nil {
		return rule, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.EvidenceGrade, err = domain.ParseEvidenceGrade(row.Get(domain.ColEvidenceGrade)); err != nil {
		return rule, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	return rule, nil
}

// SupportedOrganisms lists the organisms with a rule file in dir, taken
// from the file names.
func SupportedOrganisms(dir string) ([]string, error) {
	files, err := ruleFiles(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(files))
	for _, f := range files {
		base := filepath.Base(f)
		out = append(out, strings.TrimSuffix(base, filepath.Ext(base)))
	}
	sort.Strings(out)
	return out, nil
}

func ruleFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rules directory not found: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, allowed := range ruleFileExtensions {
			if ext == allowed {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
