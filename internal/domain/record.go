package domain

import (
	"fmt"
	"time"
)

// Marker-derived columns appended after the input columns of every
// annotated record.
const (
	ColOutVariationType = "variation type"
	ColOutGene          = "gene"
	ColOutMutation      = "mutation"
)

// MinimalColumns are the rule columns emitted at the minimal annotation level.
var MinimalColumns = []string{
	ColRuleID,
	ColGeneContext,
	ColDrug,
	ColDrugClass,
	ColPhenotype,
	ColClinicalCategory,
	ColEvidenceGrade,
	ColVersion,
	ColOrganism,
}

// FullOnlyColumns are appended to MinimalColumns at the full level.
var FullOnlyColumns = []string{
	ColBreakpoint,
	ColBreakpointStandard,
	ColBreakpointCondition,
	ColEvidenceCode,
	ColEvidenceLimitations,
	ColPMID,
	ColCurationNote,
}

// Columns returns the annotation columns for the level.
func (l AnnotationLevel) Columns() []string {
	cols := append([]string(nil), MinimalColumns...)
	if l == AnnotationFull {
		cols = append(cols, FullOnlyColumns...)
	}
	return cols
}

// AnnotatedRecord is one output row: a marker paired with at most one rule.
// Values line up with Columns.
type AnnotatedRecord struct {
	Call      MarkerCall `json:"call"`
	Rule      *Rule      `json:"rule,omitempty"`
	Columns   []string   `json:"-"`
	Values    []string   `json:"values"`
	Organism  string     `json:"organism"`
	Processed bool       `json:"processed"`
}

// HasRule reports whether a rule was resolved for the record.
func (r AnnotatedRecord) HasRule() bool {
	return r.Rule != nil
}

// Value returns the annotation value for column, or "-".
func (r AnnotatedRecord) Value(column string) string {
	for i, c := range r.Columns {
		if c == column && i < len(r.Values) {
			return r.Values[i]
		}
	}
	return Unset
}

// MarkerColumns returns the variation type, gene and mutation columns.
func (r AnnotatedRecord) MarkerColumns() []string {
	if !r.Processed {
		gene := r.Call.ElementSymbol
		if gene == "" {
			gene = Unset
		}
		return []string{string(VariationNonAMR), gene, Unset}
	}
	return []string{string(r.Call.VariationType), r.Call.Gene, r.Call.MutationOrUnset()}
}

// OtherMarkersClass is the drug class for markers whose drug and class could
// not be resolved. It always sorts last.
const OtherMarkersClass = "other markers"

// SummaryEntry aggregates a sample's markers for one drug or drug class.
// Drug is "-" for the class-level entry.
type SummaryEntry struct {
	Sample        string           `json:"sample"`
	Drug          string           `json:"drug"`
	DrugClass     string           `json:"drug_class"`
	Category      ClinicalCategory `json:"category"`
	Phenotype     Phenotype        `json:"phenotype"`
	EvidenceGrade EvidenceGrade    `json:"evidence_grade"`
	NonSMarkers   []string         `json:"markers_non_s"`
	SMarkers      []string         `json:"markers_s"`
	NoRuleMarkers []string         `json:"markers_no_rule"`
	RuleIDs       []string         `json:"rule_ids"`
	ComboRules    []string         `json:"combo_rules"`
	Organism      string           `json:"organism"`
}

// IsClassLevel reports whether the entry summarizes a whole drug class.
func (e SummaryEntry) IsClassLevel() bool {
	return e.Drug == Unset
}

// SkippedRecord describes an input record dropped before resolution.
type SkippedRecord struct {
	Line   int    `json:"line"`
	Sample string `json:"sample"`
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// SampleFailure describes a sample that could not be interpreted.
type SampleFailure struct {
	Sample   string `json:"sample"`
	Organism string `json:"organism"`
	Reason   string `json:"reason"`
}

// RunReport collects the counts and problems of one interpretation run.
type RunReport struct {
	RunID           string          `json:"run_id"`
	StartedAt       time.Time       `json:"started_at"`
	FinishedAt      time.Time       `json:"finished_at"`
	Samples         int             `json:"samples"`
	Matched         int             `json:"matched"`
	Unmatched       int             `json:"unmatched"`
	Skipped         []SkippedRecord `json:"skipped,omitempty"`
	FailedSamples   []SampleFailure `json:"failed_samples,omitempty"`
	RulesetVersion  string          `json:"ruleset_version"`
	DatabaseVersion string          `json:"database_version,omitempty"`
}

// String renders the matched and unmatched hit counts.
func (r RunReport) String() string {
	return fmt.Sprintf("%d hits matched a rule and %d hits did not match a rule", r.Matched, r.Unmatched)
}
