package domain

import "sort"

// Rule columns as they appear in rule table files.
const (
	ColRuleID              = "ruleID"
	ColOrganism            = "organism"
	ColGene                = "gene"
	ColNodeID              = "nodeID"
	ColNucleotideAccession = "nucleotide accession"
	ColProteinAccession    = "protein accession"
	ColHMMAccession        = "HMM accession"
	ColAROAccession        = "ARO accession"
	ColMutation            = "mutation"
	ColVariationType       = "variation type"
	ColGeneContext         = "gene context"
	ColContext             = "context"
	ColDrug                = "drug"
	ColDrugClass           = "drug class"
	ColPhenotype           = "phenotype"
	ColClinicalCategory    = "clinical category"
	ColEvidenceGrade       = "evidence grade"
	ColBreakpoint          = "breakpoint"
	ColBreakpointStandard  = "breakpoint standard"
	ColBreakpointCondition = "breakpoint condition"
	ColEvidenceCode        = "evidence code"
	ColEvidenceLimitations = "evidence limitations"
	ColPMID                = "PMID"
	ColCurationNote        = "rule curation note"
	ColVersion             = "version"
)

// GeneContextCore marks genes that are part of the species core genome.
const GeneContextCore = "core"

// Rule is one curated rule-table entry. For Combination rules, Gene holds a
// boolean expression over other rule IDs instead of a gene symbol.
type Rule struct {
	ID                  string           `json:"rule_id"`
	Organism            string           `json:"organism"`
	Gene                string           `json:"gene"`
	NodeID              string           `json:"node_id,omitempty"`
	NucleotideAccession string           `json:"nucleotide_accession,omitempty"`
	ProteinAccession    string           `json:"protein_accession,omitempty"`
	HMMAccession        string           `json:"hmm_accession,omitempty"`
	AROAccession        string           `json:"aro_accession,omitempty"`
	Mutation            string           `json:"mutation,omitempty"`
	VariationType       VariationType    `json:"variation_type"`
	Context             string           `json:"gene_context,omitempty"`
	Drug                string           `json:"drug,omitempty"`
	DrugClass           string           `json:"drug_class,omitempty"`
	Phenotype           Phenotype        `json:"phenotype"`
	Category            ClinicalCategory `json:"clinical_category"`
	EvidenceGrade       EvidenceGrade    `json:"evidence_grade"`
	Breakpoint          string           `json:"breakpoint,omitempty"`
	BreakpointStandard  string           `json:"breakpoint_standard,omitempty"`
	BreakpointCondition string           `json:"breakpoint_condition,omitempty"`
	EvidenceCode        string           `json:"evidence_code,omitempty"`
	EvidenceLimitations string           `json:"evidence_limitations,omitempty"`
	PMID                string           `json:"pmid,omitempty"`
	CurationNote        string           `json:"curation_note,omitempty"`
}

// IsCombination reports whether the rule is evaluated over other rule IDs.
func (r Rule) IsCombination() bool {
	return r.VariationType == VariationCombination
}

// IsCore reports whether the rule applies to a core gene.
func (r Rule) IsCore() bool {
	return r.Context == GeneContextCore
}

// Value returns the rule's value for an annotation column, or "-" when the
// column is unknown or the value is unset.
func (r Rule) Value(column string) string {
	var v string
	switch column {
	case ColRuleID:
		v = r.ID
	case ColOrganism:
		v = r.Organism
	case ColGeneContext, ColContext:
		v = r.Context
	case ColDrug:
		v = r.Drug
	case ColDrugClass:
		v = r.DrugClass
	case ColPhenotype:
		v = string(r.Phenotype)
	case ColClinicalCategory:
		v = string(r.Category)
	case ColEvidenceGrade:
		v = string(r.EvidenceGrade)
	case ColBreakpoint:
		v = r.Breakpoint
	case ColBreakpointStandard:
		v = r.BreakpointStandard
	case ColBreakpointCondition:
		v = r.BreakpointCondition
	case ColEvidenceCode:
		v = r.EvidenceCode
	case ColEvidenceLimitations:
		v = r.EvidenceLimitations
	case ColPMID:
		v = r.PMID
	case ColCurationNote:
		v = r.CurationNote
	}
	if IsUnset(v) {
		return Unset
	}
	return v
}

// RuleTable is the immutable set of loaded rules, indexed by organism.
// Rules keep their file order within each organism.
type RuleTable struct {
	byOrganism map[string][]Rule
	byID       map[string]Rule
	size       int
}

// NewRuleTable indexes rules by organism and rule ID.
func NewRuleTable(rules []Rule) *RuleTable {
	t := &RuleTable{
		byOrganism: make(map[string][]Rule),
		byID:       make(map[string]Rule, len(rules)),
	}
	for _, r := range rules {
		t.byOrganism[r.Organism] = append(t.byOrganism[r.Organism], r)
		t.byID[r.ID] = r
		t.size++
	}
	return t
}

// ForOrganism returns the organism's rules in table order. The returned
// slice is shared and must not be modified.
func (t *RuleTable) ForOrganism(organism string) ([]Rule, bool) {
	if t == nil {
		return nil, false
	}
	rules, ok := t.byOrganism[organism]
	return rules, ok
}

// Combinations returns the organism's Combination rules in table order.
func (t *RuleTable) Combinations(organism string) []Rule {
	rules, _ := t.ForOrganism(organism)
	var out []Rule
	for _, r := range rules {
		if r.IsCombination() {
			out = append(out, r)
		}
	}
	return out
}

// Lookup returns the rule with the given ID.
func (t *RuleTable) Lookup(id string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	r, ok := t.byID[id]
	return r, ok
}

// Organisms lists the organisms with at least one rule, sorted.
func (t *RuleTable) Organisms() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.byOrganism))
	for org := range t.byOrganism {
		out = append(out, org)
	}
	sort.Strings(out)
	return out
}

// Len returns the total number of rules.
func (t *RuleTable) Len() int {
	if t == nil {
		return 0
	}
	return t.size
}
