// Package domain contains the core entities used to interpret antimicrobial
// resistance genotype calls against curated, organism-specific rule tables.
//
// The ordinal types in this file (ClinicalCategory, Phenotype, EvidenceGrade)
// define the precedence used when several markers contribute to the same drug
// or drug class: the summary always reports the highest-ranked value.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Unset is the sentinel written wherever a value is absent.
const Unset = "-"

// IsUnset reports whether a table value carries no information. Empty
// strings, the "-" placeholder and "NA" are all treated as absent.
func IsUnset(v string) bool {
	switch strings.TrimSpace(v) {
	case "", Unset, "NA":
		return true
	default:
		return false
	}
}

// ClinicalCategory is the S/I/R call for a drug.
type ClinicalCategory string

const (
	CategoryNone         ClinicalCategory = Unset
	CategorySusceptible  ClinicalCategory = "S"
	CategoryIntermediate ClinicalCategory = "I"
	CategoryResistant    ClinicalCategory = "R"
)

var (
	ErrInvalidCategory      = errors.New("invalid clinical category")
	ErrInvalidPhenotype     = errors.New("invalid phenotype")
	ErrInvalidEvidenceGrade = errors.New("invalid evidence grade")
	ErrInvalidPolicy        = errors.New("invalid no-rule interpretation policy")
	ErrInvalidLevel         = errors.New("invalid annotation level")
)

// Rank orders categories S < I < R. Unknown values rank below S.
func (c ClinicalCategory) Rank() int {
	switch c {
	case CategorySusceptible:
		return 1
	case CategoryIntermediate:
		return 2
	case CategoryResistant:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether the category is one of S, I, R or the unset marker.
func (c ClinicalCategory) IsValid() bool {
	switch c {
	case CategoryNone, CategorySusceptible, CategoryIntermediate, CategoryResistant:
		return true
	default:
		return false
	}
}

func (c ClinicalCategory) String() string { return string(c) }

// ParseClinicalCategory normalizes a rule-table category value.
func ParseClinicalCategory(s string) (ClinicalCategory, error) {
	if IsUnset(s) {
		return CategoryNone, nil
	}
	c := ClinicalCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return CategoryNone, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// Phenotype distinguishes wildtype from nonwildtype calls.
type Phenotype string

const (
	PhenotypeNone        Phenotype = Unset
	PhenotypeWildtype    Phenotype = "wildtype"
	PhenotypeNonWildtype Phenotype = "nonwildtype"
)

// Rank orders phenotypes wildtype < nonwildtype.
func (p Phenotype) Rank() int {
	switch p {
	case PhenotypeWildtype:
		return 1
	case PhenotypeNonWildtype:
		return 2
	default:
		return 0
	}
}

func (p Phenotype) IsValid() bool {
	switch p {
	case PhenotypeNone, PhenotypeWildtype, PhenotypeNonWildtype:
		return true
	default:
		return false
	}
}

func (p Phenotype) String() string { return string(p) }

// ParsePhenotype normalizes a rule-table phenotype value.
func ParsePhenotype(s string) (Phenotype, error) {
	if IsUnset(s) {
		return PhenotypeNone, nil
	}
	p := Phenotype(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return PhenotypeNone, fmt.Errorf("%w: %q", ErrInvalidPhenotype, s)
	}
	return p, nil
}

// EvidenceGrade is the curated confidence attached to a rule.
type EvidenceGrade string

const (
	EvidenceNone     EvidenceGrade = Unset
	EvidenceVeryLow  EvidenceGrade = "very low"
	EvidenceLow      EvidenceGrade = "low"
	EvidenceModerate EvidenceGrade = "moderate"
	EvidenceHigh     EvidenceGrade = "high"
)

// Rank orders grades very low < low < moderate < high.
func (g EvidenceGrade) Rank() int {
	switch g {
	case EvidenceVeryLow:
		return 1
	case EvidenceLow:
		return 2
	case EvidenceModerate:
		return 3
	case EvidenceHigh:
		return 4
	default:
		return 0
	}
}

func (g EvidenceGrade) IsValid() bool {
	return g == EvidenceNone || g.Rank() > 0
}

func (g EvidenceGrade) String() string { return string(g) }

// ParseEvidenceGrade normalizes a rule-table grade. Older rule tables used
// weak/strong; those map onto low/high.
func ParseEvidenceGrade(s string) (EvidenceGrade, error) {
	if IsUnset(s) {
		return EvidenceNone, nil
	}
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "weak":
		return EvidenceLow, nil
	case "strong":
		return EvidenceHigh, nil
	}
	g := EvidenceGrade(v)
	if !g.IsValid() {
		return EvidenceNone, fmt.Errorf("%w: %q", ErrInvalidEvidenceGrade, s)
	}
	return g, nil
}

// VariationType classifies a marker for rule matching. Values are the
// strings used in the "variation type" column of rule tables.
type VariationType string

const (
	VariationGenePresence      VariationType = "Gene presence detected"
	VariationProteinVariant    VariationType = "Protein variant detected"
	VariationNucleotideVariant VariationType = "Nucleotide variant detected"
	VariationPromoterVariant   VariationType = "Promoter variant detected"
	VariationInactivating      VariationType = "Inactivating mutation detected"
	VariationCombination       VariationType = "Combination"
	VariationNonAMR            VariationType = "Non-AMR element"
	VariationUnknown           VariationType = ""
)

// IsVariant reports whether matching must also compare the mutation.
func (v VariationType) IsVariant() bool {
	switch v {
	case VariationProteinVariant, VariationNucleotideVariant, VariationPromoterVariant, VariationInactivating:
		return true
	default:
		return false
	}
}

func (v VariationType) String() string { return string(v) }

// Method is the AMRFinderPlus detection method.
type Method string

const (
	MethodExactX       Method = "EXACTX"
	MethodExactP       Method = "EXACTP"
	MethodAlleleX      Method = "ALLELEX"
	MethodAlleleP      Method = "ALLELEP"
	MethodBlastX       Method = "BLASTX"
	MethodBlastP       Method = "BLASTP"
	MethodHMM          Method = "HMM"
	MethodPointX       Method = "POINTX"
	MethodPointP       Method = "POINTP"
	MethodPointN       Method = "POINTN"
	MethodInternalStop Method = "INTERNAL_STOP"
	MethodPartialX     Method = "PARTIALX"
	MethodPartialP     Method = "PARTIALP"
	MethodPartialEndX  Method = "PARTIAL_CONTIG_ENDX"
	MethodPartialEndP  Method = "PARTIAL_CONTIG_ENDP"
)

// MethodCategory groups detection methods by how their symbol is parsed.
type MethodCategory int

const (
	MethodGenePresence MethodCategory = iota
	MethodProteinPoint
	MethodNucleotidePoint
	MethodInactivation
	MethodPartial
)

// Category returns the parsing category for m. Unrecognized methods are
// treated as gene presence.
func (m Method) Category() MethodCategory {
	switch {
	case m == MethodPointX || m == MethodPointP:
		return MethodProteinPoint
	case m == MethodPointN:
		return MethodNucleotidePoint
	case m == MethodInternalStop:
		return MethodInactivation
	case strings.HasPrefix(string(m), "PARTIAL"):
		return MethodPartial
	default:
		return MethodGenePresence
	}
}

// Element subtypes reported by AMRFinderPlus.
const (
	SubtypeAMR          = "AMR"
	SubtypePoint        = "POINT"
	SubtypePointDisrupt = "POINT_DISRUPT"
	ElementTypeAMR      = "AMR"
)

// NoRulePolicy decides the synthetic category for unmatched markers.
type NoRulePolicy string

const (
	PolicyNonWildtypeR NoRulePolicy = "nwtR"
	PolicyNonWildtypeS NoRulePolicy = "nwtS"
)

func (p NoRulePolicy) IsValid() bool {
	return p == PolicyNonWildtypeR || p == PolicyNonWildtypeS
}

// ParseNoRulePolicy validates a policy name from config or flags.
func ParseNoRulePolicy(s string) (NoRulePolicy, error) {
	p := NoRulePolicy(strings.TrimSpace(s))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	return p, nil
}

// AnnotationLevel selects the rule columns copied into annotated records.
type AnnotationLevel string

const (
	AnnotationMinimal AnnotationLevel = "minimal"
	AnnotationFull    AnnotationLevel = "full"
)

// ParseAnnotationLevel validates a level name from config or flags.
func ParseAnnotationLevel(s string) (AnnotationLevel, error) {
	switch l := AnnotationLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case AnnotationMinimal, AnnotationFull:
		return l, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}
