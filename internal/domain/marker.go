package domain

import "strings"

// DefaultSampleName is used when the input carries no Name column and the
// caller supplied no sample name.
const DefaultSampleName = "sample"

// MarkerCall is one detected marker in one sample, normalized from either
// AMRFinderPlus header scheme. The fields after Row are filled by the
// notation normalizer; a MarkerCall is never modified after that.
type MarkerCall struct {
	Line           int    `json:"line"`
	Sample         string `json:"sample"`
	ElementSymbol  string `json:"element_symbol"`
	ElementName    string `json:"element_name,omitempty"`
	ElementType    string `json:"element_type"`
	ElementSubtype string `json:"element_subtype"`
	Method         Method `json:"method"`
	NodeID         string `json:"node_id"`

	// AMRFinderPlus reports a single closest reference accession; it is
	// tried against both the nucleotide and the protein rule keys.
	NucleotideAccession string `json:"nucleotide_accession"`
	ProteinAccession    string `json:"protein_accession"`
	HMMAccession        string `json:"hmm_accession"`

	Class    string `json:"class"`
	Subclass string `json:"subclass"`
	Organism string `json:"organism"`

	// Row holds the original values in input column order.
	Row []string `json:"-"`

	Gene          string        `json:"gene"`
	Mutation      string        `json:"mutation,omitempty"`
	VariationType VariationType `json:"variation_type"`
	DisplayMarker string        `json:"marker"`
}

// IsAMR reports whether the call belongs to the AMR element type. Other
// element types (virulence, stress) are never matched against rules.
func (m MarkerCall) IsAMR() bool {
	return m.ElementType == ElementTypeAMR
}

// IsPointDisrupt reports whether AMRFinderPlus flagged the call as a
// disruption of a core gene.
func (m MarkerCall) IsPointDisrupt() bool {
	return m.ElementSubtype == SubtypePointDisrupt
}

// MutationOrUnset returns the mutation, or "-" for gene presence calls.
func (m MarkerCall) MutationOrUnset() string {
	if m.Mutation == "" {
		return Unset
	}
	return m.Mutation
}

// Descriptor is a stable key over every field that influences rule
// resolution.
func (m MarkerCall) Descriptor() string {
	return strings.Join([]string{
		m.Organism,
		string(m.VariationType),
		m.NodeID,
		m.NucleotideAccession,
		m.ProteinAccession,
		m.HMMAccession,
		m.Mutation,
	}, "\x1f")
}
