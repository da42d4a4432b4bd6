package hgvs

import (
	"fmt"

	"github.com/amrrules-interpreter/internal/domain"
)

// Normalizer fills in the canonical mutation, variation type and display
// marker of a marker call.
type Normalizer struct {
	fullDisrupt bool
}

// NewNormalizer creates a normalizer. With fullDisrupt set, POINT_DISRUPT
// calls display their mutation instead of the "-" placeholder.
func NewNormalizer(fullDisrupt bool) *Normalizer {
	return &Normalizer{fullDisrupt: fullDisrupt}
}

// Normalize returns a copy of call with the derived fields set. Non-AMR
// calls are returned with only the gene filled in.
func (n *Normalizer) Normalize(call domain.MarkerCall) (domain.MarkerCall, error) {
	out := call
	out.Gene = call.ElementSymbol
	out.Mutation = ""

	if !call.IsAMR() {
		out.VariationType = domain.VariationNonAMR
		out.DisplayMarker = call.ElementSymbol
		return out, nil
	}

	switch call.Method.Category() {
	case domain.MethodProteinPoint:
		gene, suffix, err := SplitSymbol(call.ElementSymbol)
		if err != nil {
			return call, err
		}
		mutation, err := ProteinMutation(suffix)
		if err != nil {
			return call, fmt.Errorf("%s: %w", call.ElementSymbol, err)
		}
		out.Gene = gene
		out.Mutation = mutation
		out.VariationType = domain.VariationProteinVariant
		if call.IsPointDisrupt() {
			out.VariationType = domain.VariationInactivating
		}

	case domain.MethodNucleotidePoint:
		gene, suffix, err := SplitSymbol(call.ElementSymbol)
		if err != nil {
			return call, err
		}
		mutation, promoter, err := NucleotideMutation(suffix)
		if err != nil {
			return call, fmt.Errorf("%s: %w", call.ElementSymbol, err)
		}
		out.Gene = gene
		out.Mutation = mutation
		out.VariationType = domain.VariationNucleotideVariant
		if promoter {
			out.VariationType = domain.VariationPromoterVariant
		}

	case domain.MethodInactivation, domain.MethodPartial:
		// no position is reported for truncated or interrupted genes
		out.Mutation = domain.Unset
		out.VariationType = domain.VariationInactivating

	default:
		out.VariationType = domain.VariationGenePresence
	}

	out.DisplayMarker = n.displayMarker(out)
	return out, nil
}

func (n *Normalizer) displayMarker(call domain.MarkerCall) string {
	if call.VariationType == domain.VariationGenePresence {
		return call.Gene
	}
	if call.IsPointDisrupt() && !n.fullDisrupt {
		return call.Gene + ":" + domain.Unset
	}
	return call.Gene + ":" + call.Mutation
}
