// Package hgvs converts AMRFinderPlus point-mutation suffixes into the
// HGVS-style notation used by AMR rule tables (p.Ser83Leu, c.-10G>T).
package hgvs

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/amrrules-interpreter/internal/domain"
)

var (
	// S83L, D346DD, E42RfsTer47, Y36Ter, W121*
	proteinTokenPattern = regexp.MustCompile(`^(\D+)(\d+)(\D+)(\d*)$`)
	// G2032T, C-10T, A1234del
	nucleotideTokenPattern = regexp.MustCompile(`^([A-Za-z]+)(-?\d+)([A-Za-z]+)$`)

	// One-letter to three-letter amino acid codes
	aminoAcidCodes = map[byte]string{
		'G': "Gly", 'A': "Ala", 'S': "Ser", 'P': "Pro", 'T': "Thr",
		'C': "Cys", 'V': "Val", 'L': "Leu", 'I': "Ile", 'M': "Met",
		'N': "Asn", 'Q': "Gln", 'K': "Lys", 'R': "Arg", 'H': "His",
		'D': "Asp", 'E': "Glu", 'W': "Trp", 'Y': "Tyr", 'F': "Phe",
		'*': "Ter",
	}
)

const (
	stopToken     = "Ter"
	stopWord      = "STOP"
	deletionToken = "del"
)

// ParseError reports a mutation suffix that does not follow the expected
// residue/position/residue grammar.
type ParseError struct {
	Token  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse mutation %q: %s", e.Token, e.Reason)
}

// Unwrap lets callers match domain.ErrMalformedInputRecord.
func (e *ParseError) Unwrap() error {
	return domain.ErrMalformedInputRecord
}

// ThreeLetter converts a run of one-letter amino acid codes.
func ThreeLetter(residues string) (string, error) {
	if residues == "" {
		return "", fmt.Errorf("empty residue string")
	}
	var b strings.Builder
	for i := 0; i < len(residues); i++ {
		code, ok := aminoAcidCodes[residues[i]]
		if !ok {
			return "", fmt.Errorf("unknown amino acid %q", residues[i])
		}
		b.WriteString(code)
	}
	return b.String(), nil
}

// SplitSymbol splits GENE_suffix on the final underscore.
func SplitSymbol(symbol string) (gene, suffix string, err error) {
	i := strings.LastIndex(symbol, "_")
	if i <= 0 || i == len(symbol)-1 {
		return "", "", &ParseError{Token: symbol, Reason: "expected GENE_mutation"}
	}
	return symbol[:i], symbol[i+1:], nil
}

// ProteinMutation converts a protein suffix such as S83L into canonical
// notation.
func ProteinMutation(token string) (string, error) {
	m := proteinTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", &ParseError{Token: token, Reason: "expected <ref><position><alt>"}
	}
	ref, posText, alt, tail := m[1], m[2], m[3], m[4]
	pos, err := strconv.Atoi(posText)
	if err != nil {
		return "", &ParseError{Token: token, Reason: "position out of range"}
	}
	if tail != "" && !strings.Contains(alt, stopToken) {
		return "", &ParseError{Token: token, Reason: "trailing digits without stop codon"}
	}

	ref3, err := ThreeLetter(ref)
	if err != nil {
		return "", &ParseError{Token: token, Reason: err.Error()}
	}

	switch {
	case alt == "*" || alt == stopWord || strings.HasPrefix(alt, stopToken):
		return fmt.Sprintf("p.%s%dTer", ref3, pos), nil

	case strings.Contains(alt, stopToken):
		// frameshift: first residue of alt, then distance to the stop codon
		if tail == "" {
			return "", &ParseError{Token: token, Reason: "frameshift without stop distance"}
		}
		alt3, err := ThreeLetter(alt[:1])
		if err != nil {
			return "", &ParseError{Token: token, Reason: err.Error()}
		}
		return fmt.Sprintf("p.%s%d%sfsTer%s", ref3, pos, alt3, tail), nil

	case alt == deletionToken:
		return fmt.Sprintf("p.%s%ddel", ref3, pos), nil

	case len(alt) > 1:
		// insertion after the reference residue
		inserted, err := ThreeLetter(alt[1:])
		if err != nil {
			return "", &ParseError{Token: token, Reason: err.Error()}
		}
		return fmt.Sprintf("p.%d_%dins%s", pos-1, pos, inserted), nil

	default:
		alt3, err := ThreeLetter(alt)
		if err != nil {
			return "", &ParseError{Token: token, Reason: err.Error()}
		}
		return fmt.Sprintf("p.%s%d%s", ref3, pos, alt3), nil
	}
}

// NucleotideMutation converts a nucleotide suffix such as G2032T into
// canonical notation. Negative positions are upstream of the coding
// sequence and reported as promoter variants.
func NucleotideMutation(token string) (mutation string, promoter bool, err error) {
	m := nucleotideTokenPattern.FindStringSubmatch(token)
	if m == nil {
		return "", false, &ParseError{Token: token, Reason: "expected <ref><position><alt>"}
	}
	ref, pos, alt := m[1], m[2], m[3]
	promoter = strings.HasPrefix(pos, "-")
	if alt == deletionToken {
		return fmt.Sprintf("c.%s%sdel", pos, ref), promoter, nil
	}
	return fmt.Sprintf("c.%s%s>%s", pos, ref, alt), promoter, nil
}
