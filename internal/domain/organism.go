package domain

import (
	"fmt"
	"sort"
)

// OrganismAssignment decides which organism's rules apply to a sample:
// either one organism for every sample, or a per-sample mapping.
type OrganismAssignment struct {
	Default  string
	BySample map[string]string
}

// NewOrganismAssignment builds an assignment from sample/organism pairs.
// A sample listed twice with different organisms is rejected.
func NewOrganismAssignment(defaultOrganism string, pairs [][2]string) (OrganismAssignment, error) {
	a := OrganismAssignment{Default: defaultOrganism}
	if len(pairs) == 0 {
		return a, nil
	}
	a.BySample = make(map[string]string, len(pairs))
	for _, p := range pairs {
		sample, organism := p[0], p[1]
		if prev, ok := a.BySample[sample]; ok && prev != organism {
			return OrganismAssignment{}, fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateSampleOrganism, sample, prev, organism)
		}
		a.BySample[sample] = organism
	}
	return a, nil
}

// For returns the organism for sample. A per-sample entry wins over the
// default.
func (a OrganismAssignment) For(sample string) (string, error) {
	if org, ok := a.BySample[sample]; ok && !IsUnset(org) {
		return org, nil
	}
	if !IsUnset(a.Default) {
		return a.Default, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoOrganism, sample)
}

// Organisms lists the distinct organisms referenced by the assignment.
func (a OrganismAssignment) Organisms() []string {
	seen := make(map[string]bool)
	if !IsUnset(a.Default) {
		seen[a.Default] = true
	}
	for _, org := range a.BySample {
		seen[org] = true
	}
	out := make([]string, 0, len(seen))
	for org := range seen {
		out = append(out, org)
	}
	sort.Strings(out)
	return out
}
