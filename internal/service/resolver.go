package service

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
)

// MatchTier names the resolution tier that produced a match.
type MatchTier string

const (
	TierNone                MatchTier = "none"
	TierNode                MatchTier = "node"
	TierAncestor            MatchTier = "ancestor"
	TierNucleotideAccession MatchTier = "nucleotide_accession"
	TierProteinAccession    MatchTier = "protein_accession"
	TierHMMAccession        MatchTier = "hmm_accession"
)

type resolution struct {
	rules []domain.Rule
	tier  MatchTier
}

// Resolver finds the most specific rules for a normalized marker call.
// Tiers are tried in order: exact hierarchy node, hierarchy ancestors
// (nearest first), nucleotide accession, protein accession, HMM accession.
// The first tier with any structural match decides the result; for variant
// calls that tier's matches are then narrowed by mutation, and an empty
// result does not fall through to the next tier.
//
// A Resolver is bound to one rule table and hierarchy, so memoized results
// keyed by call descriptor (which includes the organism) stay valid.
type Resolver struct {
	logger    *logrus.Logger
	rules     *domain.RuleTable
	hierarchy *domain.GeneHierarchy
	cache     *lru.Cache[string, resolution]
	hits      atomic.Int64
	misses    atomic.Int64
}

// ResolverStats reports cache effectiveness.
type ResolverStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// NewResolver creates a resolver over rules and hierarchy. A cacheSize of
// zero disables memoization.
func NewResolver(logger *logrus.Logger, cacheSize int, rules *domain.RuleTable, hierarchy *domain.GeneHierarchy) (*Resolver, error) {
	r := &Resolver{logger: logger, rules: rules, hierarchy: hierarchy}
	if cacheSize > 0 {
		cache, err := lru.New[string, resolution](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create resolver cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Resolve returns the rules of the call's organism that match, in table
// order, or nil. The returned slice must not be modified.
func (r *Resolver) Resolve(call domain.MarkerCall) []domain.Rule {
	return r.resolve(call).rules
}

// ResolveTier is Resolve that also reports the deciding tier.
func (r *Resolver) ResolveTier(call domain.MarkerCall) ([]domain.Rule, MatchTier) {
	res := r.resolve(call)
	return res.rules, res.tier
}

// Stats returns cache hit and miss counts.
func (r *Resolver) Stats() ResolverStats {
	return ResolverStats{Hits: r.hits.Load(), Misses: r.misses.Load()}
}

func (r *Resolver) resolve(call domain.MarkerCall) resolution {
	key := call.Descriptor()
	if r.cache != nil {
		if res, ok := r.cache.Get(key); ok {
			r.hits.Add(1)
			return res
		}
		r.misses.Add(1)
	}

	rules, _ := r.rules.ForOrganism(call.Organism)
	res := matchRules(call, rules, r.hierarchy)
	if r.cache != nil {
		r.cache.Add(key, res)
	}

	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{
			"sample":  call.Sample,
			"marker":  call.DisplayMarker,
			"node_id": call.NodeID,
			"tier":    res.tier,
			"matches": len(res.rules),
		}).Debug("Resolved marker")
	}
	return res
}

func matchRules(call domain.MarkerCall, rules []domain.Rule, hierarchy *domain.GeneHierarchy) resolution {
	var candidates []domain.Rule
	for _, rule := range rules {
		if rule.VariationType == call.VariationType {
			candidates = append(candidates, rule)
		}
	}
	if len(candidates) == 0 {
		return resolution{tier: TierNone}
	}

	try := func(tier MatchTier, key string, field func(domain.Rule) string) (resolution, bool) {
		if domain.IsUnset(key) {
			return resolution{}, false
		}
		var matched []domain.Rule
		for _, rule := range candidates {
			if field(rule) == key {
				matched = append(matched, rule)
			}
		}
		if len(matched) == 0 {
			return resolution{}, false
		}
		return resolution{rules: filterMutation(call, matched), tier: tier}, true
	}

	nodeID := func(r domain.Rule) string { return r.NodeID }
	if res, ok := try(TierNode, call.NodeID, nodeID); ok {
		return res
	}
	if !domain.IsUnset(call.NodeID) {
		for _, ancestor := range hierarchy.Ancestors(call.NodeID) {
			if res, ok := try(TierAncestor, ancestor, nodeID); ok {
				return res
			}
		}
	}
	if res, ok := try(TierNucleotideAccession, call.NucleotideAccession, func(r domain.Rule) string { return r.NucleotideAccession }); ok {
		return res
	}
	if res, ok := try(TierProteinAccession, call.ProteinAccession, func(r domain.Rule) string { return r.ProteinAccession }); ok {
		return res
	}
	if res, ok := try(TierHMMAccession, call.HMMAccession, func(r domain.Rule) string { return r.HMMAccession }); ok {
		return res
	}
	return resolution{tier: TierNone}
}

// filterMutation keeps the rules whose mutation equals the call's. Rules for
// inactivating mutations without a specific mutation apply to any
// inactivating call.
func filterMutation(call domain.MarkerCall, matched []domain.Rule) []domain.Rule {
	if !call.VariationType.IsVariant() {
		return matched
	}
	var out []domain.Rule
	for _, rule := range matched {
		switch {
		case rule.Mutation == call.Mutation:
			out = append(out, rule)
		case call.VariationType == domain.VariationInactivating && domain.IsUnset(rule.Mutation):
			out = append(out, rule)
		}
	}
	return out
}
