package service

import (
	"github.com/amrrules-interpreter/internal/domain"
)

// contribution is one marker's effect on one drug or drug class.
type contribution struct {
	marker    string
	drug      string
	drugClass string
	category  domain.ClinicalCategory
	phenotype domain.Phenotype
	grade     domain.EvidenceGrade
	ruleID    string
	hasRule   bool
}

// aggregate accumulates contributions for one summary entry.
type aggregate struct {
	category  domain.ClinicalCategory
	phenotype domain.Phenotype
	grade     domain.EvidenceGrade
	nonS      orderedSet
	s         orderedSet
	noRule    orderedSet
	ruleIDs   orderedSet
	combos    orderedSet
}

func newAggregate() *aggregate {
	return &aggregate{
		category:  domain.CategoryNone,
		phenotype: domain.PhenotypeNone,
		grade:     domain.EvidenceNone,
	}
}

// call folds a category, phenotype and grade into the aggregate. The grade
// follows the call that set the highest category; among equal categories
// the higher grade wins.
func (a *aggregate) call(category domain.ClinicalCategory, phenotype domain.Phenotype, grade domain.EvidenceGrade) {
	switch {
	case category.Rank() > a.category.Rank():
		a.category = category
		a.grade = grade
	case category.Rank() == a.category.Rank() && grade.Rank() > a.grade.Rank():
		a.grade = grade
	}
	if phenotype.Rank() > a.phenotype.Rank() {
		a.phenotype = phenotype
	}
}

func (a *aggregate) add(c contribution) {
	a.call(c.category, c.phenotype, c.grade)
	switch {
	case !c.hasRule:
		a.noRule.add(c.marker)
	case c.category == domain.CategorySusceptible:
		a.s.add(c.marker)
	default:
		a.nonS.add(c.marker)
	}
	if c.hasRule {
		a.ruleIDs.add(c.ruleID)
	}
}

func (a *aggregate) addCombo(rule domain.Rule) {
	a.call(rule.Category, rule.Phenotype, rule.EvidenceGrade)
	a.combos.add(rule.ID)
}

// merge folds another aggregate into a, as if its calls had been added.
func (a *aggregate) merge(b *aggregate) {
	if b == nil {
		return
	}
	a.call(b.category, b.phenotype, b.grade)
	a.nonS.addAll(b.nonS)
	a.s.addAll(b.s)
	a.noRule.addAll(b.noRule)
	a.ruleIDs.addAll(b.ruleIDs)
	a.combos.addAll(b.combos)
}

func (a *aggregate) entry(sample, organism, drug, drugClass string) domain.SummaryEntry {
	return domain.SummaryEntry{
		Sample:        sample,
		Drug:          drug,
		DrugClass:     drugClass,
		Category:      a.category,
		Phenotype:     a.phenotype,
		EvidenceGrade: a.grade,
		NonSMarkers:   a.nonS.items(),
		SMarkers:      a.s.items(),
		NoRuleMarkers: a.noRule.items(),
		RuleIDs:       a.ruleIDs.items(),
		ComboRules:    a.combos.items(),
		Organism:      organism,
	}
}

// orderedSet keeps distinct strings in insertion order.
type orderedSet struct {
	order []string
	seen  map[string]bool
}

func (o *orderedSet) add(v string) {
	if v == "" {
		return
	}
	if o.seen == nil {
		o.seen = make(map[string]bool)
	}
	if o.seen[v] {
		return
	}
	o.seen[v] = true
	o.order = append(o.order, v)
}

func (o *orderedSet) addAll(other orderedSet) {
	for _, v := range other.order {
		o.add(v)
	}
}

func (o *orderedSet) items() []string {
	return append([]string(nil), o.order...)
}
