package domain

import "strings"

// DrugAssignment pairs a drug with its drug class. Drug is "-" when only
// the class is known.
type DrugAssignment struct {
	Drug      string `json:"drug"`
	DrugClass string `json:"drug_class"`
}

// DrugCatalog holds the two lookup tables used to place markers in drug
// classes: AMRFinderPlus subclass to drug/class, and drug to class. It is
// filled once at load time and read-only afterwards.
type DrugCatalog struct {
	bySubclass map[string][]DrugAssignment
	classOf    map[string]string
}

// NewDrugCatalog returns an empty catalog.
func NewDrugCatalog() *DrugCatalog {
	return &DrugCatalog{
		bySubclass: make(map[string][]DrugAssignment),
		classOf:    make(map[string]string),
	}
}

// AddConversion maps an AMRFinderPlus subclass to a drug and class.
func (c *DrugCatalog) AddConversion(subclass, drug, drugClass string) {
	key := subclassKey(subclass)
	if key == "" {
		return
	}
	a := DrugAssignment{Drug: normalizeName(drug), DrugClass: normalizeName(drugClass)}
	for _, existing := range c.bySubclass[key] {
		if existing == a {
			return
		}
	}
	c.bySubclass[key] = append(c.bySubclass[key], a)
}

// AddDrugClass records the class of a drug.
func (c *DrugCatalog) AddDrugClass(drug, drugClass string) {
	if IsUnset(drug) || IsUnset(drugClass) {
		return
	}
	c.classOf[strings.ToLower(strings.TrimSpace(drug))] = strings.TrimSpace(drugClass)
}

// ClassOf returns the class of drug.
func (c *DrugCatalog) ClassOf(drug string) (string, bool) {
	if c == nil {
		return "", false
	}
	cls, ok := c.classOf[strings.ToLower(strings.TrimSpace(drug))]
	return cls, ok
}

// FromSubclass returns the assignments for an AMRFinderPlus subclass.
// Compound subclasses such as "GENTAMICIN/TOBRAMYCIN" that have no entry of
// their own are looked up part by part.
func (c *DrugCatalog) FromSubclass(subclass string) []DrugAssignment {
	if c == nil {
		return nil
	}
	key := subclassKey(subclass)
	if key == "" {
		return nil
	}
	if a, ok := c.bySubclass[key]; ok {
		return a
	}
	var out []DrugAssignment
	for _, part := range strings.Split(key, "/") {
		out = append(out, c.bySubclass[strings.TrimSpace(part)]...)
	}
	return out
}

// Len returns the number of subclass and drug entries.
func (c *DrugCatalog) Len() (subclasses, drugs int) {
	if c == nil {
		return 0, 0
	}
	return len(c.bySubclass), len(c.classOf)
}

func subclassKey(s string) string {
	if IsUnset(s) {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

func normalizeName(s string) string {
	if IsUnset(s) {
		return Unset
	}
	return strings.TrimSpace(s)
}
