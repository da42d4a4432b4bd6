package resources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/amrrules-interpreter/internal/tsvio"
)

// CARD category table columns.
const (
	colAROCategory  = "ARO Category"
	colAROAccession = "ARO Accession"
	colAROName      = "ARO Name"

	categoryDrugClass = "Drug Class"
)

// betaLactamSubclasses are CARD terms below "beta-lactam antibiotic" whose
// direct children are reported under the subclass name rather than the
// top-level class.
var betaLactamSubclasses = []string{
	"ARO:3009105", "ARO:3009106", "ARO:3009107", "ARO:3009108",
	"ARO:3009109", "ARO:3009123", "ARO:3009124", "ARO:3009125",
	"ARO:3000035", "ARO:3007783", "ARO:0000022", "ARO:3007629",
	"ARO:3000707",
}

// oboTerm is the part of an OBO [Term] stanza used here.
type oboTerm struct {
	id      string
	name    string
	parents []string
}

// readOBO parses [Term] stanzas from an OBO file.
func readOBO(r io.Reader) (map[string]*oboTerm, error) {
	terms := make(map[string]*oboTerm)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 4<<20)

	var cur *oboTerm
	inTerm := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "["):
			inTerm = line == "[Term]"
			cur = nil
		case !inTerm:
		case strings.HasPrefix(line, "id: "):
			cur = &oboTerm{id: strings.TrimPrefix(line, "id: ")}
			terms[cur.id] = cur
		case cur == nil:
		case strings.HasPrefix(line, "name: "):
			cur.name = strings.TrimPrefix(line, "name: ")
		case strings.HasPrefix(line, "is_a: "):
			parent := strings.TrimPrefix(line, "is_a: ")
			if i := strings.Index(parent, " ! "); i >= 0 {
				parent = parent[:i]
			}
			cur.parents = append(cur.parents, strings.TrimSpace(parent))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ontology: %w", err)
	}
	return terms, nil
}

// BuildCARDDrugClasses derives a drug to drug class map from the CARD
// ontology (aro.obo) and category table (aro_categories.tsv). Every direct
// child of a "Drug Class" term maps to that class; the beta-lactam
// subclasses then override their children with the subclass name.
func BuildCARDDrugClasses(obo, categories io.Reader) (map[string]string, error) {
	terms, err := readOBO(obo)
	if err != nil {
		return nil, err
	}

	tr, err := tsvio.NewTableReader(categories, "aro categories", colAROCategory, colAROAccession, colAROName)
	if err != nil {
		return nil, err
	}
	classes := make(map[string]string) // accession -> class name
	for {
		row, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if row.Get(colAROCategory) == categoryDrugClass {
			classes[row.Get(colAROAccession)] = row.Get(colAROName)
		}
	}

	children := make(map[string][]string)
	for _, t := range terms {
		for _, p := range t.parents {
			children[p] = append(children[p], t.id)
		}
	}

	out := make(map[string]string)
	assign := func(parent, class string) {
		for _, child := range children[parent] {
			if t, ok := terms[child]; ok && t.name != "" {
				out[t.name] = class
			}
		}
	}

	accessions := make([]string, 0, len(classes))
	for acc := range classes {
		accessions = append(accessions, acc)
	}
	sort.Strings(accessions)
	for _, acc := range accessions {
		assign(acc, classes[acc])
	}
	for _, acc := range betaLactamSubclasses {
		if t, ok := terms[acc]; ok && t.name != "" {
			assign(acc, t.name)
		}
	}
	return out, nil
}

// SortedKeys returns the keys of m in order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
