// Package tsvio reads AMRFinderPlus marker tables and writes the annotated
// and summary outputs.
package tsvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/amrrules-interpreter/internal/domain"
)

// Canonical marker fields. Each may be spelled in either of the two
// AMRFinderPlus header schemes.
const (
	fieldName        = "name"
	fieldSymbol      = "symbol"
	fieldElementName = "element name"
	fieldType        = "type"
	fieldSubtype     = "subtype"
	fieldClass       = "class"
	fieldSubclass    = "subclass"
	fieldMethod      = "method"
	fieldNode        = "node"
	fieldAccession   = "accession"
	fieldHMM         = "hmm"
)

// markerHeaders lists the accepted header spellings per field, newer
// scheme first.
var markerHeaders = map[string][]string{
	fieldName:        {"Name"},
	fieldSymbol:      {"Element symbol", "Gene symbol"},
	fieldElementName: {"Element name", "Sequence name"},
	fieldType:        {"Type", "Element type"},
	fieldSubtype:     {"Subtype", "Element subtype"},
	fieldClass:       {"Class"},
	fieldSubclass:    {"Subclass"},
	fieldMethod:      {"Method"},
	fieldNode:        {"Hierarchy node"},
	fieldAccession:   {"Closest reference accession", "Accession of closest sequence"},
	fieldHMM:         {"HMM accession", "HMM id"},
}

var requiredMarkerFields = []string{fieldSymbol, fieldType, fieldSubtype, fieldMethod, fieldNode, fieldSubclass}

// MarkerTable is a parsed AMRFinderPlus table. Header keeps the input
// columns so they can be echoed in the annotated output.
type MarkerTable struct {
	Header []string
	Calls  []domain.MarkerCall
}

// MarkerReaderOptions controls sample naming.
type MarkerReaderOptions struct {
	// SampleName overrides the Name column when set.
	SampleName string
}

// ReadMarkers parses a tab-separated AMRFinderPlus table in either header
// scheme into canonical marker calls. A missing required column fails the
// whole read with a *domain.ColumnError.
func ReadMarkers(r io.Reader, opts MarkerReaderOptions) (*MarkerTable, error) {
	cr := newTSVReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, &domain.ColumnError{Table: "markers", Missing: requiredHeaderNames()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read marker header: %w", err)
	}
	header = trimHeader(header)

	index := resolveHeader(header)
	var missing []string
	for _, f := range requiredMarkerFields {
		if _, ok := index[f]; !ok {
			missing = append(missing, strings.Join(markerHeaders[f], "|"))
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ColumnError{Table: "markers", Missing: missing}
	}

	table := &MarkerTable{Header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return nil, fmt.Errorf("%w: line %d: %v", domain.ErrMalformedInputRecord, parseErr.Line, parseErr.Err)
			}
			return nil, err
		}
		if isBlank(row) {
			continue
		}
		line, _ := cr.FieldPos(0)
		table.Calls = append(table.Calls, toMarkerCall(row, index, line, opts))
	}
	return table, nil
}

func toMarkerCall(row []string, index map[string]int, line int, opts MarkerReaderOptions) domain.MarkerCall {
	get := func(field string) string {
		i, ok := index[field]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	sample := opts.SampleName
	if sample == "" {
		sample = get(fieldName)
	}
	if sample == "" {
		sample = domain.DefaultSampleName
	}

	accession := get(fieldAccession)
	hmm := get(fieldHMM)
	if domain.IsUnset(hmm) {
		hmm = ""
	}

	return domain.MarkerCall{
		Line:                line,
		Sample:              sample,
		ElementSymbol:       get(fieldSymbol),
		ElementName:         get(fieldElementName),
		ElementType:         get(fieldType),
		ElementSubtype:      get(fieldSubtype),
		Method:              domain.Method(get(fieldMethod)),
		NodeID:              get(fieldNode),
		NucleotideAccession: accession,
		ProteinAccession:    accession,
		HMMAccession:        hmm,
		Class:               get(fieldClass),
		Subclass:            get(fieldSubclass),
		Row:                 append([]string(nil), row...),
	}
}

// resolveHeader maps each canonical field to the first matching column.
func resolveHeader(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := pos[h]; !seen {
			pos[h] = i
		}
	}
	index := make(map[string]int)
	for field, names := range markerHeaders {
		for _, n := range names {
			if i, ok := pos[n]; ok {
				index[field] = i
				break
			}
		}
	}
	return index
}

func requiredHeaderNames() []string {
	out := make([]string, 0, len(requiredMarkerFields))
	for _, f := range requiredMarkerFields {
		out = append(out, strings.Join(markerHeaders[f], "|"))
	}
	return out
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

func trimHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
			h = strings.TrimPrefix(h, "#")
		}
		out[i] = h
	}
	return out
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
