package tsvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/amrrules-interpreter/internal/domain"
)

// TableReader reads a tab-separated table whose columns are addressed by
// header name. Extra columns are ignored and column order is free.
type TableReader struct {
	name   string
	cr     *csv.Reader
	header []string
	index  map[string]int
}

// Row is one data row of a TableReader.
type Row struct {
	Line   int
	Values []string
	index  map[string]int
}

// Get returns the trimmed value of column, or "" when the column is absent.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[i])
}

// NewTableReader reads the header row and checks the required columns.
// Each required entry may list alternatives separated by "|"; one of them
// must be present. name identifies the table in errors.
func NewTableReader(r io.Reader, name string, required ...string) (*TableReader, error) {
	cr := newTSVReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, &domain.ColumnError{Table: name, Missing: required}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", name, err)
	}
	header = trimHeader(header)

	t := &TableReader{name: name, cr: cr, header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		if _, seen := t.index[h]; !seen {
			t.index[h] = i
		}
	}

	var missing []string
	for _, req := range required {
		if t.Column(strings.Split(req, "|")...) == "" {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, &domain.ColumnError{Table: name, Missing: missing}
	}
	return t, nil
}

// Header returns the column names in file order.
func (t *TableReader) Header() []string {
	return append([]string(nil), t.header...)
}

// Has reports whether column is present.
func (t *TableReader) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Column returns the first of the alternatives present in the header, or "".
func (t *TableReader) Column(alternatives ...string) string {
	for _, c := range alternatives {
		if t.Has(c) {
			return c
		}
	}
	return ""
}

// Next returns the next non-blank row, or io.EOF.
func (t *TableReader) Next() (Row, error) {
	for {
		values, err := t.cr.Read()
		if err == io.EOF {
			return Row{}, io.EOF
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return Row{}, fmt.Errorf("%s: %w: line %d: %v", t.name, domain.ErrMalformedInputRecord, parseErr.Line, parseErr.Err)
			}
			return Row{}, fmt.Errorf("%s: %w", t.name, err)
		}
		if isBlank(values) {
			continue
		}
		line, _ := t.cr.FieldPos(0)
		return Row{Line: line, Values: values, index: t.index}, nil
	}
}
