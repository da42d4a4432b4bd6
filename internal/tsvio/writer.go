package tsvio

import (
	"io"
	"strings"

	"github.com/grailbio/base/tsv"

	"github.com/amrrules-interpreter/internal/domain"
)

// Summary output columns.
var SummaryColumns = []string{
	"Name",
	"drug",
	"drug class",
	"category",
	"phenotype",
	"evidence grade",
	"markers (nonS)",
	"markers (S)",
	"markers (no rule)",
	"ruleIDs",
	"combo rules",
	"organism",
}

const listSeparator = ";"

// WriteInterpreted writes one row per annotated record: the input columns,
// the variation type, gene and mutation columns, then the annotation
// columns.
func WriteInterpreted(w io.Writer, inputHeader, columns []string, records []domain.AnnotatedRecord) error {
	out := tsv.NewWriter(w)

	for _, h := range inputHeader {
		out.WriteString(h)
	}
	out.WriteString(domain.ColOutVariationType)
	out.WriteString(domain.ColOutGene)
	out.WriteString(domain.ColOutMutation)
	for _, c := range columns {
		out.WriteString(c)
	}
	if err := out.EndLine(); err != nil {
		return err
	}

	for _, rec := range records {
		for i := range inputHeader {
			v := ""
			if i < len(rec.Call.Row) {
				v = rec.Call.Row[i]
			}
			out.WriteString(clean(v))
		}
		for _, v := range rec.MarkerColumns() {
			out.WriteString(clean(v))
		}
		for _, c := range columns {
			out.WriteString(clean(rec.Value(c)))
		}
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

// WriteSummary writes one row per summary entry.
func WriteSummary(w io.Writer, entries []domain.SummaryEntry) error {
	out := tsv.NewWriter(w)
	for _, c := range SummaryColumns {
		out.WriteString(c)
	}
	if err := out.EndLine(); err != nil {
		return err
	}

	for _, e := range entries {
		for _, v := range summaryRow(e) {
			out.WriteString(clean(v))
		}
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

func summaryRow(e domain.SummaryEntry) []string {
	return []string{
		e.Sample,
		orDash(e.Drug),
		orDash(e.DrugClass),
		orDash(string(e.Category)),
		orDash(string(e.Phenotype)),
		orDash(string(e.EvidenceGrade)),
		joinList(e.NonSMarkers),
		joinList(e.SMarkers),
		joinList(e.NoRuleMarkers),
		joinList(e.RuleIDs),
		joinList(e.ComboRules),
		orDash(e.Organism),
	}
}

func joinList(items []string) string {
	if len(items) == 0 {
		return domain.Unset
	}
	return strings.Join(items, listSeparator)
}

func orDash(v string) string {
	if v == "" {
		return domain.Unset
	}
	return v
}

// clean keeps a value on one cell.
func clean(v string) string {
	if strings.ContainsAny(v, "\t\n\r") {
		return strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(v)
	}
	return v
}
