package service

import (
	"github.com/amrrules-interpreter/internal/domain"
)

// Annotator expands a resolved marker into output records carrying the
// annotation columns of the selected level.
type Annotator struct {
	columns []string
	version string
}

// NewAnnotator creates an annotator for the given level. version is written
// to the version column of every record.
func NewAnnotator(level domain.AnnotationLevel, version string) *Annotator {
	if version == "" {
		version = domain.Unset
	}
	return &Annotator{
		columns: level.Columns(),
		version: version,
	}
}

// Columns returns the annotation column names in output order.
func (a *Annotator) Columns() []string {
	return append([]string(nil), a.columns...)
}

// Annotate returns one record per rule. Without rules it returns a single
// record whose annotation values are all "-" and whose organism is "-".
func (a *Annotator) Annotate(call domain.MarkerCall, rules []domain.Rule) []domain.AnnotatedRecord {
	if len(rules) == 0 {
		return []domain.AnnotatedRecord{a.unmatched(call, true)}
	}

	records := make([]domain.AnnotatedRecord, 0, len(rules))
	for i := range rules {
		rule := rules[i]
		values := make([]string, len(a.columns))
		for j, col := range a.columns {
			switch col {
			case domain.ColVersion:
				values[j] = a.version
			case domain.ColOrganism:
				values[j] = orUnset(call.Organism)
			default:
				values[j] = rule.Value(col)
			}
		}
		records = append(records, domain.AnnotatedRecord{
			Call:      call,
			Rule:      &rule,
			Columns:   a.columns,
			Values:    values,
			Organism:  orUnset(call.Organism),
			Processed: true,
		})
	}
	return records
}

// Passthrough returns the record for a call that was not matched against
// rules, such as a non-AMR element.
func (a *Annotator) Passthrough(call domain.MarkerCall) domain.AnnotatedRecord {
	return a.unmatched(call, false)
}

func (a *Annotator) unmatched(call domain.MarkerCall, processed bool) domain.AnnotatedRecord {
	values := make([]string, len(a.columns))
	for i, col := range a.columns {
		if col == domain.ColVersion {
			values[i] = a.version
			continue
		}
		values[i] = domain.Unset
	}
	return domain.AnnotatedRecord{
		Call:      call,
		Columns:   a.columns,
		Values:    values,
		Organism:  domain.Unset,
		Processed: processed,
	}
}

func orUnset(v string) string {
	if domain.IsUnset(v) {
		return domain.Unset
	}
	return v
}
