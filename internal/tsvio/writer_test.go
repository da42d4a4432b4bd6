package tsvio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrrules-interpreter/internal/domain"
)

func TestWriteInterpreted(t *testing.T) {
	header := []string{"Name", "Element symbol"}
	columns := []string{domain.ColRuleID, domain.ColDrug}

	rule := &domain.Rule{ID: "ECO0001", Drug: "ampicillin"}
	records := []domain.AnnotatedRecord{
		{
			Call: domain.MarkerCall{
				Row:           []string{"S1", "blaTEM-1"},
				Gene:          "blaTEM-1",
				VariationType: domain.VariationGenePresence,
			},
			Rule:      rule,
			Columns:   columns,
			Values:    []string{"ECO0001", "ampicillin"},
			Processed: true,
		},
		{
			Call: domain.MarkerCall{
				Row:           []string{"S1", "fimH"},
				ElementSymbol: "fimH",
			},
			Columns: columns,
			Values:  []string{"-", "-"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteInterpreted(&buf, header, columns, records))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Name\tElement symbol\tvariation type\tgene\tmutation\truleID\tdrug", lines[0])
	assert.Equal(t, "S1\tblaTEM-1\tGene presence detected\tblaTEM-1\t-\tECO0001\tampicillin", lines[1])
	assert.Equal(t, "S1\tfimH\tNon-AMR element\tfimH\t-\t-\t-", lines[2])
}

func TestWriteSummary(t *testing.T) {
	entries := []domain.SummaryEntry{
		{
			Sample:        "S1",
			Drug:          "ampicillin",
			DrugClass:     "beta-lactams",
			Category:      domain.CategoryResistant,
			Phenotype:     domain.PhenotypeNonWildtype,
			EvidenceGrade: domain.EvidenceHigh,
			NonSMarkers:   []string{"blaTEM-1", "blaCTX-M-15"},
			RuleIDs:       []string{"ruleA", "ruleB"},
			ComboRules:    []string{"combo1"},
			Organism:      "s__Escherichia coli",
		},
		{
			Sample:        "S1",
			Drug:          domain.Unset,
			DrugClass:     domain.OtherMarkersClass,
			Category:      domain.CategoryResistant,
			Phenotype:     domain.PhenotypeNonWildtype,
			EvidenceGrade: domain.EvidenceVeryLow,
			NoRuleMarkers: []string{"mystery"},
			Organism:      "s__Escherichia coli",
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, entries))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, strings.Join(SummaryColumns, "\t"), lines[0])
	assert.Equal(t,
		"S1\tampicillin\tbeta-lactams\tR\tnonwildtype\thigh\tblaTEM-1;blaCTX-M-15\t-\t-\truleA;ruleB\tcombo1\ts__Escherichia coli",
		lines[1])
	assert.Equal(t,
		"S1\t-\tother markers\tR\tnonwildtype\tvery low\t-\t-\tmystery\t-\t-\ts__Escherichia coli",
		lines[2])
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b c", clean("a\tb\nc"))
	assert.Equal(t, "plain", clean("plain"))
}
