package tsvio

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrrules-interpreter/internal/domain"
)

func tsvText(rows ...[]string) string {
	var b strings.Builder
	for _, r := range rows {
		b.WriteString(strings.Join(r, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

var newSchemeHeader = []string{
	"Name", "Protein id", "Element symbol", "Element name", "Scope", "Type", "Subtype",
	"Class", "Subclass", "Method", "Closest reference accession", "HMM accession", "Hierarchy node",
}

var oldSchemeHeader = []string{
	"Protein identifier", "Gene symbol", "Sequence name", "Scope", "Element type", "Element subtype",
	"Class", "Subclass", "Method", "Accession of closest sequence", "HMM id", "Hierarchy node",
}

func TestReadMarkers_NewScheme(t *testing.T) {
	input := tsvText(
		newSchemeHeader,
		[]string{"S1", "p1", "gyrA_S83L", "DNA gyrase", "core", "AMR", "POINT", "QUINOLONE", "QUINOLONE", "POINTX", "WP_001281881.1", "NA", "gyrA_S83L"},
		[]string{"S2", "p2", "blaTEM-1", "beta-lactamase", "plus", "AMR", "AMR", "BETA-LACTAM", "BETA-LACTAM", "EXACTX", "WP_000027057.1", "NF000001.1", "blaTEM-1"},
	)

	table, err := ReadMarkers(strings.NewReader(input), MarkerReaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, newSchemeHeader, table.Header)
	require.Len(t, table.Calls, 2)

	c := table.Calls[0]
	assert.Equal(t, 2, c.Line)
	assert.Equal(t, "S1", c.Sample)
	assert.Equal(t, "gyrA_S83L", c.ElementSymbol)
	assert.Equal(t, "AMR", c.ElementType)
	assert.Equal(t, "POINT", c.ElementSubtype)
	assert.Equal(t, domain.MethodPointX, c.Method)
	assert.Equal(t, "gyrA_S83L", c.NodeID)
	assert.Equal(t, "WP_001281881.1", c.NucleotideAccession)
	assert.Equal(t, "WP_001281881.1", c.ProteinAccession)
	assert.Empty(t, c.HMMAccession)
	assert.Equal(t, "QUINOLONE", c.Subclass)
	assert.Len(t, c.Row, len(newSchemeHeader))

	assert.Equal(t, "NF000001.1", table.Calls[1].HMMAccession)
	assert.Equal(t, 3, table.Calls[1].Line)
}

func TestReadMarkers_OldSchemeWithoutName(t *testing.T) {
	input := tsvText(
		oldSchemeHeader,
		[]string{"p1", "qnrS1", "quinolone resistance protein", "plus", "AMR", "AMR", "QUINOLONE", "QUINOLONE", "BLASTX", "WP_000000001.1", "NA", "qnrS1"},
	)

	table, err := ReadMarkers(strings.NewReader(input), MarkerReaderOptions{})
	require.NoError(t, err)
	require.Len(t, table.Calls, 1)
	c := table.Calls[0]
	assert.Equal(t, domain.DefaultSampleName, c.Sample)
	assert.Equal(t, "qnrS1", c.ElementSymbol)
	assert.Equal(t, "quinolone resistance protein", c.ElementName)
	assert.Equal(t, "WP_000000001.1", c.NucleotideAccession)

	table, err = ReadMarkers(strings.NewReader(input), MarkerReaderOptions{SampleName: "isolate-7"})
	require.NoError(t, err)
	assert.Equal(t, "isolate-7", table.Calls[0].Sample)
}

func TestReadMarkers_SampleNameOverridesNameColumn(t *testing.T) {
	input := tsvText(
		newSchemeHeader,
		[]string{"S1", "p1", "blaTEM-1", "x", "plus", "AMR", "AMR", "BETA-LACTAM", "BETA-LACTAM", "EXACTX", "WP_1", "NA", "blaTEM-1"},
	)
	table, err := ReadMarkers(strings.NewReader(input), MarkerReaderOptions{SampleName: "override"})
	require.NoError(t, err)
	assert.Equal(t, "override", table.Calls[0].Sample)
}

func TestReadMarkers_MissingColumns(t *testing.T) {
	header := []string{"Name", "Element symbol", "Type", "Subtype", "Class", "Subclass", "Method"}
	_, err := ReadMarkers(strings.NewReader(tsvText(header)), MarkerReaderOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingRequiredColumn)

	var colErr *domain.ColumnError
	require.True(t, errors.As(err, &colErr))
	assert.Equal(t, []string{"Hierarchy node"}, colErr.Missing)

	_, err = ReadMarkers(strings.NewReader(""), MarkerReaderOptions{})
	assert.ErrorIs(t, err, domain.ErrMissingRequiredColumn)
}

func TestReadMarkers_SkipsBlankLines(t *testing.T) {
	input := tsvText(newSchemeHeader) + "\n" +
		tsvText([]string{"S1", "p1", "blaTEM-1", "x", "plus", "AMR", "AMR", "BETA-LACTAM", "BETA-LACTAM", "EXACTX", "WP_1", "NA", "blaTEM-1"})
	table, err := ReadMarkers(strings.NewReader(input), MarkerReaderOptions{})
	require.NoError(t, err)
	assert.Len(t, table.Calls, 1)
}

func TestTableReader(t *testing.T) {
	input := tsvText(
		[]string{"ruleID", "organism", "extra", "context"},
		[]string{"ECO0001", "s__Escherichia coli", "ignored", "core"},
		[]string{"", "", "", ""},
		[]string{"ECO0002", "s__Escherichia coli", "", "acquired"},
	)
	tr, err := NewTableReader(strings.NewReader(input), "rules", "ruleID", "gene context|context")
	require.NoError(t, err)
	assert.Equal(t, "context", tr.Column("gene context", "context"))
	assert.True(t, tr.Has("extra"))

	row, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "ECO0001", row.Get("ruleID"))
	assert.Equal(t, "core", row.Get("context"))
	assert.Equal(t, "", row.Get("missing"))
	assert.Equal(t, 2, row.Line)

	row, err = tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "ECO0002", row.Get("ruleID"))
	assert.Equal(t, 4, row.Line)

	_, err = tr.Next()
	assert.Error(t, err)

	_, err = NewTableReader(strings.NewReader(tsvText([]string{"ruleID"})), "rules", "ruleID", "organism")
	assert.ErrorIs(t, err, domain.ErrMissingRequiredColumn)
}
