package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrrules-interpreter/internal/domain"
)

func TestAnnotator_NoRules(t *testing.T) {
	a := NewAnnotator(domain.AnnotationMinimal, "0.3.0")
	call := presenceCall("N1")

	records := a.Annotate(call, nil)
	require.Len(t, records, 1)
	rec := records[0]
	assert.False(t, rec.HasRule())
	assert.True(t, rec.Processed)
	assert.Equal(t, "-", rec.Organism)
	assert.Len(t, rec.Values, len(domain.MinimalColumns))
	for i, col := range rec.Columns {
		if col == domain.ColVersion {
			assert.Equal(t, "0.3.0", rec.Values[i])
			continue
		}
		assert.Equal(t, "-", rec.Values[i], col)
	}
}

func TestAnnotator_OneRecordPerRule(t *testing.T) {
	a := NewAnnotator(domain.AnnotationMinimal, "0.3.0")
	call := presenceCall("N1")

	r1 := presenceRule("ECO0001", "N1")
	r1.Context = "acquired"
	r1.DrugClass = "beta-lactams"
	r2 := presenceRule("ECO0002", "N1")
	r2.Drug = "amoxicillin"

	records := a.Annotate(call, []domain.Rule{r1, r2})
	require.Len(t, records, 2)

	assert.Equal(t, "ECO0001", records[0].Value(domain.ColRuleID))
	assert.Equal(t, "acquired", records[0].Value(domain.ColGeneContext))
	assert.Equal(t, "ampicillin", records[0].Value(domain.ColDrug))
	assert.Equal(t, "beta-lactams", records[0].Value(domain.ColDrugClass))
	assert.Equal(t, "R", records[0].Value(domain.ColClinicalCategory))
	assert.Equal(t, "nonwildtype", records[0].Value(domain.ColPhenotype))
	assert.Equal(t, "high", records[0].Value(domain.ColEvidenceGrade))
	assert.Equal(t, "0.3.0", records[0].Value(domain.ColVersion))
	assert.Equal(t, "Orgx", records[0].Value(domain.ColOrganism))
	assert.Equal(t, "Orgx", records[0].Organism)

	assert.Equal(t, "ECO0002", records[1].Value(domain.ColRuleID))
	assert.Equal(t, "amoxicillin", records[1].Value(domain.ColDrug))
	assert.Equal(t, "-", records[1].Value(domain.ColDrugClass))
	assert.Equal(t, "ECO0002", records[1].Rule.ID)
}

func TestAnnotator_FullLevelFillsMissingValues(t *testing.T) {
	a := NewAnnotator(domain.AnnotationFull, "0.3.0")
	rule := presenceRule("ECO0001", "N1")
	rule.PMID = "12345678"

	records := a.Annotate(presenceCall("N1"), []domain.Rule{rule})
	require.Len(t, records, 1)
	rec := records[0]

	assert.Len(t, rec.Values, len(domain.MinimalColumns)+len(domain.FullOnlyColumns))
	assert.Equal(t, "12345678", rec.Value(domain.ColPMID))
	assert.Equal(t, "-", rec.Value(domain.ColBreakpoint))
	assert.Equal(t, "-", rec.Value(domain.ColCurationNote))
}

func TestAnnotator_Passthrough(t *testing.T) {
	a := NewAnnotator(domain.AnnotationMinimal, "")
	call := domain.MarkerCall{ElementSymbol: "fimH", ElementType: "VIRULENCE"}

	rec := a.Passthrough(call)
	assert.False(t, rec.Processed)
	assert.Equal(t, "-", rec.Value(domain.ColVersion))
	assert.Equal(t, []string{"Non-AMR element", "fimH", "-"}, rec.MarkerColumns())
}

func TestAnnotator_MarkerColumns(t *testing.T) {
	a := NewAnnotator(domain.AnnotationMinimal, "0.3.0")
	call := presenceCall("gyrA")
	call.VariationType = domain.VariationProteinVariant
	call.Mutation = "p.Ser83Leu"

	rec := a.Annotate(call, nil)[0]
	assert.Equal(t, []string{"Protein variant detected", "gyrA", "p.Ser83Leu"}, rec.MarkerColumns())

	rec = a.Annotate(presenceCall("blaTEM-1"), nil)[0]
	assert.Equal(t, []string{"Gene presence detected", "blaTEM-1", "-"}, rec.MarkerColumns())
}
