package service

import (
	"context"
	"errors"
	"fmt"
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/amrrules-interpreter/internal/domain"
)

// MockResourceProvider is a mock implementation of domain.ResourceProvider
type MockResourceProvider struct {
	mock.Mock
}

func (m *MockResourceProvider) Hierarchy(ctx context.Context) (*domain.GeneHierarchy, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneHierarchy), args.Error(1)
}

func (m *MockResourceProvider) DatabaseVersion(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func newMockResources(hierarchy *domain.GeneHierarchy) *MockResourceProvider {
	m := &MockResourceProvider{}
	m.On("Hierarchy", mock.Anything).Return(hierarchy, nil)
	m.On("DatabaseVersion", mock.Anything).Return("2024-01-31.1", nil)
	return m
}

func newTestInterpreter(rules []domain.Rule, resources domain.ResourceProvider, opts InterpreterOptions) *Interpreter {
	organisms, _ := domain.NewOrganismAssignment("Orgx", nil)
	return NewInterpreter(testLogger(), domain.NewRuleTable(rules), testCatalog(), resources, organisms, opts)
}

func rawCall(sample, symbol, node string, line int) domain.MarkerCall {
	return domain.MarkerCall{
		Line:                line,
		Sample:              sample,
		ElementSymbol:       symbol,
		ElementType:         domain.ElementTypeAMR,
		ElementSubtype:      domain.SubtypeAMR,
		Method:              domain.MethodExactX,
		NodeID:              node,
		NucleotideAccession: "-",
		ProteinAccession:    "-",
	}
}

func TestInterpreter_EndToEndSingleRule(t *testing.T) {
	resources := newMockResources(domain.NewGeneHierarchy(nil))
	rule := presenceRule("ORG0001", "N1")
	interp := newTestInterpreter([]domain.Rule{rule}, resources, InterpreterOptions{RulesetVersion: "0.3"})

	result, err := interp.Run(context.Background(), []domain.MarkerCall{rawCall("S1", "N1", "N1", 2)})
	require.NoError(t, err)
	resources.AssertExpectations(t)

	require.Len(t, result.Samples, 1)
	sample := result.Samples[0]
	assert.Equal(t, "Orgx", sample.Organism)

	require.Len(t, sample.Records, 1)
	rec := sample.Records[0]
	assert.Equal(t, "R", rec.Value(domain.ColClinicalCategory))
	assert.Equal(t, "ampicillin", rec.Value(domain.ColDrug))
	assert.Equal(t, "0.3", rec.Value(domain.ColVersion))
	assert.Equal(t, []string{"Gene presence detected", "N1", "-"}, rec.MarkerColumns())

	require.Len(t, sample.Summary, 1)
	entry := sample.Summary[0]
	assert.Equal(t, "ampicillin", entry.Drug)
	assert.Equal(t, domain.CategoryResistant, entry.Category)

	assert.Equal(t, 1, result.Report.Matched)
	assert.Equal(t, 0, result.Report.Unmatched)
	assert.Equal(t, "2024-01-31.1", result.Report.DatabaseVersion)
	assert.NotEmpty(t, result.Report.RunID)
}

func TestInterpreter_CombinationAcrossMarkers(t *testing.T) {
	resources := newMockResources(nil)
	ruleA := ruleFor("ruleA", "ampicillin", "-", domain.CategorySusceptible, domain.EvidenceLow)
	ruleB := ruleFor("ruleB", "ampicillin", "-", domain.CategorySusceptible, domain.EvidenceLow)
	combo := domain.Rule{
		ID:            "combo1",
		Organism:      "Orgx",
		Gene:          "ruleA & ruleB",
		VariationType: domain.VariationCombination,
		Drug:          "ampicillin",
		Phenotype:     domain.PhenotypeNonWildtype,
		Category:      domain.CategoryResistant,
		EvidenceGrade: domain.EvidenceModerate,
	}
	interp := newTestInterpreter([]domain.Rule{*ruleA, *ruleB, combo}, resources, InterpreterOptions{})

	result, err := interp.Run(context.Background(), []domain.MarkerCall{
		rawCall("S1", "geneA", "ruleA", 2),
		rawCall("S1", "geneB", "ruleB", 3),
	})
	require.NoError(t, err)
	require.Len(t, result.Samples, 1)

	summary := result.Samples[0].Summary
	require.Len(t, summary, 1)
	assert.Equal(t, []string{"ruleA", "ruleB"}, summary[0].RuleIDs)
	assert.Equal(t, []string{"combo1"}, summary[0].ComboRules)
	assert.Equal(t, domain.CategoryResistant, summary[0].Category)
}

func TestInterpreter_UnmatchedMarkerGoesToOtherMarkers(t *testing.T) {
	resources := newMockResources(nil)
	interp := newTestInterpreter([]domain.Rule{presenceRule("r1", "blaTEM")}, resources, InterpreterOptions{})

	call := rawCall("S1", "newGene", "newGene", 2)
	call.Subclass = "UNMAPPED"
	result, err := interp.Run(context.Background(), []domain.MarkerCall{call})
	require.NoError(t, err)

	require.Len(t, result.Samples, 1)
	require.Len(t, result.Samples[0].Records, 1)
	assert.False(t, result.Samples[0].Records[0].HasRule())

	summary := result.Samples[0].Summary
	require.Len(t, summary, 1)
	assert.Equal(t, domain.OtherMarkersClass, summary[0].DrugClass)
	assert.Equal(t, domain.PhenotypeNonWildtype, summary[0].Phenotype)
	assert.Equal(t, domain.EvidenceVeryLow, summary[0].EvidenceGrade)
	assert.Equal(t, 0, result.Report.Matched)
	assert.Equal(t, 1, result.Report.Unmatched)
}

func TestInterpreter_SkipsMalformedRecord(t *testing.T) {
	resources := newMockResources(nil)
	interp := newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{})

	bad := rawCall("S1", "gyrA_83", "gyrA_83", 3)
	bad.Method = domain.MethodPointX
	bad.ElementSubtype = domain.SubtypePoint

	result, err := interp.Run(context.Background(), []domain.MarkerCall{
		rawCall("S1", "N1", "N1", 2),
		bad,
		rawCall("S1", "N1", "N1", 4),
	})
	require.NoError(t, err)

	require.Len(t, result.Report.Skipped, 1)
	assert.Equal(t, 3, result.Report.Skipped[0].Line)
	assert.Equal(t, "gyrA_83", result.Report.Skipped[0].Symbol)
	assert.Len(t, result.Samples[0].Records, 2)
	assert.Equal(t, 2, result.Report.Matched)
}

func TestInterpreter_UnknownOrganismFailsOnlyThatSample(t *testing.T) {
	resources := newMockResources(nil)
	organisms, err := domain.NewOrganismAssignment("", [][2]string{
		{"S1", "Orgx"},
		{"S2", "Orgy"},
	})
	require.NoError(t, err)
	interp := NewInterpreter(testLogger(), domain.NewRuleTable([]domain.Rule{presenceRule("r1", "N1")}),
		testCatalog(), resources, organisms, InterpreterOptions{Workers: 4})

	result, err := interp.Run(context.Background(), []domain.MarkerCall{
		rawCall("S1", "N1", "N1", 2),
		rawCall("S2", "N1", "N1", 3),
		rawCall("S3", "N1", "N1", 4),
	})
	require.NoError(t, err)

	require.Len(t, result.Samples, 1)
	assert.Equal(t, "S1", result.Samples[0].Sample)
	require.Len(t, result.Report.FailedSamples, 2)
	assert.Equal(t, "S2", result.Report.FailedSamples[0].Sample)
	assert.Contains(t, result.Report.FailedSamples[0].Reason, domain.ErrUnknownOrganism.Error())
	assert.Equal(t, "S3", result.Report.FailedSamples[1].Sample)
	assert.Contains(t, result.Report.FailedSamples[1].Reason, domain.ErrNoOrganism.Error())
}

func TestInterpreter_PreservesSampleAndRecordOrder(t *testing.T) {
	resources := newMockResources(nil)
	interp := newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{Workers: 8})

	var calls []domain.MarkerCall
	for s := 0; s < 20; s++ {
		for r := 0; r < 3; r++ {
			calls = append(calls, rawCall(fmt.Sprintf("S%02d", s), fmt.Sprintf("g%d", r), "N1", s*3+r))
		}
	}
	// interleave a late record for the first sample
	calls = append(calls, rawCall("S00", "late", "N1", 999))

	result, err := interp.Run(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, result.Samples, 20)
	for s, sample := range result.Samples {
		assert.Equal(t, fmt.Sprintf("S%02d", s), sample.Sample)
	}
	first := result.Samples[0].Records
	require.Len(t, first, 4)
	assert.Equal(t, "g0", first[0].Call.ElementSymbol)
	assert.Equal(t, "late", first[3].Call.ElementSymbol)
}

func TestInterpreter_NonAMRPassthrough(t *testing.T) {
	resources := newMockResources(nil)
	calls := []domain.MarkerCall{
		rawCall("S1", "N1", "N1", 2),
		{Line: 3, Sample: "S1", ElementSymbol: "fimH", ElementType: "VIRULENCE"},
	}

	interp := newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{})
	result, err := interp.Run(context.Background(), calls)
	require.NoError(t, err)
	assert.Len(t, result.Samples[0].Records, 1)

	interp = newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{PrintNonAMR: true})
	result, err = interp.Run(context.Background(), calls)
	require.NoError(t, err)
	require.Len(t, result.Samples[0].Records, 2)
	assert.False(t, result.Samples[0].Records[1].Processed)
	assert.Len(t, result.Samples[0].Summary, 1)
}

func TestInterpreter_HierarchyFailureIsFatal(t *testing.T) {
	resources := &MockResourceProvider{}
	resources.On("Hierarchy", mock.Anything).Return(nil, errors.New("download failed"))

	interp := newTestInterpreter(nil, resources, InterpreterOptions{})
	_, err := interp.Run(context.Background(), []domain.MarkerCall{rawCall("S1", "N1", "N1", 2)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "download failed")
}

func TestInterpreter_DefaultSampleName(t *testing.T) {
	resources := newMockResources(nil)
	interp := newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{})

	result, err := interp.Run(context.Background(), []domain.MarkerCall{rawCall("", "N1", "N1", 2)})
	require.NoError(t, err)
	require.Len(t, result.Samples, 1)
	assert.Equal(t, domain.DefaultSampleName, result.Samples[0].Sample)
	assert.Equal(t, domain.DefaultSampleName, result.Samples[0].Summary[0].Sample)
}

func TestInterpreter_DeriveKeepsTablesAndSwapsOptions(t *testing.T) {
	resources := newMockResources(nil)
	base := newTestInterpreter([]domain.Rule{presenceRule("r1", "N1")}, resources, InterpreterOptions{})

	organisms, err := domain.NewOrganismAssignment("Orgy", nil)
	require.NoError(t, err)
	derived := base.Derive(organisms, InterpreterOptions{Level: domain.AnnotationFull})

	assert.Same(t, base.rules, derived.rules)
	assert.Greater(t, len(derived.Columns()), len(base.Columns()))
	assert.Equal(t, 1, derived.opts.Workers)

	result, err := derived.Run(context.Background(), []domain.MarkerCall{rawCall("S1", "N1", "N1", 2)})
	require.NoError(t, err)
	assert.Empty(t, result.Samples)
	require.Len(t, result.Report.FailedSamples, 1)
	assert.Equal(t, "Orgy", result.Report.FailedSamples[0].Organism)

	result, err = base.Run(context.Background(), []domain.MarkerCall{rawCall("S1", "N1", "N1", 2)})
	require.NoError(t, err)
	require.Len(t, result.Samples, 1)
	assert.Equal(t, 1, result.Report.Matched)
}

func TestSourceIsFormatted(t *testing.T) {
	for _, name := range []string{"interpreter.go", "resolver.go"} {
		src, err := os.ReadFile(name)
		require.NoError(t, err)
		formatted, err := format.Source(src)
		require.NoError(t, err)
		assert.Equal(t, string(formatted), string(src), name)
	}
}
