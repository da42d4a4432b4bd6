package cli

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amrrules-interpreter/internal/resources"
)

var ruleHeader = []string{
	"ruleID", "organism", "gene", "nodeID", "protein accession", "HMM accession",
	"nucleotide accession", "ARO accession", "mutation", "variation type", "gene context",
	"drug", "drug class", "phenotype", "clinical category", "evidence grade", "PMID",
}

const markerInput = "Name\tElement symbol\tElement name\tType\tSubtype\tClass\tSubclass\tMethod\tClosest reference accession\tHMM accession\tHierarchy node\n" +
	"S1\tblaTEM-1\tbeta-lactamase TEM-1\tAMR\tAMR\tBETA-LACTAM\tBETA-LACTAM\tEXACTX\tWP_000027057.1\tNA\tblaTEM-1\n" +
	"S1\tfosA\tfosfomycin resistance\tAMR\tAMR\tFOSFOMYCIN\tFOSFOMYCIN\tEXACTX\tWP_000000001.1\tNA\tfosA\n"

type testEnv struct {
	dataDir  string
	rulesDir string
	input    string
	outDir   string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dataDir := t.TempDir()
	t.Setenv("AMRRULES_DATA_DIR", dataDir)

	rulesDir := filepath.Join(dataDir, "rules")
	require.NoError(t, os.MkdirAll(rulesDir, 0o755))
	rule := []string{
		"ECO0001", "s__Escherichia coli", "blaTEM", "blaTEM-1", "-", "-", "-", "-", "-",
		"Gene presence detected", "acquired", "ampicillin", "-", "nonwildtype", "R", "high", "-",
	}
	text := strings.Join(ruleHeader, "\t") + "\n" + strings.Join(rule, "\t") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "Escherichia_coli.txt"), []byte(text), 0o644))

	input := filepath.Join(dataDir, "amrfp.tsv")
	require.NoError(t, os.WriteFile(input, []byte(markerInput), 0o644))

	return testEnv{dataDir: dataDir, rulesDir: rulesDir, input: input, outDir: filepath.Join(dataDir, "out")}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("1.2.3")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInterpret_WritesOutputs(t *testing.T) {
	env := newTestEnv(t)

	out, err := execute(t, "interpret",
		"-i", env.input,
		"-o", "s__Escherichia coli",
		"-p", "sample1",
		"-d", env.outDir,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "1 hits matched a rule and 1 hits did not match a rule")

	interpreted, err := os.ReadFile(filepath.Join(env.outDir, "sample1_interpreted.tsv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(interpreted)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "ruleID")
	assert.Contains(t, lines[1], "ECO0001")
	assert.Contains(t, lines[1], "1.2.3")

	summary, err := os.ReadFile(filepath.Join(env.outDir, "sample1_summary.tsv"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "S1\tampicillin\t")
	assert.Contains(t, string(summary), "fosA")
}

func TestInterpret_RequiresOrganism(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "interpret", "-i", env.input, "-d", env.outDir)
	assert.ErrorContains(t, err, "no organism")
}

func TestInterpret_InvalidAnnotationLevel(t *testing.T) {
	env := newTestEnv(t)
	_, err := execute(t, "interpret", "-i", env.input, "-o", "s__Escherichia coli", "-a", "verbose")
	assert.ErrorContains(t, err, "invalid annotation level")
}

func TestInterpret_OrganismFileAndStore(t *testing.T) {
	env := newTestEnv(t)
	orgFile := filepath.Join(env.dataDir, "organisms.tsv")
	require.NoError(t, os.WriteFile(orgFile, []byte("sample\torganism\nS1\ts__Escherichia coli\n"), 0o644))

	_, err := execute(t, "interpret",
		"-i", env.input,
		"--organism-file", orgFile,
		"-d", env.outDir,
		"--store-driver", "sqlite",
	)
	require.NoError(t, err)

	out, err := execute(t, "runs", "list", "--store-driver", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "1 of 1 runs")
	assert.Contains(t, out, "1.2.3")

	exportPath := filepath.Join(env.dataDir, "export.json")
	_, err = execute(t, "runs", "export", "--store-driver", "sqlite", "--output", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ampicillin"`)

	out, err = execute(t, "runs", "import", exportPath, "--store-driver", "sqlite")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 runs, skipped 1")
}

func TestRuns_WithoutStore(t *testing.T) {
	newTestEnv(t)
	_, err := execute(t, "runs", "list")
	assert.ErrorIs(t, err, errNoStore)
}

func TestOrganisms(t *testing.T) {
	newTestEnv(t)
	out, err := execute(t, "organisms")
	require.NoError(t, err)
	assert.Equal(t, "Escherichia_coli\n", out)
}

func TestFetch(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/" + resources.HierarchyFileName:
			_, _ = w.Write([]byte("node_id\tparent_node_id\nblaTEM-1\tblaTEM\n"))
		case "/" + resources.VersionFileName:
			_, _ = w.Write([]byte("2024-07-22.1\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv("AMRRULES_RESOURCES_HIERARCHY_URL", srv.URL+"/"+resources.HierarchyFileName)
	t.Setenv("AMRRULES_RESOURCES_VERSION_URL", srv.URL+"/"+resources.VersionFileName)

	resDir := filepath.Join(env.dataDir, "res")
	out, err := execute(t, "fetch", "--resources-dir", resDir)
	require.NoError(t, err)
	assert.Contains(t, out, "2024-07-22.1")

	_, err = os.Stat(filepath.Join(resDir, resources.HierarchyFileName))
	assert.NoError(t, err)
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.2.3")
}
