package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/internal/resources"
	"github.com/amrrules-interpreter/internal/service"
	"github.com/amrrules-interpreter/internal/store"
	"github.com/amrrules-interpreter/internal/tsvio"
)

func newInterpretCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Annotate an AMRFinderPlus table and summarize it per drug",
		Long: `Annotate every marker in an AMRFinderPlus table with the matching AMRrules
and summarize the calls per sample, drug and drug class.

Writes <prefix>_interpreted.tsv and <prefix>_summary.tsv to the output directory.
Use "-" as input to read from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterpret(cmd, version)
		},
	}

	f := cmd.Flags()
	f.StringP("input", "i", "", "AMRFinderPlus output table (required)")
	f.StringP("organism", "o", "", "organism for every sample, e.g. \"s__Escherichia coli\"")
	f.String("organism-file", "", "tab-separated sample to organism table (columns: sample, organism)")
	f.String("sample-name", "", "sample name to use instead of the Name column")
	f.StringP("output-prefix", "p", "", "prefix for output files")
	f.StringP("output-dir", "d", "", "directory for output files")
	f.StringP("annot-opts", "a", "", "rule columns to add: minimal or full")
	f.String("no-rule-policy", "", "category for markers without a rule: nwtR or nwtS")
	f.Bool("flag-core", false, "append (core) to core genes in summaries")
	f.Bool("print-non-amr", false, "copy non-AMR rows into the interpreted output")
	f.Bool("full-disrupt", false, "report the full mutation for POINT_DISRUPT calls")
	f.IntP("workers", "w", 0, "samples interpreted in parallel")
	f.Int("cache-size", 0, "resolver cache entries")
	addRuleFlags(cmd)
	addStoreFlags(cmd)
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runInterpret(cmd *cobra.Command, version string) error {
	a, err := loadApp(cmd, version)
	if err != nil {
		return err
	}

	organisms, err := a.organisms()
	if err != nil {
		return err
	}
	table, err := a.loadRules()
	if err != nil {
		return err
	}
	provider := resources.NewProvider(a.logger, a.cfg.Resources)
	catalog, err := provider.Catalog()
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	markers, err := readMarkerInput(cmd, input, a.cfg.Interpret.SampleName)
	if err != nil {
		return err
	}

	interp := service.NewInterpreter(a.logger, table, catalog, provider, organisms, a.interpreterOptions())
	result, err := interp.Run(cmd.Context(), markers.Calls)
	if err != nil {
		return err
	}

	interpretedPath, summaryPath, err := writeOutputs(a.cfg.Interpret, markers.Header, result)
	if err != nil {
		return err
	}

	if err := saveRun(cmd, a, result); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, result.Report.String())
	for _, f := range result.Report.FailedSamples {
		fmt.Fprintf(out, "Sample %s not interpreted: %s\n", f.Sample, f.Reason)
	}
	if n := len(result.Report.Skipped); n > 0 {
		fmt.Fprintf(out, "%d records skipped, see the log for details\n", n)
	}
	fmt.Fprintf(out, "Interpreted output: %s\nSummary output: %s\n", interpretedPath, summaryPath)
	return nil
}

func readMarkerInput(cmd *cobra.Command, input, sampleName string) (*tsvio.MarkerTable, error) {
	var r io.Reader
	if input == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	markers, err := tsvio.ReadMarkers(r, tsvio.MarkerReaderOptions{SampleName: sampleName})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", input, err)
	}
	return markers, nil
}

func writeOutputs(ic domain.InterpretConfig, header []string, result *service.RunResult) (string, string, error) {
	if err := os.MkdirAll(ic.OutputDir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create output directory: %w", err)
	}
	interpretedPath := filepath.Join(ic.OutputDir, ic.OutputPrefix+"_interpreted.tsv")
	summaryPath := filepath.Join(ic.OutputDir, ic.OutputPrefix+"_summary.tsv")

	if err := writeFile(interpretedPath, func(w io.Writer) error {
		return tsvio.WriteInterpreted(w, header, result.Columns, result.Records())
	}); err != nil {
		return "", "", err
	}
	if err := writeFile(summaryPath, func(w io.Writer) error {
		return tsvio.WriteSummary(w, result.Summaries())
	}); err != nil {
		return "", "", err
	}
	return interpretedPath, summaryPath, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func saveRun(cmd *cobra.Command, a *app, result *service.RunResult) error {
	s, err := a.openStore()
	if err != nil || s == nil {
		return err
	}
	defer s.Close()

	run := store.NewRun(result.Report, result.Summaries())
	if err := s.Save(cmd.Context(), run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	a.logger.WithFields(logrus.Fields{
		"run_id": run.ID,
		"driver": a.cfg.Store.Driver,
	}).Info("Run saved")
	return nil
}
