package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/store"
)

var errNoStore = errors.New("no run store configured, set --store-driver or store.driver")

func newRunsCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored interpretation runs",
		Long: `Inspect interpretation runs saved by "interpret" and "serve" when a run store
is configured.

Examples:
  amrrules runs list --store-driver sqlite
  amrrules runs show <run-id>
  amrrules runs export --output runs.json
  amrrules runs import runs.json`,
	}
	cmd.PersistentFlags().String("store-driver", "", "run store driver: sqlite or postgres")
	cmd.PersistentFlags().String("store-dsn", "", "run store path (sqlite) or connection URL (postgres)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: withStore(version, func(cmd *cobra.Command, args []string, s store.Store) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			runs, err := s.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			total, err := s.Count(cmd.Context())
			if err != nil {
				return err
			}
			return printRuns(cmd.OutOrStdout(), runs, total)
		}),
	}
	list.Flags().Int("limit", 20, "maximum runs to show")
	list.Flags().Int("offset", 0, "runs to skip")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(version, func(cmd *cobra.Command, args []string, s store.Store) error {
			run, err := s.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		}),
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Export every stored run as JSON",
		Args:  cobra.NoArgs,
		RunE: withStore(version, func(cmd *cobra.Command, args []string, s store.Store) error {
			output, _ := cmd.Flags().GetString("output")
			if output == "" || output == "-" {
				return s.ExportJSON(cmd.Context(), cmd.OutOrStdout())
			}
			return writeFile(output, func(w io.Writer) error {
				return s.ExportJSON(cmd.Context(), w)
			})
		}),
	}
	export.Flags().String("output", "", "file to write (default stdout)")

	imp := &cobra.Command{
		Use:   "import <file>",
		Short: "Import runs from a JSON export, skipping known run IDs",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(version, func(cmd *cobra.Command, args []string, s store.Store) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open export: %w", err)
			}
			defer f.Close()
			imported, skipped, err := s.ImportJSON(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs, skipped %d already present\n", imported, skipped)
			return nil
		}),
	}

	del := &cobra.Command{
		Use:   "delete <run-id>",
		Short: "Delete a stored run",
		Args:  cobra.ExactArgs(1),
		RunE: withStore(version, func(cmd *cobra.Command, args []string, s store.Store) error {
			if _, err := s.Get(cmd.Context(), args[0]); err != nil {
				return err
			}
			return s.Delete(cmd.Context(), args[0])
		}),
	}

	cmd.AddCommand(list, show, export, imp, del)
	return cmd
}

type storeRunE func(cmd *cobra.Command, args []string, s store.Store) error

func withStore(version string, fn storeRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, version)
		if err != nil {
			return err
		}
		s, err := a.openStore()
		if err != nil {
			return err
		}
		if s == nil {
			return errNoStore
		}
		defer s.Close()
		return fn(cmd, args, s)
	}
}

func printRuns(w io.Writer, runs []*store.Run, total int64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCREATED\tSAMPLES\tMATCHED\tUNMATCHED\tRULES\tDATABASE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Samples, r.Matched, r.Unmatched,
			r.RulesetVersion, r.DatabaseVersion)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d of %d runs\n", len(runs), total)
	return err
}
