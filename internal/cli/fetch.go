package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/resources"
)

func newFetchCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the AMRFinderPlus gene hierarchy and database version",
		Long: `Download ReferenceGeneHierarchy.txt and version.txt from the AMRFinderPlus
database FTP into the resources directory. With --card, also rebuild the drug
to drug class table from the CARD ontology.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, version)
			if err != nil {
				return err
			}
			fetcher := resources.NewFetcher(a.logger, a.cfg.Resources)

			dbVersion, err := fetcher.FetchAMRFinderPlus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "AMRFinderPlus database version: %s\n", dbVersion)

			if card, _ := cmd.Flags().GetBool("card"); card {
				n, err := fetcher.FetchCARD(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "CARD drug classes: %d drugs\n", n)
			}
			return nil
		},
	}
	cmd.Flags().String("resources-dir", "", "directory to write the reference tables to")
	cmd.Flags().String("amrfp-db-version", "", "AMRFinderPlus database release to fetch (default latest)")
	cmd.Flags().Bool("card", false, "also rebuild the CARD drug class table")
	return cmd
}
