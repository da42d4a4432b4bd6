package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/rules"
)

func newOrganismsCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organisms",
		Short: "List the organisms that have a rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, version)
			if err != nil {
				return err
			}
			organisms, err := rules.SupportedOrganisms(a.cfg.Rules.Dir)
			if err != nil {
				return err
			}
			for _, o := range organisms {
				fmt.Fprintln(cmd.OutOrStdout(), o)
			}
			return nil
		},
	}
	cmd.Flags().StringP("rules", "r", "", "directory of AMRrules tables")
	return cmd
}
