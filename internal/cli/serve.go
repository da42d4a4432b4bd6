package cli

import (
	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/api"
	"github.com/amrrules-interpreter/internal/resources"
)

func newServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interpreter over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, version)
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
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if s != nil {
				defer s.Close()
			}

			server := api.NewServer(a.logger, a.cfg.Server, api.Dependencies{
				Rules:     table,
				Catalog:   catalog,
				Resources: provider,
				Options:   a.interpreterOptions(),
				Organism:  a.cfg.Interpret.Organism,
				Store:     s,
			})
			return server.Start(cmd.Context())
		},
	}
	cmd.Flags().String("host", "", "listen address")
	cmd.Flags().Int("port", 0, "listen port")
	cmd.Flags().StringP("organism", "o", "", "default organism for requests that name none")
	cmd.Flags().StringP("annot-opts", "a", "", "rule columns to add: minimal or full")
	cmd.Flags().String("no-rule-policy", "", "category for markers without a rule: nwtR or nwtS")
	cmd.Flags().Bool("flag-core", false, "append (core) to core genes in summaries")
	cmd.Flags().IntP("workers", "w", 0, "samples interpreted in parallel per request")
	addRuleFlags(cmd)
	addStoreFlags(cmd)
	return cmd
}
