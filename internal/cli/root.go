// Package cli implements the amrrules command line.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amrrules-interpreter/internal/config"
	"github.com/amrrules-interpreter/internal/domain"
	"github.com/amrrules-interpreter/internal/logging"
	"github.com/amrrules-interpreter/internal/resources"
	"github.com/amrrules-interpreter/internal/rules"
	"github.com/amrrules-interpreter/internal/service"
	"github.com/amrrules-interpreter/internal/store"
)

// NewRootCommand builds the amrrules command tree. version is reported by
// --version and fills the version column when no rule set version is
// configured.
func NewRootCommand(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "amrrules",
		Short: "Interpret AMRFinderPlus genotypes with AMRrules",
		Long: `amrrules applies organism-specific AMRrules to AMRFinderPlus output and
reports a clinical category and evidence grade per marker, drug and drug class.

Examples:
  amrrules fetch                                  # Download reference tables
  amrrules interpret -i amrfp.tsv -o "s__Escherichia coli" -p sample1
  amrrules organisms                              # List organisms with rules
  amrrules serve --port 8080                      # Start the HTTP API
  amrrules runs list --store-driver sqlite        # List stored runs`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file (default amrrules.yaml in ., ./config or the data directory)")
	flags.String("data-dir", "", "base directory for rules, resources and the run database (default ~/.amrrules)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")

	root.AddCommand(
		newInterpretCommand(version),
		newFetchCommand(version),
		newServeCommand(version),
		newRunsCommand(version),
		newOrganismsCommand(version),
	)
	return root
}

// app carries the configuration and logger shared by one command run.
type app struct {
	version string
	cfg     *domain.Config
	logger  *logrus.Logger
}

func loadApp(cmd *cobra.Command, version string) (*app, error) {
	configFile, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	mgr, err := config.NewManager(config.Options{
		ConfigFile: configFile,
		Flags:      cmd.Flags(),
		DataDir:    dataDir,
	})
	if err != nil {
		return nil, err
	}
	if err := mgr.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := mgr.GetConfig()
	logger, err := logging.NewWithOutput(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	if used := mgr.ConfigFileUsed(); used != "" {
		logger.WithField("file", used).Debug("Configuration loaded")
	}
	return &app{version: version, cfg: cfg, logger: logger}, nil
}

func (a *app) loadRules() (*domain.RuleTable, error) {
	loader := rules.NewLoader(a.logger)
	if len(a.cfg.Rules.Files) > 0 {
		return loader.LoadFiles(a.cfg.Rules.Files...)
	}
	return loader.LoadDir(a.cfg.Rules.Dir)
}

func (a *app) rulesetVersion() string {
	if a.cfg.Rules.Version != "" {
		return a.cfg.Rules.Version
	}
	return a.version
}

// organisms builds the sample to organism assignment from the organism
// flag and the optional mapping file.
func (a *app) organisms() (domain.OrganismAssignment, error) {
	ic := a.cfg.Interpret
	if ic.OrganismFile == "" {
		if ic.Organism == "" {
			return domain.OrganismAssignment{}, fmt.Errorf("%w: use --organism or --organism-file", domain.ErrNoOrganism)
		}
		return domain.NewOrganismAssignment(ic.Organism, nil)
	}
	f, err := os.Open(ic.OrganismFile)
	if err != nil {
		return domain.OrganismAssignment{}, fmt.Errorf("failed to open organism file: %w", err)
	}
	defer f.Close()
	return resources.ReadOrganismMap(f, ic.Organism)
}

func (a *app) interpreterOptions() service.InterpreterOptions {
	ic := a.cfg.Interpret
	// Validate has already checked both values.
	level, _ := domain.ParseAnnotationLevel(ic.AnnotationLevel)
	policy, _ := domain.ParseNoRulePolicy(ic.NoRulePolicy)
	return service.InterpreterOptions{
		Level:          level,
		Policy:         policy,
		FlagCoreGenes:  ic.FlagCoreGenes,
		PrintNonAMR:    ic.PrintNonAMR,
		FullDisrupt:    ic.FullDisrupt,
		Workers:        ic.Workers,
		CacheSize:      a.cfg.Cache.ResolverSize,
		RulesetVersion: a.rulesetVersion(),
	}
}

// openStore opens the configured run store, or returns nil when none is
// configured.
func (a *app) openStore() (store.Store, error) {
	if strings.TrimSpace(a.cfg.Store.Driver) == "" {
		return nil, nil
	}
	s, err := store.Open(a.cfg.Store, a.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return s, nil
}

func addStoreFlags(cmd *cobra.Command) {
	cmd.Flags().String("store-driver", "", "run store driver: sqlite or postgres")
	cmd.Flags().String("store-dsn", "", "run store path (sqlite) or connection URL (postgres)")
}

func addRuleFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("rules", "r", "", "directory of AMRrules tables")
	cmd.Flags().StringSlice("rule-files", nil, "explicit rule table files, overriding --rules")
	cmd.Flags().String("resources-dir", "", "directory holding the reference tables")
}
