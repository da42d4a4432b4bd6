package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/amrrules-interpreter/internal/domain"
)

// EnvPrefix prefixes environment overrides, e.g. AMRRULES_INTERPRET_WORKERS.
const EnvPrefix = "AMRRULES"

// flagKeys maps command-line flag names to configuration keys. Only flags
// present on the bound flag set are wired.
var flagKeys = map[string]string{
	"annot-opts":       "interpret.annotation_level",
	"no-rule-policy":   "interpret.no_rule_policy",
	"flag-core":        "interpret.flag_core_genes",
	"print-non-amr":    "interpret.print_non_amr",
	"full-disrupt":     "interpret.full_disrupt",
	"workers":          "interpret.workers",
	"sample-name":      "interpret.sample_name",
	"organism":         "interpret.organism",
	"organism-file":    "interpret.organism_file",
	"output-dir":       "interpret.output_dir",
	"output-prefix":    "interpret.output_prefix",
	"rules":            "rules.dir",
	"rule-files":       "rules.files",
	"resources-dir":    "resources.dir",
	"amrfp-db-version": "resources.database_release",
	"store-driver":     "store.driver",
	"store-dsn":        "store.dsn",
	"host":             "server.host",
	"port":             "server.port",
	"log-level":        "logging.level",
	"log-format":       "logging.format",
	"cache-size":       "cache.resolver_size",
}

// Options controls where configuration is read from.
type Options struct {
	// ConfigFile is an explicit config file; when empty amrrules.yaml is
	// searched for in the usual locations.
	ConfigFile string
	// Flags, when set, override file and environment values.
	Flags *pflag.FlagSet
	// DataDir overrides DefaultDataDir for derived defaults.
	DataDir string
}

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v      *viper.Viper
	opts   Options
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager(opts Options) (*Manager, error) {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir()
	}
	m := &Manager{opts: opts}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	v := viper.New()
	if m.opts.ConfigFile != "" {
		v.SetConfigFile(m.opts.ConfigFile)
	} else {
		v.SetConfigName("amrrules")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath(m.opts.DataDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, m.opts.DataDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	if m.opts.Flags != nil {
		for name, key := range flagKeys {
			if f := m.opts.Flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if strings.EqualFold(config.Store.Driver, "sqlite") && config.Store.DSN == "" {
		config.Store.DSN = RunsDBPath(m.opts.DataDir)
	}

	m.v = v
	m.config = config
	return nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("interpret.annotation_level", string(domain.AnnotationMinimal))
	v.SetDefault("interpret.no_rule_policy", string(domain.PolicyNonWildtypeR))
	v.SetDefault("interpret.flag_core_genes", false)
	v.SetDefault("interpret.print_non_amr", false)
	v.SetDefault("interpret.full_disrupt", false)
	v.SetDefault("interpret.workers", 4)
	v.SetDefault("interpret.sample_name", "")
	v.SetDefault("interpret.organism", "")
	v.SetDefault("interpret.organism_file", "")
	v.SetDefault("interpret.output_dir", ".")
	v.SetDefault("interpret.output_prefix", "amrrules")

	v.SetDefault("rules.dir", RulesDir(dataDir))
	v.SetDefault("rules.files", []string{})
	v.SetDefault("rules.version", "")

	v.SetDefault("resources.dir", ResourcesDir(dataDir))
	v.SetDefault("resources.database_release", "latest")
	for _, key := range []string{
		"hierarchy_url", "version_url", "card_ontology_url", "card_data_url",
		"hierarchy_file", "version_file", "conversion_file", "drug_class_file",
	} {
		v.SetDefault("resources."+key, "")
	}
	v.SetDefault("resources.timeout", "60s")
	v.SetDefault("resources.rate_limit", 2)

	v.SetDefault("store.driver", "")
	v.SetDefault("store.dsn", "")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_body_bytes", 64<<20)

	v.SetDefault("cache.resolver_size", 4096)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetInterpretConfig returns interpretation settings
func (m *Manager) GetInterpretConfig() *domain.InterpretConfig {
	return &m.config.Interpret
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStoreConfig returns result store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// ConfigFileUsed returns the config file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if _, err := domain.ParseAnnotationLevel(config.Interpret.AnnotationLevel); err != nil {
		return err
	}
	if _, err := domain.ParseNoRulePolicy(config.Interpret.NoRulePolicy); err != nil {
		return err
	}
	if config.Interpret.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d", config.Interpret.Workers)
	}
	if config.Rules.Dir == "" && len(config.Rules.Files) == 0 {
		return fmt.Errorf("rules directory or rule files are required")
	}

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch strings.ToLower(config.Store.Driver) {
	case "", "sqlite", "sqlite3":
	case "postgres", "postgresql", "pgx":
		if config.Store.DSN == "" {
			return fmt.Errorf("store dsn is required for driver %s", config.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s", config.Store.Driver)
	}

	if config.Cache.ResolverSize < 0 {
		return fmt.Errorf("invalid resolver cache size: %d", config.Cache.ResolverSize)
	}

	if _, err := logrus.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	return nil
}
