package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Interpret InterpretConfig `mapstructure:"interpret"`
	Rules     RulesConfig     `mapstructure:"rules"`
	Resources ResourcesConfig `mapstructure:"resources"`
	Store     StoreConfig     `mapstructure:"store"`
	Server    ServerConfig    `mapstructure:"server"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// InterpretConfig controls how markers are matched and summarized.
type InterpretConfig struct {
	AnnotationLevel string `mapstructure:"annotation_level"`
	NoRulePolicy    string `mapstructure:"no_rule_policy"`
	FlagCoreGenes   bool   `mapstructure:"flag_core_genes"`
	PrintNonAMR     bool   `mapstructure:"print_non_amr"`
	FullDisrupt     bool   `mapstructure:"full_disrupt"`
	Workers         int    `mapstructure:"workers"`
	SampleName      string `mapstructure:"sample_name"`
	Organism        string `mapstructure:"organism"`
	OrganismFile    string `mapstructure:"organism_file"`
	OutputDir       string `mapstructure:"output_dir"`
	OutputPrefix    string `mapstructure:"output_prefix"`
}

// RulesConfig locates the rule tables.
type RulesConfig struct {
	Dir     string   `mapstructure:"dir"`
	Files   []string `mapstructure:"files"`
	Version string   `mapstructure:"version"`
}

// ResourcesConfig locates the reference tables and where to fetch them.
type ResourcesConfig struct {
	Dir             string        `mapstructure:"dir"`
	DatabaseRelease string        `mapstructure:"database_release"`
	HierarchyURL    string        `mapstructure:"hierarchy_url"`
	VersionURL      string        `mapstructure:"version_url"`
	CardOntologyURL string        `mapstructure:"card_ontology_url"`
	CardDataURL     string        `mapstructure:"card_data_url"`
	HierarchyFile   string        `mapstructure:"hierarchy_file"`
	VersionFile     string        `mapstructure:"version_file"`
	ConversionFile  string        `mapstructure:"conversion_file"`
	DrugClassFile   string        `mapstructure:"drug_class_file"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
}

// StoreConfig selects where run results are persisted. An empty driver
// disables persistence.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
}

// CacheConfig sizes the in-process resolution cache.
type CacheConfig struct {
	ResolverSize int `mapstructure:"resolver_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
