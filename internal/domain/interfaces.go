package domain

import (
	"context"
)

// Normalizer derives the canonical mutation, variation type and display
// marker of a call
type Normalizer interface {
	Normalize(call MarkerCall) (MarkerCall, error)
}

// RuleResolver finds the rules that apply to a normalized call within the
// rule table and hierarchy it was built over
type RuleResolver interface {
	Resolve(call MarkerCall) []Rule
}

// Annotator expands a call and its rules into output records
type Annotator interface {
	Annotate(call MarkerCall, rules []Rule) []AnnotatedRecord
	Passthrough(call MarkerCall) AnnotatedRecord
	Columns() []string
}

// Summarizer aggregates a sample's records per drug and drug class
type Summarizer interface {
	Summarize(sample, organism string, records []AnnotatedRecord) []SummaryEntry
}

// ResourceProvider supplies the reference tables used during interpretation
type ResourceProvider interface {
	Hierarchy(ctx context.Context) (*GeneHierarchy, error)
	DatabaseVersion(ctx context.Context) (string, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetInterpretConfig() *InterpretConfig
	GetServerConfig() *ServerConfig
	GetStoreConfig() *StoreConfig
	Validate() error
}
