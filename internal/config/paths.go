package config

import (
	"os"
	"path/filepath"
)

// DefaultDataDir is where rules, resources and the run database live when
// nothing else is configured.
func DefaultDataDir() string {
	if v := os.Getenv(EnvPrefix + "_DATA_DIR"); v != "" {
		return v
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".amrrules"
	}
	return filepath.Join(homeDir, ".amrrules")
}

// RulesDir returns the rule table directory under dataDir.
func RulesDir(dataDir string) string {
	return filepath.Join(dataDir, "rules")
}

// ResourcesDir returns the reference table directory under dataDir.
func ResourcesDir(dataDir string) string {
	return filepath.Join(dataDir, "resources")
}

// RunsDBPath returns the SQLite run database path under dataDir.
func RunsDBPath(dataDir string) string {
	return filepath.Join(dataDir, "runs.db")
}
