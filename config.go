package pubchem

import (
	"path/filepath"

	"github.com/bachi55/local-pubchem-db/schema"
)

// Config holds all configuration for a database build run.
type Config struct {
	// BaseDir is the directory containing the sdf/ and db/ folders.
	BaseDir string `json:"base_dir" yaml:"base_dir"`

	// DBPath overrides the default db/pubchem.sqlite location under
	// BaseDir.
	DBPath string `json:"db_path" yaml:"db_path"`

	// LayoutPath points at the database layout file (YAML or JSON).
	LayoutPath string `json:"layout_path" yaml:"layout_path"`

	// Layout, when set, is used directly and LayoutPath is ignored.
	Layout *schema.Spec `json:"-" yaml:"-"`

	// Gzip selects *.sdf.gz input instead of plain *.sdf.
	Gzip bool `json:"gzip" yaml:"gzip"`

	// Reset drops and recreates both tables before ingesting.
	Reset bool `json:"reset" yaml:"reset"`

	// MaxAttempts bounds how often a file is retried after a transient
	// storage or read failure. Defaults to 5.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Progress, when set, is invoked after each file finishes, whether
	// committed or permanently failed. done counts finished files.
	Progress func(done, total int, file string) `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with the standard defaults.
func DefaultConfig() Config {
	return Config{
		LayoutPath:  "default_db_layout.yaml",
		MaxAttempts: 5,
	}
}

// resolveDBPath computes the database file location.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.BaseDir, "db", "pubchem.sqlite")
}

// sdfDir returns the directory scanned for source files.
func (c *Config) sdfDir() string {
	return filepath.Join(c.BaseDir, "sdf")
}

// sdfPattern returns the glob matching the configured input flavor.
func (c *Config) sdfPattern() string {
	if c.Gzip {
		return "*.sdf.gz"
	}
	return "*.sdf"
}
