package config

import "fmt"

// StoreConfig selects the persistence backend and the optional archive.
type StoreConfig struct {
	// Backend selects the store type: "memory" or "sqlite".
	Backend string `json:"backend"`
	// Path is the SQLite file location. Ignored by the memory backend.
	Path string `json:"path"`
	// Archive configures the write-through JSONL audit trail.
	Archive ArchiveConfig `json:"archive"`
}

// ArchiveConfig defines settings for the rotating JSONL archive.
type ArchiveConfig struct {
	Enabled bool `json:"enabled"`
	// Dir is the directory holding telemetry.jsonl and commands.jsonl.
	Dir string `json:"dir"`
	// MaxSizeMB triggers rotation when a file exceeds this size in megabytes.
	MaxSizeMB int `json:"max_size_mb"`
	// MaxBackups limits the number of rotated files to keep.
	MaxBackups int `json:"max_backups"`
	// MaxAgeDays removes rotated files older than this number of days.
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.Path == "" {
		c.Path = "fleetguard.db"
	}
	if c.Archive.Dir == "" {
		c.Archive.Dir = "archive"
	}
	if c.Archive.MaxSizeMB <= 0 {
		c.Archive.MaxSizeMB = 100
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Backend != "memory" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown backend %s", c.Backend)
	}
	if c.Backend == "sqlite" && c.Path == "" {
		return fmt.Errorf("sqlite backend requires path")
	}
	return nil
}
