package config

import (
	"strings"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
)

// Config represents the application configuration
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Prefetch  PrefetchConfig  `yaml:"prefetch"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Diff      DiffConfig      `yaml:"diff"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Store     StoreConfig     `yaml:"store"`
}

// GatewayConfig holds settings of the remote listing gateway
type GatewayConfig struct {
	Kind                string                       `yaml:"kind"`    // "cli" or "snapshot"
	Command             string                       `yaml:"command"` // External CLI executable
	Timeout             time.Duration                `yaml:"timeout"`
	MaxOutputBytes      int64                        `yaml:"max_output_bytes"`
	SnapshotDir         string                       `yaml:"snapshot_dir"`
	TempDir             string                       `yaml:"temp_dir"` // Materialization root (empty = system temp)
	CompositeCategories []string                     `yaml:"composite_categories"`
	Fingerprints        map[string]FingerprintConfig `yaml:"fingerprints"`
	UnsupportedMarkers  []string                     `yaml:"unsupported_markers"` // Extra error markers for unsupported categories
}

// FingerprintConfig names the tooling object and field queried for a
// category's fingerprints
type FingerprintConfig struct {
	Object string `yaml:"object"`
	Field  string `yaml:"field"`
}

// PrefetchConfig holds bulk prefetch pacing
type PrefetchConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent"`
	BatchSize     int           `yaml:"batch_size"`
	BatchDelay    time.Duration `yaml:"batch_delay"`
	MaxPerSecond  int64         `yaml:"max_per_second"` // 0 = unlimited
}

// ReconcileConfig holds settings used when presenting reconciled lists
type ReconcileConfig struct {
	CountWarningThreshold float64  `yaml:"count_warning_threshold"`
	Exclude               []string `yaml:"exclude"` // Category patterns skipped when reviewing all categories
}

// DiffConfig holds the external diff tool settings
type DiffConfig struct {
	Tool string `yaml:"tool"` // Command template with {a} and {b} placeholders
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Color    string `yaml:"color"`    // "auto", "always" or "never"
	Progress bool   `yaml:"progress"` // Show progress bars
	Style    string `yaml:"style"`    // Syntax highlighting style
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = stderr)
}

// StoreConfig holds local state settings
type StoreConfig struct {
	Path   string        `yaml:"path"`    // SQLite file (empty = data directory)
	MaxAge time.Duration `yaml:"max_age"` // Environment list freshness
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Kind:           "cli",
			Command:        "sf",
			Timeout:        2 * time.Minute,
			MaxOutputBytes: 64 << 20,
			CompositeCategories: []string{
				"AuraDefinitionBundle",
				"ExperienceBundle",
				"LightningComponentBundle",
				"WaveTemplateBundle",
			},
			Fingerprints: map[string]FingerprintConfig{
				"ApexClass":   {Object: "ApexClass", Field: "LengthWithoutComments"},
				"ApexTrigger": {Object: "ApexTrigger", Field: "LengthWithoutComments"},
			},
		},
		Prefetch: PrefetchConfig{
			MaxConcurrent: 3,
			BatchSize:     5,
			BatchDelay:    500 * time.Millisecond,
		},
		Reconcile: ReconcileConfig{
			CountWarningThreshold: 0.10,
		},
		Output: OutputConfig{
			Format:   "human",
			Color:    "auto",
			Progress: true,
			Style:    "monokai",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Format:  "text",
			Level:   "info",
			File:    "",
		},
		Store: StoreConfig{
			MaxAge: 24 * time.Hour,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validKinds := map[string]bool{"cli": true, "snapshot": true}
	if !validKinds[c.Gateway.Kind] {
		return &models.ValidationError{
			Field:   "gateway.kind",
			Message: "must be 'cli' or 'snapshot'",
		}
	}

	if c.Gateway.Kind == "cli" && strings.TrimSpace(c.Gateway.Command) == "" {
		return &models.ValidationError{
			Field:   "gateway.command",
			Message: "is required for the cli gateway",
		}
	}

	if c.Gateway.Kind == "snapshot" && strings.TrimSpace(c.Gateway.SnapshotDir) == "" {
		return &models.ValidationError{
			Field:   "gateway.snapshot_dir",
			Message: "is required for the snapshot gateway",
		}
	}

	if c.Gateway.Timeout < 0 {
		return &models.ValidationError{
			Field:   "gateway.timeout",
			Message: "must not be negative",
		}
	}

	if c.Gateway.MaxOutputBytes < 1024 {
		return &models.ValidationError{
			Field:   "gateway.max_output_bytes",
			Message: "must be at least 1024 bytes",
		}
	}

	for cat, fp := range c.Gateway.Fingerprints {
		if fp.Object == "" || fp.Field == "" {
			return &models.ValidationError{
				Field:   "gateway.fingerprints." + cat,
				Message: "object and field are required",
			}
		}
	}

	if c.Prefetch.MaxConcurrent < 1 {
		return &models.ValidationError{
			Field:   "prefetch.max_concurrent",
			Message: "must be at least 1",
		}
	}

	if c.Prefetch.BatchSize < 1 {
		return &models.ValidationError{
			Field:   "prefetch.batch_size",
			Message: "must be at least 1",
		}
	}

	if c.Prefetch.BatchDelay < 0 || c.Prefetch.MaxPerSecond < 0 {
		return &models.ValidationError{
			Field:   "prefetch",
			Message: "batch_delay and max_per_second must not be negative",
		}
	}

	if c.Reconcile.CountWarningThreshold < 0 || c.Reconcile.CountWarningThreshold > 1 {
		return &models.ValidationError{
			Field:   "reconcile.count_warning_threshold",
			Message: "must be between 0 and 1",
		}
	}

	if c.Diff.Tool != "" && (!strings.Contains(c.Diff.Tool, "{a}") || !strings.Contains(c.Diff.Tool, "{b}")) {
		return &models.ValidationError{
			Field:   "diff.tool",
			Message: "must contain both {a} and {b} placeholders",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validColors := map[string]bool{"auto": true, "always": true, "never": true}
	if !validColors[c.Output.Color] {
		return &models.ValidationError{
			Field:   "output.color",
			Message: "must be 'auto', 'always', or 'never'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &models.ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	if c.Store.MaxAge < 0 {
		return &models.ValidationError{
			Field:   "store.max_age",
			Message: "must not be negative",
		}
	}

	return nil
}
