package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad kind", func(c *Config) { c.Gateway.Kind = "http" }, "gateway.kind"},
		{"cli without command", func(c *Config) { c.Gateway.Command = " " }, "gateway.command"},
		{"snapshot without dir", func(c *Config) { c.Gateway.Kind = "snapshot" }, "gateway.snapshot_dir"},
		{"tiny output ceiling", func(c *Config) { c.Gateway.MaxOutputBytes = 10 }, "gateway.max_output_bytes"},
		{"incomplete fingerprint", func(c *Config) {
			c.Gateway.Fingerprints["Flow"] = FingerprintConfig{Object: "Flow"}
		}, "gateway.fingerprints.Flow"},
		{"no concurrency", func(c *Config) { c.Prefetch.MaxConcurrent = 0 }, "prefetch.max_concurrent"},
		{"no batch", func(c *Config) { c.Prefetch.BatchSize = 0 }, "prefetch.batch_size"},
		{"threshold above one", func(c *Config) { c.Reconcile.CountWarningThreshold = 1.5 }, "reconcile.count_warning_threshold"},
		{"diff tool without placeholders", func(c *Config) { c.Diff.Tool = "meld" }, "diff.tool"},
		{"bad output format", func(c *Config) { c.Output.Format = "xml" }, "output.format"},
		{"bad color", func(c *Config) { c.Output.Color = "sometimes" }, "output.color"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"negative max age", func(c *Config) { c.Store.MaxAge = -time.Second }, "store.max_age"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
gateway:
  kind: snapshot
  snapshot_dir: /srv/snapshots
  timeout: 30s
prefetch:
  max_concurrent: 6
  batch_delay: 1s
diff:
  tool: "code --diff {a} {b}"
store:
  max_age: 1h
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.Gateway.Kind != "snapshot" || cfg.Gateway.Timeout != 30*time.Second {
		t.Errorf("gateway = %+v", cfg.Gateway)
	}
	if cfg.Prefetch.MaxConcurrent != 6 || cfg.Prefetch.BatchDelay != time.Second || cfg.Prefetch.BatchSize != 5 {
		t.Errorf("prefetch = %+v", cfg.Prefetch)
	}
	if cfg.Store.MaxAge != time.Hour {
		t.Errorf("store.max_age = %v", cfg.Store.MaxAge)
	}
	// Unset sections keep their defaults
	if cfg.Gateway.Command != "sf" || cfg.Reconcile.CountWarningThreshold != 0.10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  format: xml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected validation error")
	}
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected read error")
	}
}

func TestSaveToFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Prefetch.BatchDelay = 250 * time.Millisecond
	cfg.Diff.Tool = "vimdiff {a} {b}"
	if err := SaveToFile(cfg, path); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}
	loaded, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if loaded.Prefetch.BatchDelay != cfg.Prefetch.BatchDelay || loaded.Diff.Tool != cfg.Diff.Tool {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	cfg.Store.Path = "/var/lib/metadiff/state.db"
	got, err := cfg.StorePath()
	if err != nil || got != filepath.Clean("/var/lib/metadiff/state.db") {
		t.Errorf("StorePath() = %q, %v", got, err)
	}

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	cfg.Store.Path = ""
	got, err = cfg.StorePath()
	if err != nil || filepath.Base(got) != "state.db" {
		t.Errorf("StorePath() = %q, %v", got, err)
	}
}
