package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sdejongh/metadiff/pkg/config"
	"github.com/sdejongh/metadiff/pkg/filter"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/store"
)

// validateGlobalFlags validates flag values before they override the config
func validateGlobalFlags() error {
	validFormats := map[string]bool{
		"":      true,
		"human": true,
		"json":  true,
	}
	if !validFormats[globalFlags.Output] {
		return fmt.Errorf("invalid output format: %s (valid: human, json)", globalFlags.Output)
	}

	validColors := map[string]bool{
		"":       true,
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if !validColors[globalFlags.Color] {
		return fmt.Errorf("invalid color mode: %s (valid: auto, always, never)", globalFlags.Color)
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config) {
	// Offline snapshot gateway
	if globalFlags.Snapshot != "" {
		cfg.Gateway.Kind = "snapshot"
		cfg.Gateway.SnapshotDir = globalFlags.Snapshot
	}

	// Output format
	if globalFlags.Output != "" {
		cfg.Output.Format = globalFlags.Output
	}
	if globalFlags.Color != "" {
		cfg.Output.Color = globalFlags.Color
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
	}

	// A log file enables logging
	if globalFlags.LogFile != "" {
		cfg.Logging.Enabled = true
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = globalFlags.LogFormat
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = globalFlags.LogLevel
	}
}

// resolvePair completes the pair from the flags with the last validated
// pair stored locally. db may be nil.
func resolvePair(ctx context.Context, flags PairFlags, db *store.DB) (models.EnvironmentPair, error) {
	pair := models.EnvironmentPair{A: flags.EnvA, B: flags.EnvB}
	if (pair.A == "" || pair.B == "") && db != nil {
		last, err := db.LastPair(ctx)
		if err != nil {
			return pair, err
		}
		if pair.A == "" {
			pair.A = last.A
		}
		if pair.B == "" {
			pair.B = last.B
		}
	}
	if err := pair.Validate(); err != nil {
		return pair, fmt.Errorf("%w (use --env-a and --env-b, or run validate first)", err)
	}
	return pair, nil
}

// parseComponentRef accepts either one "Category:Name" argument or the
// category and name as two arguments
func parseComponentRef(args []string) (category, entry string, err error) {
	switch len(args) {
	case 1:
		var ok bool
		category, entry, ok = models.SplitComponentRef(args[0])
		if !ok {
			return "", "", fmt.Errorf("invalid component reference %q (expected Category:Name)", args[0])
		}
	case 2:
		category, entry = args[0], args[1]
	default:
		return "", "", errors.New("expected Category:Name or Category Name")
	}
	if strings.TrimSpace(category) == "" || strings.TrimSpace(entry) == "" {
		return "", "", fmt.Errorf("category and entry name are required")
	}
	return category, entry, nil
}

// parseCriteria builds filter criteria from the entries command flags
func parseCriteria(pattern string, presence, hints []string, ranked bool) (filter.Criteria, error) {
	c := filter.Criteria{Pattern: pattern, Ranked: ranked}
	for _, p := range presence {
		value, ok := filter.ParsePresence(p)
		if !ok {
			return c, fmt.Errorf("invalid presence: %s (valid: A_ONLY, B_ONLY, BOTH)", p)
		}
		c.Presence = append(c.Presence, value)
	}
	for _, h := range hints {
		value, ok := filter.ParseHint(h)
		if !ok {
			return c, fmt.Errorf("invalid hint: %s (valid: LIKELY_EQUAL, LIKELY_DIFFERENT, UNKNOWN)", h)
		}
		c.Hints = append(c.Hints, value)
	}
	return c, nil
}
