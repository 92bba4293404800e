package cli

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/metadiff/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View or modify metadiff configuration.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			applyFlagsToConfig(cfg)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Gateway: %s\n", cfg.Gateway.Kind)
			if cfg.Gateway.Kind == "snapshot" {
				fmt.Fprintf(w, "Snapshot Directory: %s\n", cfg.Gateway.SnapshotDir)
			} else {
				fmt.Fprintf(w, "Command: %s\n", cfg.Gateway.Command)
				fmt.Fprintf(w, "Timeout: %s\n", cfg.Gateway.Timeout)
			}
			fmt.Fprintf(w, "Bundle Categories: %s\n", strings.Join(cfg.Gateway.CompositeCategories, ", "))
			fingerprinted := make([]string, 0, len(cfg.Gateway.Fingerprints))
			for name := range cfg.Gateway.Fingerprints {
				fingerprinted = append(fingerprinted, name)
			}
			sort.Strings(fingerprinted)
			fmt.Fprintf(w, "Fingerprinted Categories: %s\n", strings.Join(fingerprinted, ", "))
			fmt.Fprintf(w, "Prefetch: %d concurrent, batches of %d every %s\n",
				cfg.Prefetch.MaxConcurrent, cfg.Prefetch.BatchSize, cfg.Prefetch.BatchDelay)
			fmt.Fprintf(w, "Diff Tool: %s\n", valueOr(cfg.Diff.Tool, "(unified diff)"))
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)
			if path, err := cfg.StorePath(); err == nil {
				fmt.Fprintf(w, "Store: %s (environments kept %s)\n", path, cfg.Store.MaxAge)
			}

			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
			}

			cfg := config.Default()
			if err := config.SaveToFile(cfg, path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")

	return cmd
}

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
