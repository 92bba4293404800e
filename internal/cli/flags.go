package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
	Output     string
	Color      string
	Snapshot   string
	// Logging flags
	LogFile   string
	LogFormat string
	LogLevel  string
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file (default is $HOME/.config/metadiff/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"log debug output to stderr",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress progress output",
	)
	cmd.PersistentFlags().StringVarP(&globalFlags.Output, "output", "o", "", "output format: human, json")
	cmd.PersistentFlags().StringVar(&globalFlags.Color, "color", "", "color output: auto, always, never")
	cmd.PersistentFlags().StringVar(&globalFlags.Snapshot, "snapshot", "", "read environments from snapshot directory instead of the CLI")

	// Logging flags
	cmd.PersistentFlags().StringVar(&globalFlags.LogFile, "log-file", "", "write logs to file (enables logging)")
	cmd.PersistentFlags().StringVar(&globalFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.PersistentFlags().StringVar(&globalFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// PairFlags holds the environment pair of session commands
type PairFlags struct {
	EnvA string
	EnvB string
}

// pairFlagSet returns the flag set shared by every command working on an
// environment pair
func pairFlagSet(p *PairFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet("pair", pflag.ContinueOnError)
	fs.StringVarP(&p.EnvA, "env-a", "A", "", "alias of environment A (default: last validated pair)")
	fs.StringVarP(&p.EnvB, "env-b", "B", "", "alias of environment B (default: last validated pair)")
	return fs
}
