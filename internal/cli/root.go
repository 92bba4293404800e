package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the metadiff command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "metadiff",
		Short: "Compare the metadata of two environments",
		Long: `metadiff compares two environments through the external sf CLI.
It lists which categories and entries exist on either side, uses listing
fingerprints as a hint of equality, and fetches full contents on demand
to confirm differences.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewEnvsCommand())
	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewCategoriesCommand())
	rootCmd.AddCommand(NewEntriesCommand())
	rootCmd.AddCommand(NewFilesCommand())
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewShowCommand())
	rootCmd.AddCommand(NewReviewCommand())
	rootCmd.AddCommand(NewSnapshotCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
