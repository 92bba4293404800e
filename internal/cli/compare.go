package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
	"github.com/sdejongh/metadiff/pkg/session"
)

// CompareFlags holds compare and show command flags
type CompareFlags struct {
	Pair     PairFlags
	File     string
	Tool     bool
	Content  bool
	Side     string
	ToolPath string
}

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	var flags CompareFlags

	cmd := &cobra.Command{
		Use:   "compare Category:Name",
		Short: "Compare the content of one entry in both environments",
		Long: `Fetch the full content of one entry from both environments and report
whether they are identical. Differences are shown as a unified diff, or in
the external diff tool configured as diff.tool when --tool is given.
The comparison is recorded in the review list of the session.`,
		Example: `  metadiff compare ApexClass:AccountService
  metadiff compare AuraDefinitionBundle:header --file aura/header/header.cmp --tool`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, entry, err := parseComponentRef(args)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{ShowContent: flags.Content})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, flags.Pair)
			if err != nil {
				return err
			}
			defer s.Close()

			return runCompare(ctx, a, s, category, entry, flags)
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&flags.Pair))
	cmd.Flags().StringVarP(&flags.File, "file", "f", "", "member file of a bundle entry")
	cmd.Flags().BoolVarP(&flags.Tool, "tool", "t", false, "open the differences in the configured diff tool")
	cmd.Flags().StringVar(&flags.ToolPath, "diff-tool", "", "diff tool command with {a} and {b} placeholders (overrides diff.tool)")
	cmd.Flags().BoolVar(&flags.Content, "content", false, "include raw contents in JSON output")

	return cmd
}

func runCompare(ctx context.Context, a *app, s *session.Session, category, entry string, flags CompareFlags) error {
	result, err := s.CompareEntry(ctx, category, entry, flags.File)
	if err != nil {
		return a.fail(err)
	}

	tool := a.cfg.Diff.Tool
	if flags.ToolPath != "" {
		tool = flags.ToolPath
	}
	if (flags.Tool || flags.ToolPath != "") && result.Verdict == models.VerdictDifferent {
		if tool == "" {
			return fmt.Errorf("no diff tool configured (set diff.tool or use --diff-tool)")
		}
		return output.RunDiffTool(ctx, tool, result, a.stdout, a.stderr)
	}

	return a.out.Comparison(result)
}

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	var flags CompareFlags

	cmd := &cobra.Command{
		Use:   "show Category:Name",
		Short: "Print the content of one entry",
		Long:  `Fetch one entry from both environments and print the content of one side with syntax highlighting.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, entry, err := parseComponentRef(args)
			if err != nil {
				return err
			}
			side := strings.ToUpper(flags.Side)
			if side != "A" && side != "B" {
				return fmt.Errorf("invalid side: %s (valid: A, B)", flags.Side)
			}

			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{ShowContent: true})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, flags.Pair)
			if err != nil {
				return err
			}
			defer s.Close()

			result, err := s.CompareEntry(ctx, category, entry, flags.File)
			if err != nil {
				return a.fail(err)
			}
			if a.out.Name() == "json" {
				return a.out.Comparison(result)
			}

			content := result.ContentA
			if side == "B" {
				content = result.ContentB
			}
			name := output.SourceName(result.Category, result.Entry, result.FilePath)
			return output.Highlight(a.stdout, content, name, a.outOpts.Style, a.outOpts.Color)
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&flags.Pair))
	cmd.Flags().StringVarP(&flags.File, "file", "f", "", "member file of a bundle entry")
	cmd.Flags().StringVar(&flags.Side, "side", "A", "environment to print: A or B")

	return cmd
}
