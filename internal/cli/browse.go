package cli

import (
	"github.com/spf13/cobra"

	"github.com/sdejongh/metadiff/pkg/filter"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
)

// NewCategoriesCommand creates the categories command
func NewCategoriesCommand() *cobra.Command {
	var pair PairFlags

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories of both environments",
		Long: `List the union of the categories (metadata types) available in either
environment. A warning is shown when the two lists differ in size by more
than reconcile.count_warning_threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, pair)
			if err != nil {
				return err
			}
			defer s.Close()

			cats, err := s.GetReconciledCategories(ctx)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Categories(cats, a.cfg.Reconcile.CountWarningThreshold)
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&pair))

	return cmd
}

// NewEntriesCommand creates the entries command
func NewEntriesCommand() *cobra.Command {
	var (
		pair     PairFlags
		pattern  string
		presence []string
		hints    []string
		ranked   bool
	)

	cmd := &cobra.Command{
		Use:   "entries CATEGORY",
		Short: "Compare the entries of one category",
		Long: `List the entries of a category in both environments, marking which side
each entry exists in and whether listing fingerprints suggest the contents
are equal.`,
		Example: `  metadiff entries ApexClass --presence A_ONLY
  metadiff entries ApexClass --match acctsvc --hint LIKELY_DIFFERENT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(pattern, presence, hints, ranked)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, pair)
			if err != nil {
				return err
			}
			defer s.Close()

			view, err := s.GetReconciledEntries(ctx, args[0])
			if err != nil {
				return a.fail(err)
			}
			return a.out.Entries(filter.Apply(view, criteria))
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&pair))
	cmd.Flags().StringVarP(&pattern, "match", "m", "", "fuzzy match entry names")
	cmd.Flags().StringSliceVar(&presence, "presence", nil, "keep entries with these presences: A_ONLY, B_ONLY, BOTH")
	cmd.Flags().StringSliceVar(&hints, "hint", nil, "keep entries with these hints: LIKELY_EQUAL, LIKELY_DIFFERENT, UNKNOWN")
	cmd.Flags().BoolVar(&ranked, "ranked", false, "order matches by score instead of name")

	return cmd
}

// NewFilesCommand creates the files command
func NewFilesCommand() *cobra.Command {
	var (
		pair    PairFlags
		exclude []string
	)

	cmd := &cobra.Command{
		Use:   "files Category:Name",
		Short: "List the member files of a bundle entry",
		Long:  `List the union of the member files of a composite (bundle) entry in both environments.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, entry, err := parseComponentRef(args)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, pair)
			if err != nil {
				return err
			}
			defer s.Close()

			files, err := s.GetReconciledFiles(ctx, category, entry)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Files(excludeFiles(files, exclude))
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&pair))
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "glob patterns of member files to hide")

	return cmd
}

// excludeFiles returns a copy of files without the excluded members. The
// cached list is left untouched.
func excludeFiles(files *models.UnionedFileList, patterns []string) *models.UnionedFileList {
	if len(patterns) == 0 {
		return files
	}
	out := &models.UnionedFileList{Category: files.Category, Entry: files.Entry}
	for _, f := range files.Files {
		if !filter.Excluded(f.Path, patterns) {
			out.Files = append(out.Files, f)
		}
	}
	return out
}
