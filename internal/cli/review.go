package cli

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sdejongh/metadiff/pkg/filter"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/output"
	"github.com/sdejongh/metadiff/pkg/ratelimit"
	"github.com/sdejongh/metadiff/pkg/session"
)

// ReviewFlags holds review command flags
type ReviewFlags struct {
	Pair         PairFlags
	All          bool
	NoCompare    bool
	SelectAOnly  bool
	Select       []string
	Exclude      []string
	Limit        int
	Report       string
	ReportFormat string
}

// NewReviewCommand creates the review command
func NewReviewCommand() *cobra.Command {
	var flags ReviewFlags

	cmd := &cobra.Command{
		Use:   "review [CATEGORY...]",
		Short: "Review the differences between two environments",
		Long: `Load the given categories (all categories by default) from both
environments, compare the content of every entry present in both whose
listing does not already suggest equality, and print the resulting review
list. Entries present only in environment A can be selected for promotion.`,
		Example: `  metadiff review ApexClass ApexTrigger
  metadiff review Flow --select-a-only --report review.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			a, err := newApp(cmd, output.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.openSession(ctx, flags.Pair)
			if err != nil {
				return err
			}
			defer s.Close()

			return runReview(ctx, a, s, args, flags)
		},
	}

	cmd.Flags().AddFlagSet(pairFlagSet(&flags.Pair))
	cmd.Flags().BoolVar(&flags.All, "all", false, "compare every entry present in both environments, including likely equal ones")
	cmd.Flags().BoolVar(&flags.NoCompare, "no-compare", false, "only load the categories, do not compare contents")
	cmd.Flags().BoolVar(&flags.SelectAOnly, "select-a-only", false, "select every entry present only in A for promotion")
	cmd.Flags().StringSliceVar(&flags.Select, "select", nil, "toggle Category:Name entries for promotion")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", nil, "glob patterns of categories to skip")
	cmd.Flags().IntVar(&flags.Limit, "limit", 0, "maximum number of content comparisons (0 = unlimited)")
	cmd.Flags().StringVar(&flags.Report, "report", "", "write the review list to file")
	cmd.Flags().StringVar(&flags.ReportFormat, "report-format", "human", "review report format: human, json")

	return cmd
}

func runReview(ctx context.Context, a *app, s *session.Session, categories []string, flags ReviewFlags) error {
	if len(categories) == 0 {
		cats, err := s.GetReconciledCategories(ctx)
		if err != nil {
			return a.fail(err)
		}
		for _, c := range cats.Categories {
			categories = append(categories, c.Name)
		}
		categories = filter.ExcludeNames(categories, a.cfg.Reconcile.Exclude)
	}
	categories = filter.ExcludeNames(categories, flags.Exclude)

	progress := output.NewProgress(a.stderr, "loading", len(categories), a.cfg.Output.Progress)
	results, err := s.Prefetch(ctx, categories, func(r session.PrefetchResult) {
		progress.Advance(r.Category, r.Err)
	})
	progress.Finish()
	if err != nil {
		return a.fail(err)
	}
	if err := a.out.Prefetch(results); err != nil {
		return err
	}

	if flags.SelectAOnly {
		for _, r := range results {
			if r.View == nil {
				continue
			}
			for _, e := range r.View.Entries {
				if e.Presence != models.PresenceAOnly {
					continue
				}
				if err := s.Mark(r.Category, e.Name); err != nil {
					return a.fail(err)
				}
			}
		}
	}
	for _, ref := range flags.Select {
		category, entry, err := parseComponentRef([]string{ref})
		if err != nil {
			return err
		}
		if _, err := s.ToggleSelection(category, entry); err != nil {
			return a.fail(err)
		}
	}

	if !flags.NoCompare {
		reviewContents(ctx, a, s, results, flags)
	}

	reviewed := s.GetReviewList()
	if flags.Report != "" {
		if err := output.WriteReviewReport(s.Pair(), reviewed, flags.Report, flags.ReportFormat); err != nil {
			return fmt.Errorf("failed to write review report: %w", err)
		}
	}
	return a.out.Ledger(reviewed)
}

// reviewContents compares the selected entries through the prefetch queue.
// A failed comparison is logged and leaves the entry out of the review list.
func reviewContents(ctx context.Context, a *app, s *session.Session, results []session.PrefetchResult, flags ReviewFlags) {
	var targets []models.LedgerEntry
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, e := range r.View.Entries {
			if e.Presence != models.PresenceBoth {
				continue
			}
			if e.Hint == models.HintLikelyEqual && !flags.All {
				continue
			}
			targets = append(targets, models.LedgerEntry{Category: r.Category, Entry: e.Name})
		}
	}
	if flags.Limit > 0 && len(targets) > flags.Limit {
		a.logger.Info(ctx, "comparisons limited", logging.Fields{"candidates": len(targets), "limit": flags.Limit})
		targets = targets[:flags.Limit]
	}
	if len(targets) == 0 {
		return
	}

	progress := output.NewProgress(a.stderr, "comparing", len(targets), a.cfg.Output.Progress)
	var progressMu sync.Mutex
	tasks := make([]ratelimit.Task, len(targets))
	for i, t := range targets {
		tasks[i] = func(ctx context.Context) error {
			_, err := s.CompareEntry(ctx, t.Category, t.Entry, "")
			progressMu.Lock()
			progress.Advance(models.ComponentRef(t.Category, t.Entry), err)
			progressMu.Unlock()
			return err
		}
	}
	errs := a.queue().Run(ctx, tasks)
	progress.Finish()
	failed := 0
	for i, err := range errs {
		if err != nil {
			failed++
			a.logger.Warn(ctx, "comparison failed", logging.Fields{
				"category": targets[i].Category,
				"entry":    targets[i].Entry,
				"error":    err.Error(),
			})
		}
	}
	if failed > 0 {
		fmt.Fprintf(a.stderr, "%d of %d comparisons failed (use --verbose for details)\n", failed, len(targets))
	}
}
