// Package session is the boundary the UI collaborators talk to. A Session
// is created when an environment pair is selected and closed when the
// user returns to environment selection; it owns the cache and the ledger
// for that pair.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sdejongh/metadiff/pkg/cache"
	"github.com/sdejongh/metadiff/pkg/compare"
	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/ledger"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/ratelimit"
	"github.com/sdejongh/metadiff/pkg/reconcile"
	"golang.org/x/sync/errgroup"
)

// Options configures a Session
type Options struct {
	Logger logging.Logger

	// Queue paces bulk prefetches; a 3-wide unbatched queue when nil
	Queue *ratelimit.Queue
}

// Session exposes the reconciliation core for one environment pair
type Session struct {
	id         string
	pair       models.EnvironmentPair
	gw         gateway.Gateway
	cache      *cache.Cache
	ledger     *ledger.Ledger
	comparator *compare.Comparator
	queue      *ratelimit.Queue
	logger     logging.Logger
	closed     atomic.Bool

	catMu      sync.Mutex
	categories *models.UnionedCategories
}

// New creates a session comparing envA to envB
func New(gw gateway.Gateway, envA, envB string, opts Options) (*Session, error) {
	if gw == nil {
		return nil, &models.ValidationError{Field: "gateway", Message: "gateway is required"}
	}
	pair := models.EnvironmentPair{A: envA, B: envB}
	if err := pair.Validate(); err != nil {
		return nil, err
	}
	queue := opts.Queue
	if queue == nil {
		queue = ratelimit.NewQueue(ratelimit.Options{MaxConcurrent: 3})
	}
	id := uuid.NewString()
	logger := logging.OrNull(opts.Logger).WithFields(logging.Fields{
		"session": id,
		"env_a":   envA,
		"env_b":   envB,
	})
	return &Session{
		id:         id,
		pair:       pair,
		gw:         gw,
		cache:      cache.New(),
		ledger:     ledger.New(),
		comparator: compare.New(gw, logger),
		queue:      queue,
		logger:     logger,
	}, nil
}

// ID returns the session identifier used in logs
func (s *Session) ID() string {
	return s.id
}

// Pair returns the environment pair under comparison
func (s *Session) Pair() models.EnvironmentPair {
	return s.pair
}

// GetReconciledCategories unions the category lists of both environments.
// Both lists are fetched concurrently and the union is memoized until the
// next refresh.
func (s *Session) GetReconciledCategories(ctx context.Context) (result *models.UnionedCategories, err error) {
	const op = "reconcile categories"
	defer s.guard(ctx, op, &err)
	if err := s.check(op); err != nil {
		return nil, err
	}

	s.catMu.Lock()
	if s.categories != nil {
		cached := s.categories
		s.catMu.Unlock()
		return cached, nil
	}
	tk := s.cache.Tracker().Begin("categories")
	s.catMu.Unlock()

	var listA, listB []models.Category
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return protect(func() (err error) {
			listA, err = s.gw.ListCategories(gctx, s.pair.A)
			return err
		})
	})
	g.Go(func() error {
		return protect(func() (err error) {
			listB, err = s.gw.ListCategories(gctx, s.pair.B)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		s.cache.Tracker().Release(tk)
		return nil, fail(op, err)
	}

	union := reconcile.UnionCategories(listA, listB)
	s.catMu.Lock()
	defer s.catMu.Unlock()
	if s.cache.Tracker().Complete(tk) {
		s.categories = union
	} else if s.categories != nil {
		return s.categories, nil
	}
	return union, nil
}

// GetReconciledEntries returns the reconciled view of category, from the
// cache when present. On a miss both entry lists are fetched concurrently
// and the view is stored only if no newer fill or refresh superseded it.
func (s *Session) GetReconciledEntries(ctx context.Context, category string) (view *models.ReconciledView, err error) {
	const op = "reconcile entries"
	defer s.guard(ctx, op, &err)
	if err := s.check(op); err != nil {
		return nil, err
	}

	key := models.NewViewKey(s.pair, category)
	if view, ok := s.cache.GetView(key); ok {
		s.logger.Debug(ctx, "cache hit", logging.Fields{"category": key.Category})
		return view, nil
	}
	s.logger.Debug(ctx, "cache miss", logging.Fields{"category": key.Category})

	tk := s.cache.BeginView(key)
	entriesA, entriesB, err := s.fetchEntries(ctx, key.Category)
	if err != nil {
		s.cache.Tracker().Release(tk)
		return nil, fail(op, err)
	}

	view = reconcile.UnionEntries(key.Category, entriesA, entriesB)
	if !s.cache.CommitView(tk, key, view) {
		s.logger.Debug(ctx, "discarded stale view", logging.Fields{"category": key.Category})
		if current, ok := s.cache.GetView(key); ok {
			return current, nil
		}
	}
	return view, nil
}

// fetchEntries lists category in both environments concurrently. A
// category unsupported in one environment counts as empty there.
func (s *Session) fetchEntries(ctx context.Context, category string) ([]models.Entry, []models.Entry, error) {
	var entriesA, entriesB []models.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return protect(func() (err error) {
			entriesA, err = s.listEntries(gctx, category, s.pair.A)
			return err
		})
	})
	g.Go(func() error {
		return protect(func() (err error) {
			entriesB, err = s.listEntries(gctx, category, s.pair.B)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return entriesA, entriesB, nil
}

func (s *Session) listEntries(ctx context.Context, category, alias string) ([]models.Entry, error) {
	entries, err := s.gw.ListEntries(ctx, category, alias)
	if gateway.IsUnsupported(err) {
		s.logger.Debug(ctx, "category unsupported, treating as empty", logging.Fields{
			"category": category,
			"env":      alias,
		})
		return nil, nil
	}
	return entries, err
}

// CompareEntry fetches and compares the content of one entry, or of one
// member file when filePath is set. A whole-entry comparison is recorded
// in the review ledger unless a newer comparison of the same target has
// already completed.
func (s *Session) CompareEntry(ctx context.Context, category, entry, filePath string) (result *models.ComparisonResult, err error) {
	const op = "compare entry"
	defer s.guard(ctx, op, &err)
	if err := s.check(op); err != nil {
		return nil, err
	}

	key := models.NewFileListKey(s.pair, category, entry)
	tk := s.cache.Tracker().Begin("compare:" + key.String() + "|" + models.NormalizePath(filePath))
	result, err = s.comparator.Compare(ctx, compare.Request{
		Category: key.Category,
		Entry:    key.Entry,
		EnvA:     s.pair.A,
		EnvB:     s.pair.B,
		FilePath: filePath,
	})
	if err != nil {
		s.cache.Tracker().Release(tk)
		return nil, fail(op, err)
	}

	if !s.cache.Tracker().Complete(tk) {
		s.logger.Debug(ctx, "stale comparison not recorded", logging.Fields{
			"category": key.Category,
			"entry":    key.Entry,
		})
		return result, nil
	}
	if result.FilePath == "" {
		s.ledger.RecordReviewed(key.Category, key.Entry, result.Verdict)
	}
	s.logger.Info(ctx, "compared entry", logging.Fields{
		"category": key.Category,
		"entry":    key.Entry,
		"file":     result.FilePath,
		"verdict":  string(result.Verdict),
	})
	return result, nil
}

// GetReconciledFiles returns the unioned member files of a composite
// entry, from the cache when present
func (s *Session) GetReconciledFiles(ctx context.Context, category, entry string) (files *models.UnionedFileList, err error) {
	const op = "reconcile files"
	defer s.guard(ctx, op, &err)
	if err := s.check(op); err != nil {
		return nil, err
	}

	key := models.NewFileListKey(s.pair, category, entry)
	if files, ok := s.cache.GetFiles(key); ok {
		return files, nil
	}

	tk := s.cache.BeginFiles(key)
	files, err = s.comparator.ListCompositeFiles(ctx, key.Category, key.Entry, s.pair.A, s.pair.B)
	if err != nil {
		s.cache.Tracker().Release(tk)
		return nil, fail(op, err)
	}
	if !s.cache.CommitFiles(tk, key, files) {
		if current, ok := s.cache.GetFiles(key); ok {
			return current, nil
		}
	}
	return files, nil
}

// ToggleSelection flips the promotion mark of an entry and reports whether
// it is marked afterwards. Marking is refused when the cached view shows
// the entry is not A-only; unmarking is always allowed.
func (s *Session) ToggleSelection(category, entry string) (marked bool, err error) {
	const op = "toggle selection"
	defer s.guard(context.Background(), op, &err)
	if err := s.check(op); err != nil {
		return false, err
	}
	if s.ledger.IsMarked(category, entry) {
		return s.ledger.Toggle(category, entry), nil
	}
	if err := s.selectable(category, entry); err != nil {
		return false, fail(op, err)
	}
	return s.ledger.Toggle(category, entry), nil
}

// Mark adds an entry to the promotion set, with the same A-only check as
// ToggleSelection
func (s *Session) Mark(category, entry string) (err error) {
	const op = "mark entry"
	defer s.guard(context.Background(), op, &err)
	if err := s.check(op); err != nil {
		return err
	}
	if err := s.selectable(category, entry); err != nil {
		return fail(op, err)
	}
	s.ledger.Mark(category, entry)
	return nil
}

func (s *Session) selectable(category, entry string) error {
	view, ok := s.cache.GetView(models.NewViewKey(s.pair, category))
	if !ok {
		return nil
	}
	row := view.Find(models.NormalizeName(entry))
	if row == nil {
		return fmt.Errorf("%s is not listed in %s: %w", entry, category, gateway.ErrNotFound)
	}
	if row.Presence != models.PresenceAOnly {
		return fmt.Errorf("%s is %s: %w", entry, row.Presence, ErrNotSelectable)
	}
	return nil
}

// GetReviewList returns every ledger record
func (s *Session) GetReviewList() []models.LedgerEntry {
	return s.ledger.List()
}

// Refresh clears every cached view, file list and category union. The
// ledger is kept. Results of requests started before the refresh are
// discarded when they arrive.
func (s *Session) Refresh(ctx context.Context) {
	s.catMu.Lock()
	s.categories = nil
	s.cache.Clear()
	s.catMu.Unlock()
	s.logger.Info(ctx, "cache cleared", nil)
}

// Stats returns cache counters
func (s *Session) Stats() cache.Stats {
	return s.cache.Stats()
}

// Close tears the session down, dropping cache and ledger. Every later
// operation fails with ErrClosed.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.catMu.Lock()
	s.categories = nil
	s.cache.Clear()
	s.catMu.Unlock()
	s.ledger.Reset()
	s.logger.Debug(context.Background(), "session closed", nil)
	return nil
}

func (s *Session) check(op string) error {
	if s.closed.Load() {
		return &Failure{Op: op, Message: ErrClosed.Error(), Err: ErrClosed}
	}
	return nil
}
