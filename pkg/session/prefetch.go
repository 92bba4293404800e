package session

import (
	"context"
	"sync"
	"time"

	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/ratelimit"
)

// PrefetchResult is the outcome of loading one category's view
type PrefetchResult struct {
	Category string
	View     *models.ReconciledView
	Tally    models.ViewTally
	Err      error
}

// Prefetch loads the reconciled views of categories through the session
// queue and returns one result per category, in input order. A failing
// category does not stop the others. onProgress, when set, is called once
// per finished category, never concurrently.
func (s *Session) Prefetch(ctx context.Context, categories []string, onProgress func(PrefetchResult)) (results []PrefetchResult, err error) {
	const op = "prefetch"
	defer s.guard(ctx, op, &err)
	if err := s.check(op); err != nil {
		return nil, err
	}

	start := time.Now()
	results = make([]PrefetchResult, len(categories))
	var progressMu sync.Mutex
	tasks := make([]ratelimit.Task, len(categories))
	for i, cat := range categories {
		results[i].Category = models.NormalizeName(cat)
		tasks[i] = func(ctx context.Context) error {
			view, err := s.GetReconciledEntries(ctx, cat)
			results[i].View = view
			results[i].Err = err
			if view != nil {
				results[i].Tally = view.Tally()
			}
			if onProgress != nil {
				progressMu.Lock()
				onProgress(results[i])
				progressMu.Unlock()
			}
			return err
		}
	}

	errs := s.queue.Run(ctx, tasks)
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		if results[i].Err == nil {
			// The task never ran
			results[i].Err = fail(op, err)
		}
	}
	s.logger.Info(ctx, "prefetch finished", logging.Fields{
		"categories":  len(categories),
		"failed":      failed,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return results, nil
}
