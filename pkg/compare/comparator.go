// Package compare fetches full content from both environments and decides
// equality. It is the only place where entry content is read.
package compare

import (
	"context"
	"errors"
	"fmt"

	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/logging"
	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/reconcile"
	"golang.org/x/sync/errgroup"
)

// Side identifies one environment of a comparison
type Side string

const (
	// SideA is the first environment of the pair
	SideA Side = "A"
	// SideB is the second environment of the pair
	SideB Side = "B"
)

// SideError reports which side of a paired fetch failed
type SideError struct {
	Side Side
	Env  string
	Err  error
}

func (e *SideError) Error() string {
	return fmt.Sprintf("environment %s (%s): %v", e.Side, e.Env, e.Err)
}

func (e *SideError) Unwrap() error {
	return e.Err
}

// Request identifies the content to compare
type Request struct {
	Category string
	Entry    string
	EnvA     string
	EnvB     string

	// FilePath scopes the comparison to one member of a composite entry
	FilePath string
}

// Comparator runs paired content fetches against a gateway. Calls are
// independent and share no locks.
type Comparator struct {
	gw     gateway.Gateway
	logger logging.Logger
}

// New creates a Comparator
func New(gw gateway.Gateway, logger logging.Logger) *Comparator {
	return &Comparator{gw: gw, logger: logging.OrNull(logger)}
}

// Compare fetches both payloads in parallel and compares them by exact
// match. If either fetch fails the result is an error and neither payload
// is returned.
func (c *Comparator) Compare(ctx context.Context, req Request) (*models.ComparisonResult, error) {
	category := models.NormalizeName(req.Category)
	entry := models.NormalizeName(req.Entry)
	filePath := ""
	if req.FilePath != "" {
		filePath = models.NormalizePath(req.FilePath)
	}

	var contentA, contentB string
	var errA, errB error
	var g errgroup.Group
	g.Go(func() error {
		errA = protect(func() (err error) {
			contentA, err = c.gw.FetchContent(ctx, category, entry, req.EnvA, filePath)
			return err
		})
		return errA
	})
	g.Go(func() error {
		errB = protect(func() (err error) {
			contentB, err = c.gw.FetchContent(ctx, category, entry, req.EnvB, filePath)
			return err
		})
		return errB
	})
	_ = g.Wait()

	if err := sideError(req, errA, errB); err != nil {
		c.logger.Warn(ctx, "content fetch failed", logging.Fields{
			"category": category,
			"entry":    entry,
			"file":     filePath,
			"error":    err.Error(),
		})
		return nil, err
	}

	result := &models.ComparisonResult{
		Category: category,
		Entry:    entry,
		FilePath: filePath,
		EnvA:     req.EnvA,
		EnvB:     req.EnvB,
		ContentA: contentA,
		ContentB: contentB,
		DigestA:  Digest(contentA),
		DigestB:  Digest(contentB),
		Verdict:  Decide(contentA, contentB),
	}
	c.logger.Debug(ctx, "compared content", logging.Fields{
		"category": category,
		"entry":    entry,
		"file":     filePath,
		"verdict":  string(result.Verdict),
		"bytes_a":  len(contentA),
		"bytes_b":  len(contentB),
	})
	return result, nil
}

// ListCompositeFiles lists the member files of a composite entry in both
// environments and unions them by path. An entry missing from exactly one
// side contributes no files from that side; any other failure fails the
// whole listing.
func (c *Comparator) ListCompositeFiles(ctx context.Context, category, entry, envA, envB string) (*models.UnionedFileList, error) {
	category = models.NormalizeName(category)
	entry = models.NormalizeName(entry)

	var pathsA, pathsB []string
	var errA, errB error
	var g errgroup.Group
	g.Go(func() error {
		errA = protect(func() (err error) {
			pathsA, err = c.gw.ListMemberFiles(ctx, category, entry, envA)
			return err
		})
		return errA
	})
	g.Go(func() error {
		errB = protect(func() (err error) {
			pathsB, err = c.gw.ListMemberFiles(ctx, category, entry, envB)
			return err
		})
		return errB
	})
	_ = g.Wait()

	switch {
	case gateway.IsNotFound(errA) && errB == nil:
		errA = nil
	case gateway.IsNotFound(errB) && errA == nil:
		errB = nil
	}
	req := Request{Category: category, Entry: entry, EnvA: envA, EnvB: envB}
	if err := sideError(req, errA, errB); err != nil {
		return nil, err
	}
	return reconcile.UnionFiles(category, entry, pathsA, pathsB), nil
}

// sideError returns the failure of side A first, then side B
func sideError(req Request, errA, errB error) error {
	if errA != nil {
		return &SideError{Side: SideA, Env: req.EnvA, Err: errA}
	}
	if errB != nil {
		return &SideError{Side: SideB, Env: req.EnvB, Err: errB}
	}
	return nil
}

// protect runs one side's fetch, converting a panic into that side's error
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn()
}

// Decide returns the verdict of two fully fetched payloads
func Decide(a, b string) models.Verdict {
	if a == b {
		return models.VerdictEqual
	}
	return models.VerdictDifferent
}

// FailedSide returns the side recorded in err, or "" when err does not
// come from a paired fetch
func FailedSide(err error) Side {
	var se *SideError
	if errors.As(err, &se) {
		return se.Side
	}
	return ""
}
