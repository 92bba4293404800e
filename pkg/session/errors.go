package session

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/sdejongh/metadiff/pkg/gateway"
	"github.com/sdejongh/metadiff/pkg/logging"
)

// ErrClosed is returned by every operation after Close
var ErrClosed = errors.New("session closed")

// ErrNotSelectable is returned when toggling an entry that is not A-only
var ErrNotSelectable = errors.New("only entries present in environment A alone can be selected for promotion")

// Failure is the error returned by every session operation. Message is
// suitable for direct display; Hint optionally suggests a next step.
type Failure struct {
	Op      string
	Message string
	Hint    string
	Err     error
}

func (f *Failure) Error() string {
	return f.Op + ": " + f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// fail wraps err into a Failure for op. Errors that already are a Failure
// pass through.
func fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{
		Op:      op,
		Message: err.Error(),
		Hint:    gateway.HintFor(err),
		Err:     err,
	}
}

// guard converts a panic in op into a Failure stored in *errp. It must be
// deferred directly by the exported operation.
func (s *Session) guard(ctx context.Context, op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	err := &Failure{Op: op, Message: fmt.Sprintf("internal error: %v", r)}
	s.logger.Error(ctx, "recovered panic", err, logging.Fields{
		"op":    op,
		"stack": string(debug.Stack()),
	})
	*errp = err
}

// protect runs fn on a worker goroutine, converting a panic into an error
// since guard only sees panics on the caller's goroutine
func protect(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	return fn()
}
