package gateway

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"sync"
)

// Runner executes one external command and returns its captured output.
// Implementations must honor ctx cancellation.
type Runner func(ctx context.Context, name string, args []string) (stdout, stderr []byte, err error)

// errOutputLimit is returned by runners when stdout exceeded the ceiling
var errOutputLimit = errors.New("output limit exceeded")

// ExecRunner returns a Runner backed by os/exec. Output beyond maxBytes is
// discarded and the process is killed so the call cannot hang on a full pipe.
func ExecRunner(maxBytes int64) Runner {
	return func(ctx context.Context, name string, args []string) ([]byte, []byte, error) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		stdout := &cappedBuffer{limit: maxBytes, onOverflow: cancel}
		stderr := &cappedBuffer{limit: 1 << 20}
		cmd := exec.CommandContext(ctx, name, args...)
		cmd.Stdout = stdout
		cmd.Stderr = stderr

		err := cmd.Run()
		if stdout.Overflowed() {
			return stdout.Bytes(), stderr.Bytes(), errOutputLimit
		}
		return stdout.Bytes(), stderr.Bytes(), err
	}
}

// cappedBuffer accepts writes until limit bytes, then discards the rest
type cappedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int64
	overflowed bool
	onOverflow func()
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	remaining := b.limit - int64(b.buf.Len())
	if int64(len(p)) > remaining {
		if remaining > 0 {
			b.buf.Write(p[:remaining])
		}
		if !b.overflowed {
			b.overflowed = true
			if b.onOverflow != nil {
				b.onOverflow()
			}
		}
		// Report full length so the copier keeps draining the pipe
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflowed
}
