package cache

import "sync"

// Ticket is issued when a request for a key starts. Its generation orders
// requests for the same key; its epoch ties it to the cache contents that
// existed when it was issued.
type Ticket struct {
	Key        string
	Generation uint64
	Epoch      uint64
}

// Tracker implements "last request for this key wins" staleness detection.
// A result is stale when a newer request for the same key has already
// completed, or when the tracker was reset after the ticket was issued.
// A key is forgotten once none of its tickets is outstanding, so every
// ticket must end with Complete or Release.
type Tracker struct {
	mu        sync.Mutex
	epoch     uint64
	issued    map[string]uint64
	completed map[string]uint64
	pending   map[string]int
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{
		issued:    make(map[string]uint64),
		completed: make(map[string]uint64),
		pending:   make(map[string]int),
	}
}

// Begin issues a ticket for a new request on key
func (t *Tracker) Begin(key string) Ticket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.beginLocked(key)
}

// Complete records the completion of a request and reports whether its
// result is still current and may be acted upon
func (t *Tracker) Complete(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completeLocked(tk)
}

// Release ends a ticket whose request failed, without recording a result
func (t *Tracker) Release(tk Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if tk.Epoch == t.epoch {
		t.endLocked(tk.Key)
	}
}

// Len returns the number of keys with outstanding tickets
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.issued)
}

// IsLatest reports whether tk is the most recently issued ticket for its key
func (t *Tracker) IsLatest(tk Ticket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tk.Epoch == t.epoch && t.issued[tk.Key] == tk.Generation
}

// Reset invalidates every outstanding ticket
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

func (t *Tracker) beginLocked(key string) Ticket {
	t.issued[key]++
	t.pending[key]++
	return Ticket{Key: key, Generation: t.issued[key], Epoch: t.epoch}
}

func (t *Tracker) completeLocked(tk Ticket) bool {
	if tk.Epoch != t.epoch {
		return false
	}
	current := tk.Generation >= t.completed[tk.Key]
	if current {
		t.completed[tk.Key] = tk.Generation
	}
	t.endLocked(tk.Key)
	return current
}

func (t *Tracker) endLocked(key string) {
	if t.pending[key]--; t.pending[key] > 0 {
		return
	}
	delete(t.pending, key)
	delete(t.issued, key)
	delete(t.completed, key)
}

func (t *Tracker) resetLocked() {
	t.epoch++
	t.issued = make(map[string]uint64)
	t.completed = make(map[string]uint64)
	t.pending = make(map[string]int)
}
