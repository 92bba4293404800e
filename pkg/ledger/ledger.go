// Package ledger keeps the session's selection and review bookkeeping:
// A-only entries marked for promotion and both-present entries whose
// content was compared. It makes no network calls.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sdejongh/metadiff/pkg/models"
)

type key struct {
	category string
	entry    string
	origin   models.Origin
}

// Ledger is a process-local, concurrency-safe record set. Each
// (category, entry, origin) appears at most once.
type Ledger struct {
	mu      sync.Mutex
	records map[key]models.LedgerEntry
	now     func() time.Time
}

// New creates an empty ledger
func New() *Ledger {
	return &Ledger{
		records: make(map[key]models.LedgerEntry),
		now:     time.Now,
	}
}

func newKey(category, entry string, origin models.Origin) key {
	return key{
		category: models.NormalizeName(category),
		entry:    models.NormalizeName(entry),
		origin:   origin,
	}
}

// Mark adds an entry to the promotion set. Marking twice keeps the
// original record.
func (l *Ledger) Mark(category, entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := newKey(category, entry, models.OriginPromotion)
	if _, ok := l.records[k]; ok {
		return
	}
	l.records[k] = l.record(k, "")
}

// Unmark removes an entry from the promotion set. Unmarking an absent
// entry does nothing.
func (l *Ledger) Unmark(category, entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, newKey(category, entry, models.OriginPromotion))
}

// Toggle flips promotion membership and reports whether the entry is
// marked afterwards
func (l *Ledger) Toggle(category, entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := newKey(category, entry, models.OriginPromotion)
	if _, ok := l.records[k]; ok {
		delete(l.records, k)
		return false
	}
	l.records[k] = l.record(k, "")
	return true
}

// IsMarked reports whether an entry is in the promotion set
func (l *Ledger) IsMarked(category, entry string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[newKey(category, entry, models.OriginPromotion)]
	return ok
}

// RecordReviewed logs that an entry's content was compared, replacing
// any earlier verdict for it
func (l *Ledger) RecordReviewed(category, entry string, verdict models.Verdict) {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := newKey(category, entry, models.OriginReview)
	rec := l.record(k, verdict)
	if prev, ok := l.records[k]; ok {
		rec.ID = prev.ID
	}
	l.records[k] = rec
}

// List returns every record ordered by category, entry and origin
func (l *Ledger) List() []models.LedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.LedgerEntry, 0, len(l.records))
	for _, rec := range l.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		if out[i].Entry != out[j].Entry {
			return out[i].Entry < out[j].Entry
		}
		return out[i].Origin < out[j].Origin
	})
	return out
}

// Len returns the number of records
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Reset drops every record
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[key]models.LedgerEntry)
}

func (l *Ledger) record(k key, verdict models.Verdict) models.LedgerEntry {
	return models.LedgerEntry{
		ID:       uuid.NewString(),
		Category: k.category,
		Entry:    k.entry,
		Origin:   k.origin,
		Verdict:  verdict,
		Recorded: l.now(),
	}
}
