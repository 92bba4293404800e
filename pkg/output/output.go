package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/session"
)

// Formatter defines the interface for output formatting
// Implementations include human-readable and JSON formatters
type Formatter interface {
	// Environments lists the known environments. fetchedAt is zero when
	// the list was not served from the local store.
	Environments(envs []models.Environment, fetchedAt time.Time) error

	// Descriptor displays a validated environment
	Descriptor(d *models.Descriptor) error

	// Categories displays the category union, warning when the raw
	// counts diverge by more than threshold
	Categories(u *models.UnionedCategories, threshold float64) error

	// Entries displays a reconciled view
	Entries(v *models.ReconciledView) error

	// Files displays the member file union of a composite entry
	Files(f *models.UnionedFileList) error

	// Comparison displays a content comparison
	Comparison(r *models.ComparisonResult) error

	// Prefetch displays the per-category outcome of a bulk prefetch
	Prefetch(results []session.PrefetchResult) error

	// Ledger displays the selection/review list
	Ledger(entries []models.LedgerEntry) error

	// Error reports an error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// Options controls rendering
type Options struct {
	Color       bool   // Emit ANSI styling
	Style       string // Syntax highlighting style
	ShowContent bool   // Include raw payloads in comparisons
}

// New returns the formatter for format ("human" or "json")
func New(format string, w io.Writer, opts Options) (Formatter, error) {
	switch format {
	case "", "human":
		return NewHumanFormatter(w, opts), nil
	case "json":
		return NewJSONFormatter(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
