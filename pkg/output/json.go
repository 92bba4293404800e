package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/session"
)

// JSONFormatter formats output as JSON for automation and scripting.
// Every call writes one indented document.
type JSONFormatter struct {
	writer io.Writer
	opts   Options
}

// JSONEnvironments is the environments document
type JSONEnvironments struct {
	Environments []models.Environment `json:"environments"`
	FetchedAt    *time.Time           `json:"fetched_at,omitempty"`
}

// JSONCategories is the category union document
type JSONCategories struct {
	*models.UnionedCategories
	Divergence float64 `json:"divergence"`
	Warning    bool    `json:"warning"`
}

// JSONEntries is the reconciled view document
type JSONEntries struct {
	*models.ReconciledView
	Tally models.ViewTally `json:"tally"`
}

// JSONComparison is the comparison document. Payloads are included only
// when requested; the unified diff is always present for DIFFERENT.
type JSONComparison struct {
	Category string         `json:"category"`
	Entry    string         `json:"entry"`
	FilePath string         `json:"file_path,omitempty"`
	EnvA     string         `json:"env_a"`
	EnvB     string         `json:"env_b"`
	DigestA  string         `json:"digest_a"`
	DigestB  string         `json:"digest_b"`
	Verdict  models.Verdict `json:"verdict"`
	Diff     string         `json:"diff,omitempty"`
	ContentA *string        `json:"content_a,omitempty"`
	ContentB *string        `json:"content_b,omitempty"`
}

// JSONPrefetchData is one category of the prefetch document
type JSONPrefetchData struct {
	Category string            `json:"category"`
	Tally    *models.ViewTally `json:"tally,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// JSONLedger is the review list document
type JSONLedger struct {
	Entries []models.LedgerEntry `json:"entries"`
}

// JSONErrorData represents an error document
type JSONErrorData struct {
	Error string `json:"error"`
	Op    string `json:"op,omitempty"`
	Hint  string `json:"hint,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer, opts Options) *JSONFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &JSONFormatter{writer: w, opts: opts}
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// Environments lists the known environments
func (f *JSONFormatter) Environments(envs []models.Environment, fetchedAt time.Time) error {
	doc := JSONEnvironments{Environments: envs}
	if doc.Environments == nil {
		doc.Environments = []models.Environment{}
	}
	if !fetchedAt.IsZero() {
		doc.FetchedAt = &fetchedAt
	}
	return f.encode(doc)
}

// Descriptor displays a validated environment
func (f *JSONFormatter) Descriptor(d *models.Descriptor) error {
	return f.encode(d)
}

// Categories displays the category union
func (f *JSONFormatter) Categories(u *models.UnionedCategories, threshold float64) error {
	d := u.Divergence()
	return f.encode(JSONCategories{UnionedCategories: u, Divergence: d, Warning: d > threshold})
}

// Entries displays a reconciled view
func (f *JSONFormatter) Entries(v *models.ReconciledView) error {
	return f.encode(JSONEntries{ReconciledView: v, Tally: v.Tally()})
}

// Files displays the member file union of a composite entry
func (f *JSONFormatter) Files(files *models.UnionedFileList) error {
	return f.encode(files)
}

// Comparison displays a content comparison
func (f *JSONFormatter) Comparison(r *models.ComparisonResult) error {
	doc := JSONComparison{
		Category: r.Category,
		Entry:    r.Entry,
		FilePath: r.FilePath,
		EnvA:     r.EnvA,
		EnvB:     r.EnvB,
		DigestA:  r.DigestA,
		DigestB:  r.DigestB,
		Verdict:  r.Verdict,
	}
	if r.Verdict == models.VerdictDifferent {
		diff, err := UnifiedDiff(r)
		if err != nil {
			return err
		}
		doc.Diff = diff
	}
	if f.opts.ShowContent {
		a, b := r.ContentA, r.ContentB
		doc.ContentA, doc.ContentB = &a, &b
	}
	return f.encode(doc)
}

// Prefetch displays the per-category outcome of a bulk prefetch
func (f *JSONFormatter) Prefetch(results []session.PrefetchResult) error {
	docs := make([]JSONPrefetchData, len(results))
	for i, r := range results {
		docs[i].Category = r.Category
		if r.Err != nil {
			docs[i].Error = r.Err.Error()
			continue
		}
		tally := r.Tally
		docs[i].Tally = &tally
	}
	return f.encode(map[string]any{"categories": docs})
}

// Ledger displays the selection/review list
func (f *JSONFormatter) Ledger(entries []models.LedgerEntry) error {
	if entries == nil {
		entries = []models.LedgerEntry{}
	}
	return f.encode(JSONLedger{Entries: entries})
}

// Error reports an error
func (f *JSONFormatter) Error(err error) error {
	doc := JSONErrorData{Error: err.Error()}
	var failure *session.Failure
	if errors.As(err, &failure) {
		doc.Op = failure.Op
		doc.Hint = failure.Hint
	}
	return f.encode(doc)
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
