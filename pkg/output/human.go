package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sdejongh/metadiff/pkg/models"
	"github.com/sdejongh/metadiff/pkg/session"
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	writer io.Writer
	opts   Options
	style  palette
	width  int
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter(w io.Writer, opts Options) *HumanFormatter {
	if w == nil {
		w = os.Stdout
	}
	return &HumanFormatter{
		writer: w,
		opts:   opts,
		style:  newPalette(w, opts.Color),
		width:  Width(w),
	}
}

// Environments lists the known environments
func (f *HumanFormatter) Environments(envs []models.Environment, fetchedAt time.Time) error {
	if len(envs) == 0 {
		fmt.Fprintln(f.writer, "No environments found")
		return nil
	}

	aliasWidth := len("ALIAS")
	for _, env := range envs {
		aliasWidth = max(aliasWidth, len(env.Alias))
	}

	fmt.Fprintln(f.writer, f.style.header.Render(fmt.Sprintf("%-*s  %s", aliasWidth, "ALIAS", "USERNAME")))
	for _, env := range envs {
		marker := " "
		if env.IsDefault {
			marker = "*"
		}
		line := fmt.Sprintf("%-*s  %s", aliasWidth, env.Alias, env.Username)
		fmt.Fprintf(f.writer, "%s%s\n", marker, truncate(line, f.width-1))
	}

	if !fetchedAt.IsZero() {
		fmt.Fprintln(f.writer, f.style.dim.Render(fmt.Sprintf("\n(cached %s ago, use --refresh to reload)",
			formatDuration(time.Since(fetchedAt)))))
	}
	return nil
}

// Descriptor displays a validated environment
func (f *HumanFormatter) Descriptor(d *models.Descriptor) error {
	fmt.Fprintf(f.writer, "Environment %s is reachable\n", f.style.header.Render(d.Alias))
	rows := [][2]string{
		{"Username", d.Username},
		{"ID", d.ID},
		{"Instance", d.InstanceURL},
		{"Status", d.Status},
		{"API version", d.Attributes["api_version"]},
	}
	for _, row := range rows {
		if row[1] != "" {
			fmt.Fprintf(f.writer, "  %-12s %s\n", row[0]+":", row[1])
		}
	}
	return nil
}

// Categories displays the category union
func (f *HumanFormatter) Categories(u *models.UnionedCategories, threshold float64) error {
	for _, cat := range u.Categories {
		line := cat.Name
		if cat.Composite {
			line += f.style.dim.Render(" (bundle)")
		}
		fmt.Fprintln(f.writer, line)
	}

	fmt.Fprintf(f.writer, "\n%d categories (A: %d, B: %d)\n", len(u.Categories), u.CountA, u.CountB)
	if d := u.Divergence(); d > threshold {
		fmt.Fprintln(f.writer, f.style.warn.Render(fmt.Sprintf(
			"Warning: category counts differ by %.0f%%, the environments may run different API versions", d*100)))
	}
	return nil
}

// Entries displays a reconciled view
func (f *HumanFormatter) Entries(v *models.ReconciledView) error {
	fmt.Fprintf(f.writer, "%s (A: %d, B: %d)\n", f.style.header.Render(v.Category), v.CountA, v.CountB)
	if len(v.Entries) == 0 {
		fmt.Fprintln(f.writer, f.style.dim.Render("  no entries"))
		return nil
	}

	for _, e := range v.Entries {
		presence := f.style.presence[e.Presence].Render(fmt.Sprintf("%-6s", presenceLabel(e.Presence)))
		hint := f.style.hint[e.Hint].Render(fmt.Sprintf("%-16s", hintLabel(e.Hint)))
		fmt.Fprintf(f.writer, "  %s  %s  %s\n", presence, hint, truncate(e.Name, f.width-30))
	}

	t := v.Tally()
	fmt.Fprintf(f.writer, "\n%d both (%d likely equal, %d likely different), %d A only, %d B only\n",
		t.Both, t.LikelyEqual, t.LikelyDifferent, t.AOnly, t.BOnly)
	return nil
}

// Files displays the member file union of a composite entry
func (f *HumanFormatter) Files(files *models.UnionedFileList) error {
	fmt.Fprintf(f.writer, "%s\n", f.style.header.Render(models.ComponentRef(files.Category, files.Entry)))
	if len(files.Files) == 0 {
		fmt.Fprintln(f.writer, f.style.dim.Render("  no member files"))
		return nil
	}
	for _, file := range files.Files {
		presence := f.style.presence[file.Presence].Render(fmt.Sprintf("%-6s", presenceLabel(file.Presence)))
		fmt.Fprintf(f.writer, "  %s  %s\n", presence, file.Path)
	}
	return nil
}

// Comparison displays a content comparison followed by the unified diff
// when the payloads differ
func (f *HumanFormatter) Comparison(r *models.ComparisonResult) error {
	ref := models.ComponentRef(r.Category, r.Entry)
	if r.FilePath != "" {
		ref += " [" + r.FilePath + "]"
	}
	fmt.Fprintf(f.writer, "%s  %s\n", f.style.header.Render(ref), f.style.verdict[r.Verdict].Render(string(r.Verdict)))
	fmt.Fprintf(f.writer, "  A %-20s %s\n", r.EnvA, f.style.dim.Render(r.DigestA))
	fmt.Fprintf(f.writer, "  B %-20s %s\n", r.EnvB, f.style.dim.Render(r.DigestB))

	if r.Verdict != models.VerdictDifferent {
		return nil
	}
	diff, err := UnifiedDiff(r)
	if err != nil {
		return fmt.Errorf("failed to compute diff: %w", err)
	}
	fmt.Fprintln(f.writer)
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		fmt.Fprint(f.writer, f.diffLine(line))
	}
	return nil
}

func (f *HumanFormatter) diffLine(line string) string {
	text := strings.TrimSuffix(line, "\n")
	switch {
	case strings.HasPrefix(text, "+++"), strings.HasPrefix(text, "---"):
		text = f.style.header.Render(text)
	case strings.HasPrefix(text, "@@"):
		text = f.style.diffHunk.Render(text)
	case strings.HasPrefix(text, "+"):
		text = f.style.diffAdd.Render(text)
	case strings.HasPrefix(text, "-"):
		text = f.style.diffRemove.Render(text)
	}
	return text + "\n"
}

// Prefetch displays the per-category outcome of a bulk prefetch
func (f *HumanFormatter) Prefetch(results []session.PrefetchResult) error {
	var total models.ViewTally
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(f.writer, "  %s %-32s %v\n", f.style.failure.Render("✗"), r.Category, r.Err)
			continue
		}
		t := r.Tally
		fmt.Fprintf(f.writer, "  ✓ %-32s %4d both  %4d A only  %4d B only  %4d likely different\n",
			r.Category, t.Both, t.AOnly, t.BOnly, t.LikelyDifferent)
		total.Both += t.Both
		total.AOnly += t.AOnly
		total.BOnly += t.BOnly
		total.LikelyEqual += t.LikelyEqual
		total.LikelyDifferent += t.LikelyDifferent
	}

	fmt.Fprintf(f.writer, "\n%d categories loaded, %d failed: %d both, %d A only, %d B only\n",
		len(results)-failed, failed, total.Both, total.AOnly, total.BOnly)
	return nil
}

// Ledger displays the selection/review list
func (f *HumanFormatter) Ledger(entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(f.writer, "Review list is empty")
		return nil
	}

	fmt.Fprintf(f.writer, "%s\n", f.style.header.Render(fmt.Sprintf("Review list (%d)", len(entries))))
	for _, e := range entries {
		verdict := ""
		if e.Verdict != "" {
			verdict = f.style.verdict[e.Verdict].Render(string(e.Verdict))
		}
		fmt.Fprintf(f.writer, "  %-9s %s  %s\n", e.Origin, models.ComponentRef(e.Category, e.Entry), verdict)
	}
	return nil
}

// Error reports an error with its hint, if any
func (f *HumanFormatter) Error(err error) error {
	fmt.Fprintf(f.writer, "%s %v\n", f.style.failure.Render("Error:"), err)
	var failure *session.Failure
	if errors.As(err, &failure) && failure.Hint != "" {
		fmt.Fprintf(f.writer, "%s %s\n", f.style.dim.Render("Hint:"), failure.Hint)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
