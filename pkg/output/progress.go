package output

import (
	"io"

	"github.com/cheggaaa/pb/v3"
)

// progressTemplate shows the finished count, the bar and the step that
// finished last
const progressTemplate = `{{string . "title"}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "step"}}`

// Progress displays the progress of bulk work as a progress bar. A
// disabled Progress only counts failures. It is not safe for concurrent
// use.
type Progress struct {
	bar    *pb.ProgressBar
	failed int
}

// NewProgress starts a progress bar of total steps on w. The bar is
// disabled when enabled is false or w is not a terminal.
func NewProgress(w io.Writer, title string, total int, enabled bool) *Progress {
	if !enabled || total == 0 || !IsTerminal(w) {
		return &Progress{}
	}
	bar := pb.ProgressBarTemplate(progressTemplate).New(total)
	bar.SetWriter(w)
	bar.SetMaxWidth(Width(w))
	bar.Set("title", title)
	bar.Start()
	return &Progress{bar: bar}
}

// Advance records one finished step named label
func (p *Progress) Advance(label string, err error) {
	if err != nil {
		p.failed++
	}
	if p.bar == nil {
		return
	}
	p.bar.Set("step", label)
	p.bar.Increment()
}

// Failed returns the number of failed steps seen so far
func (p *Progress) Failed() int {
	return p.failed
}

// Finish stops the bar
func (p *Progress) Finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
