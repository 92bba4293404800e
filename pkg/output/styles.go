package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sdejongh/metadiff/pkg/models"
)

// palette holds the styles of the human formatter. Every style comes
// from one renderer bound to the output writer, so disabling color
// strips all of them at once.
type palette struct {
	header  lipgloss.Style
	dim     lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style

	presence map[models.Presence]lipgloss.Style
	hint     map[models.EqualityHint]lipgloss.Style
	verdict  map[models.Verdict]lipgloss.Style

	diffAdd    lipgloss.Style
	diffRemove lipgloss.Style
	diffHunk   lipgloss.Style
}

func newPalette(w io.Writer, color bool) palette {
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}

	badge := func(fg string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(fg)).Bold(true)
	}

	return palette{
		header:  r.NewStyle().Bold(true).Underline(true),
		dim:     r.NewStyle().Foreground(lipgloss.Color("245")),
		warn:    badge("214"),
		failure: badge("196"),
		presence: map[models.Presence]lipgloss.Style{
			models.PresenceAOnly: badge("39"),
			models.PresenceBOnly: badge("170"),
			models.PresenceBoth:  r.NewStyle().Foreground(lipgloss.Color("252")),
		},
		hint: map[models.EqualityHint]lipgloss.Style{
			models.HintLikelyEqual:     r.NewStyle().Foreground(lipgloss.Color("35")),
			models.HintLikelyDifferent: badge("208"),
			models.HintUnknown:         r.NewStyle().Foreground(lipgloss.Color("245")),
		},
		verdict: map[models.Verdict]lipgloss.Style{
			models.VerdictEqual:     badge("35"),
			models.VerdictDifferent: badge("196"),
			models.VerdictUnknown:   badge("245"),
		},
		diffAdd:    r.NewStyle().Foreground(lipgloss.Color("35")),
		diffRemove: r.NewStyle().Foreground(lipgloss.Color("196")),
		diffHunk:   r.NewStyle().Foreground(lipgloss.Color("39")),
	}
}

// presenceLabel returns the fixed-width display label of a presence
func presenceLabel(p models.Presence) string {
	switch p {
	case models.PresenceAOnly:
		return "A only"
	case models.PresenceBOnly:
		return "B only"
	default:
		return "both"
	}
}

// hintLabel returns the display label of an equality hint
func hintLabel(h models.EqualityHint) string {
	switch h {
	case models.HintLikelyEqual:
		return "likely equal"
	case models.HintLikelyDifferent:
		return "likely different"
	default:
		return ""
	}
}
