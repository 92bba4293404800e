// Package filter narrows a reconciled view for display: fuzzy name
// matching plus presence and hint filters. Filtering never mutates the
// input view.
package filter

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
	"github.com/sdejongh/metadiff/pkg/models"
)

// slab sizes match fzf's defaults for single-line items
const (
	slab16Size = 100 * 1024
	slab32Size = 2048
)

var initOnce sync.Once

// Criteria selects entries. Zero values match everything.
type Criteria struct {
	// Pattern is matched fuzzily against entry names. Matching is
	// case-insensitive unless the pattern contains an upper-case letter.
	Pattern string

	// Presence keeps only entries with one of these presences
	Presence []models.Presence

	// Hints keeps only entries with one of these hints
	Hints []models.EqualityHint

	// Ranked orders results by match score instead of by name
	Ranked bool
}

// IsZero reports whether c matches every entry
func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Pattern) == "" && len(c.Presence) == 0 && len(c.Hints) == 0
}

// Matcher applies Criteria. It owns a scratch slab and is not safe for
// concurrent use.
type Matcher struct {
	slab *util.Slab
}

// NewMatcher creates a Matcher
func NewMatcher() *Matcher {
	initOnce.Do(func() { algo.Init("default") })
	return &Matcher{slab: util.MakeSlab(slab16Size, slab32Size)}
}

// Apply returns a new view holding the entries of view selected by c.
// Counts are carried over from the input so divergence stays visible.
func Apply(view *models.ReconciledView, c Criteria) *models.ReconciledView {
	return NewMatcher().Apply(view, c)
}

// Apply returns a new view holding the entries of view selected by c
func (m *Matcher) Apply(view *models.ReconciledView, c Criteria) *models.ReconciledView {
	if view == nil {
		return nil
	}
	out := &models.ReconciledView{
		Category: view.Category,
		CountA:   view.CountA,
		CountB:   view.CountB,
		Entries:  make([]models.AnnotatedEntry, 0, len(view.Entries)),
	}

	presence := toSet(c.Presence)
	hints := toSet(c.Hints)
	pattern := []rune(strings.TrimSpace(c.Pattern))
	caseSensitive := hasUpper(pattern)
	if !caseSensitive {
		pattern = []rune(strings.ToLower(string(pattern)))
	}

	scores := make(map[string]int, len(view.Entries))
	for _, e := range view.Entries {
		if len(presence) > 0 && !presence[e.Presence] {
			continue
		}
		if len(hints) > 0 && !hints[e.Hint] {
			continue
		}
		if len(pattern) > 0 {
			score, ok := m.Score(e.Name, pattern, caseSensitive)
			if !ok {
				continue
			}
			scores[e.Name] = score
		}
		out.Entries = append(out.Entries, e)
	}

	if c.Ranked && len(pattern) > 0 {
		sort.SliceStable(out.Entries, func(i, j int) bool {
			return scores[out.Entries[i].Name] > scores[out.Entries[j].Name]
		})
	}
	return out
}

// Score fuzzily matches pattern against name and returns the fzf score
func (m *Matcher) Score(name string, pattern []rune, caseSensitive bool) (int, bool) {
	chars := util.ToChars([]byte(name))
	res, _ := algo.FuzzyMatchV2(caseSensitive, false, true, &chars, pattern, false, m.slab)
	if res.Start < 0 {
		return 0, false
	}
	return res.Score, true
}

// ParsePresence parses a presence filter value such as "a_only" or "both"
func ParsePresence(s string) (models.Presence, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "A_ONLY", "A":
		return models.PresenceAOnly, true
	case "B_ONLY", "B":
		return models.PresenceBOnly, true
	case "BOTH":
		return models.PresenceBoth, true
	default:
		return "", false
	}
}

// ParseHint parses a hint filter value such as "likely_different"
func ParseHint(s string) (models.EqualityHint, bool) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")) {
	case "LIKELY_EQUAL", "EQUAL":
		return models.HintLikelyEqual, true
	case "LIKELY_DIFFERENT", "DIFFERENT":
		return models.HintLikelyDifferent, true
	case "UNKNOWN":
		return models.HintUnknown, true
	default:
		return "", false
	}
}

func toSet[T comparable](items []T) map[T]bool {
	if len(items) == 0 {
		return nil
	}
	set := make(map[T]bool, len(items))
	for _, it := range items {
		set[it] = true
	}
	return set
}

func hasUpper(r []rune) bool {
	for _, c := range r {
		if unicode.IsUpper(c) {
			return true
		}
	}
	return false
}
