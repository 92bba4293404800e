// Package reconcile unions per-environment listings into comparable views.
//
// Every function here is pure: it operates on already-fetched lists, never
// fails, and degrades missing data to UNKNOWN hints or empty results.
package reconcile

import (
	"sort"

	"github.com/sdejongh/metadiff/pkg/models"
)

// UnionCategories deduplicates two category lists by name and sorts the
// result. When a name appears more than once, the first occurrence wins:
// A is scanned before B, so A's metadata is kept for shared categories.
// The raw input sizes are exposed so callers can judge list divergence.
func UnionCategories(listA, listB []models.Category) *models.UnionedCategories {
	seen := make(map[string]bool, len(listA)+len(listB))
	merged := make([]models.Category, 0, len(listA)+len(listB))

	for _, list := range [][]models.Category{listA, listB} {
		for _, c := range list {
			name := models.NormalizeName(c.Name)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			c.Name = name
			merged = append(merged, c)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Name < merged[j].Name
	})

	return &models.UnionedCategories{
		Categories: merged,
		CountA:     len(listA),
		CountB:     len(listB),
	}
}

// UnionEntries builds the ReconciledView of one category from the raw
// entry lists of environment A and B.
//
// Entries present on both sides get an equality hint from their
// fingerprints: LIKELY_DIFFERENT when they differ, LIKELY_EQUAL when they
// match, UNKNOWN when either side has none. One-sided entries are always
// UNKNOWN. Entries with an empty name are dropped; duplicate names within
// one side keep their first occurrence.
func UnionEntries(category string, entriesA, entriesB []models.Entry) *models.ReconciledView {
	byNameB := make(map[string]*models.Entry, len(entriesB))
	orderB := make([]string, 0, len(entriesB))
	for i := range entriesB {
		name := models.NormalizeName(entriesB[i].Name)
		if name == "" {
			continue
		}
		if _, dup := byNameB[name]; dup {
			continue
		}
		byNameB[name] = cloneEntry(&entriesB[i], name)
		orderB = append(orderB, name)
	}

	out := make([]models.AnnotatedEntry, 0, len(entriesA)+len(entriesB))
	matched := make(map[string]bool, len(entriesA))

	for i := range entriesA {
		name := models.NormalizeName(entriesA[i].Name)
		if name == "" || matched[name] {
			continue
		}
		matched[name] = true
		a := cloneEntry(&entriesA[i], name)

		b, found := byNameB[name]
		if !found {
			out = append(out, models.AnnotatedEntry{
				Name:     name,
				Presence: models.PresenceAOnly,
				Hint:     models.HintUnknown,
				A:        a,
			})
			continue
		}

		out = append(out, models.AnnotatedEntry{
			Name:     name,
			Presence: models.PresenceBoth,
			Hint:     Hint(a, b),
			A:        a,
			B:        b,
		})
	}

	for _, name := range orderB {
		if matched[name] {
			continue
		}
		out = append(out, models.AnnotatedEntry{
			Name:     name,
			Presence: models.PresenceBOnly,
			Hint:     models.HintUnknown,
			B:        byNameB[name],
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})

	return &models.ReconciledView{
		Category: models.NormalizeName(category),
		Entries:  out,
		CountA:   len(entriesA),
		CountB:   len(entriesB),
	}
}

// Hint derives the equality hint of two counterpart entries. It never
// strengthens a fingerprint match into proof of equality.
func Hint(a, b *models.Entry) models.EqualityHint {
	if !a.HasFingerprint() || !b.HasFingerprint() {
		return models.HintUnknown
	}
	if a.Fingerprint != b.Fingerprint {
		return models.HintLikelyDifferent
	}
	return models.HintLikelyEqual
}

// UnionFiles unions the member file paths of a composite entry. Only path
// existence is known, so file rows carry presence without a hint.
func UnionFiles(category, entry string, pathsA, pathsB []string) *models.UnionedFileList {
	inB := make(map[string]bool, len(pathsB))
	for _, p := range pathsB {
		if p = models.NormalizePath(p); p != "" {
			inB[p] = true
		}
	}

	files := make([]models.FileEntry, 0, len(pathsA)+len(pathsB))
	seen := make(map[string]bool, len(pathsA)+len(pathsB))

	for _, p := range pathsA {
		p = models.NormalizePath(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		presence := models.PresenceAOnly
		if inB[p] {
			presence = models.PresenceBoth
		}
		files = append(files, models.FileEntry{Path: p, Presence: presence})
	}

	for _, p := range pathsB {
		p = models.NormalizePath(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		files = append(files, models.FileEntry{Path: p, Presence: models.PresenceBOnly})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return &models.UnionedFileList{
		Category: models.NormalizeName(category),
		Entry:    models.NormalizeName(entry),
		Files:    files,
	}
}

// cloneEntry copies an entry so views never alias caller-owned slices
func cloneEntry(e *models.Entry, name string) *models.Entry {
	c := *e
	c.Name = name
	if e.Meta != nil {
		c.Meta = make(map[string]string, len(e.Meta))
		for k, v := range e.Meta {
			c.Meta[k] = v
		}
	}
	return &c
}
