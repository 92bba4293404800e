package models

// Category represents one kind of artifact grouping in an environment
// (a metadata type). Only Name and Composite are interpreted by the core;
// the rest is carried through unmodified.
type Category struct {
	// Name is the unique identifier of the category and the union key
	Name string `json:"name"`

	// DirectoryName is the on-disk directory convention for the category
	DirectoryName string `json:"directory_name,omitempty"`

	// Suffix is the on-disk file suffix, empty when the category has none
	Suffix string `json:"suffix,omitempty"`

	// InFolder indicates entries live inside named folders
	InFolder bool `json:"in_folder,omitempty"`

	// MetaFile indicates entries carry a companion metadata file
	MetaFile bool `json:"meta_file,omitempty"`

	// Composite indicates each entry is a bundle of member files
	Composite bool `json:"composite,omitempty"`

	// ChildNames lists child category names, if any
	ChildNames []string `json:"child_names,omitempty"`
}

// Entry is one artifact instance within a category, as reported by a
// single environment. It is never annotated in place.
type Entry struct {
	// Name is unique within its category and environment and is the union key
	Name string `json:"name"`

	// Fingerprint is an environment-supplied proxy for content. Empty means
	// the environment did not expose one. It is a hint, never proof.
	Fingerprint string `json:"fingerprint,omitempty"`

	// Meta holds opaque pass-through metadata (ids, timestamps, file names)
	Meta map[string]string `json:"meta,omitempty"`
}

// HasFingerprint reports whether the environment exposed a fingerprint
func (e *Entry) HasFingerprint() bool {
	return e != nil && e.Fingerprint != ""
}

// Presence indicates which environment(s) an entry exists in
type Presence string

const (
	// PresenceAOnly indicates the entry exists in environment A only
	PresenceAOnly Presence = "A_ONLY"
	// PresenceBOnly indicates the entry exists in environment B only
	PresenceBOnly Presence = "B_ONLY"
	// PresenceBoth indicates the entry exists in both environments
	PresenceBoth Presence = "BOTH"
)

// EqualityHint is the best-effort equality signal derived from listing data
type EqualityHint string

const (
	// HintLikelyEqual indicates both fingerprints are present and equal
	HintLikelyEqual EqualityHint = "LIKELY_EQUAL"
	// HintLikelyDifferent indicates both fingerprints are present and differ
	HintLikelyDifferent EqualityHint = "LIKELY_DIFFERENT"
	// HintUnknown indicates no hint can be derived
	HintUnknown EqualityHint = "UNKNOWN"
)

// AnnotatedEntry is one row of a ReconciledView
type AnnotatedEntry struct {
	Name     string       `json:"name"`
	Presence Presence     `json:"presence"`
	Hint     EqualityHint `json:"hint"`

	// A and B are the raw entries from each side, nil when absent
	A *Entry `json:"a,omitempty"`
	B *Entry `json:"b,omitempty"`
}

// ReconciledView is the unioned, annotated entry list of one category,
// sorted by name. It must be treated as immutable once produced.
type ReconciledView struct {
	Category string           `json:"category"`
	Entries  []AnnotatedEntry `json:"entries"`

	// CountA and CountB are the raw input sizes on each side
	CountA int `json:"count_a"`
	CountB int `json:"count_b"`
}

// Find returns the entry with the given name, or nil
func (v *ReconciledView) Find(name string) *AnnotatedEntry {
	if v == nil {
		return nil
	}
	for i := range v.Entries {
		if v.Entries[i].Name == name {
			return &v.Entries[i]
		}
	}
	return nil
}

// Tally counts entries per presence and per hint
func (v *ReconciledView) Tally() ViewTally {
	var t ViewTally
	if v == nil {
		return t
	}
	for _, e := range v.Entries {
		switch e.Presence {
		case PresenceAOnly:
			t.AOnly++
		case PresenceBOnly:
			t.BOnly++
		case PresenceBoth:
			t.Both++
		}
		switch e.Hint {
		case HintLikelyEqual:
			t.LikelyEqual++
		case HintLikelyDifferent:
			t.LikelyDifferent++
		}
	}
	return t
}

// ViewTally holds per-presence and per-hint counts of a view
type ViewTally struct {
	AOnly           int `json:"a_only"`
	BOnly           int `json:"b_only"`
	Both            int `json:"both"`
	LikelyEqual     int `json:"likely_equal"`
	LikelyDifferent int `json:"likely_different"`
}

// UnionedCategories is the deduplicated, name-sorted category list of an
// environment pair. The raw counts let callers judge list divergence.
type UnionedCategories struct {
	Categories []Category `json:"categories"`
	CountA     int        `json:"count_a"`
	CountB     int        `json:"count_b"`
}

// Divergence returns |CountA-CountB| relative to the larger count, in [0,1]
func (u *UnionedCategories) Divergence() float64 {
	larger, smaller := u.CountA, u.CountB
	if smaller > larger {
		larger, smaller = smaller, larger
	}
	if larger == 0 {
		return 0
	}
	return float64(larger-smaller) / float64(larger)
}

// Lookup returns the category with the given name, or nil
func (u *UnionedCategories) Lookup(name string) *Category {
	if u == nil {
		return nil
	}
	for i := range u.Categories {
		if u.Categories[i].Name == name {
			return &u.Categories[i]
		}
	}
	return nil
}

// FileEntry is one member file of a composite entry. File-level
// fingerprints are not available, so there is no hint.
type FileEntry struct {
	Path     string   `json:"path"`
	Presence Presence `json:"presence"`
}

// UnionedFileList is the path-sorted member file union of a composite entry
type UnionedFileList struct {
	Category string      `json:"category"`
	Entry    string      `json:"entry"`
	Files    []FileEntry `json:"files"`
}
