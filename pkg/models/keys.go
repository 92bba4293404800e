package models

import "strings"

// ViewKey identifies a cached ReconciledView
type ViewKey struct {
	EnvA     string
	EnvB     string
	Category string
}

// FileListKey identifies a cached UnionedFileList
type FileListKey struct {
	EnvA     string
	EnvB     string
	Category string
	Entry    string
}

// NewViewKey builds a ViewKey with a normalized category name
func NewViewKey(pair EnvironmentPair, category string) ViewKey {
	return ViewKey{EnvA: pair.A, EnvB: pair.B, Category: NormalizeName(category)}
}

// NewFileListKey builds a FileListKey with normalized names
func NewFileListKey(pair EnvironmentPair, category, entry string) FileListKey {
	return FileListKey{
		EnvA:     pair.A,
		EnvB:     pair.B,
		Category: NormalizeName(category),
		Entry:    NormalizeName(entry),
	}
}

func (k ViewKey) String() string {
	return k.EnvA + "|" + k.EnvB + "|" + k.Category
}

func (k FileListKey) String() string {
	return k.EnvA + "|" + k.EnvB + "|" + k.Category + "|" + k.Entry
}

// NormalizeName trims surrounding whitespace from a category or entry
// name. Case is preserved: names are compared case-sensitively.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// NormalizePath converts a member file path to forward-slash relative form
func NormalizePath(path string) string {
	p := strings.ReplaceAll(strings.TrimSpace(path), "\\", "/")
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}

// ComponentRef renders the "Category:Name" reference used by the
// external CLI to address a single entry
func ComponentRef(category, entry string) string {
	return NormalizeName(category) + ":" + NormalizeName(entry)
}

// SplitComponentRef splits a "Category:Name" reference. Names may contain
// colons, so only the first separator is significant.
func SplitComponentRef(ref string) (category, entry string, ok bool) {
	category, entry, ok = strings.Cut(ref, ":")
	if !ok {
		return "", "", false
	}
	category, entry = NormalizeName(category), NormalizeName(entry)
	if category == "" || entry == "" {
		return "", "", false
	}
	return category, entry, true
}
