package filter

import (
	"path"
	"strings"
)

// Excluded reports whether a category name or member file path matches
// one of the exclusion patterns. Patterns support:
//   - Simple glob patterns: Wave*, *Settings
//   - Directory patterns: __tests__/
//   - Path patterns: lwc/*/test/*, **/*.svg
func Excluded(name string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}

	name = strings.Trim(strings.ReplaceAll(name, "\\", "/"), "/")
	baseName := path.Base(name)

	for _, pattern := range patterns {
		pattern = strings.ReplaceAll(strings.TrimSpace(pattern), "\\", "/")
		if pattern == "" {
			continue
		}

		// Directory pattern: matches any path below that directory
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			if strings.HasPrefix(name, dir+"/") || strings.Contains(name, "/"+dir+"/") {
				return true
			}
			continue
		}

		// **/pattern matches pattern at any depth
		if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
			if matchGlob(baseName, rest) || matchGlob(name, rest) || strings.HasSuffix(name, "/"+rest) {
				return true
			}
			continue
		}

		// Patterns with a separator apply to the full path, others to
		// the base name
		target := baseName
		if strings.Contains(pattern, "/") {
			target = name
		}
		if matchGlob(target, pattern) {
			return true
		}
	}

	return false
}

// ExcludeNames returns names without the excluded ones
func ExcludeNames(names, patterns []string) []string {
	if len(patterns) == 0 {
		return names
	}
	kept := make([]string, 0, len(names))
	for _, name := range names {
		if !Excluded(name, patterns) {
			kept = append(kept, name)
		}
	}
	return kept
}

// matchGlob performs glob matching, treating malformed patterns as
// non-matching
func matchGlob(name, pattern string) bool {
	matched, _ := path.Match(pattern, name)
	return matched
}
