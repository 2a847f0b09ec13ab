// Package slug turns titles into URL path segments.
package slug

import (
	"strconv"
	"strings"
)

const Fallback = "untitled"

// Generate lower-cases title and collapses every run of characters outside
// [a-z0-9] into a single hyphen, trimming hyphens at both ends. A title with
// no usable characters yields Fallback.
func Generate(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	pendingHyphen := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}

	if b.Len() == 0 {
		return Fallback
	}
	return b.String()
}

// Valid reports whether s can name an entry file: a non-empty run of ASCII
// letters, digits, hyphens and underscores that starts with a letter or digit.
// Anything Generate returns is valid.
func Valid(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case (c == '-' || c == '_') && i > 0:
		default:
			return false
		}
	}
	return true
}

// EnsureUnique returns s if it is not in existing, otherwise the first of
// s-2, s-3, ... that is free.
func EnsureUnique(s string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		taken[e] = struct{}{}
	}

	if _, ok := taken[s]; !ok {
		return s
	}
	for n := 2; ; n++ {
		candidate := s + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}
