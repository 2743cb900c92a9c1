// Package normalize holds the small canonicalization helpers applied to
// values before they are stored or compared.
package normalize

import "strings"

// Email returns a normalized form of an email address suitable for
// storage and comparisons. Normalization currently trims surrounding
// whitespace and lower-cases the address.
func Email(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// UserID trims surrounding whitespace from an opaque user identifier.
// Identifiers are case sensitive so nothing else is touched.
func UserID(id string) string {
	return strings.TrimSpace(id)
}

// Content returns chat text with surrounding whitespace removed. A message
// that is empty after normalization must be rejected by the caller.
func Content(s string) string {
	return strings.TrimSpace(s)
}
