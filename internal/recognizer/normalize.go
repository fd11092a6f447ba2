package recognizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// removeDiacritics strips diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func removeDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizeUserID canonicalizes a user identifier so that enrollments and
// lookups agree on one spelling (lowercase, no diacritics, underscores for
// whitespace).
func NormalizeUserID(id string) string {
	id = strings.TrimSpace(id)
	id = removeDiacritics(id)
	id = strings.ToLower(id)
	id = strings.Join(strings.Fields(id), "_")
	return id
}
