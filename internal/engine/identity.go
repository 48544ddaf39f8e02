package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// FingerprintLength is the number of identifier characters the telemetry source keeps.
const FingerprintLength = 8

// Fingerprint returns the lowercase 8-character prefix of a participant identifier.
// Shorter identifiers are returned whole, lowercased. Characters are runes, so
// a non-ASCII identifier is never cut mid-character.
func Fingerprint(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	n := 0
	for i := range id {
		if n == FingerprintLength {
			return id[:i]
		}
		n++
	}
	return id
}

// NormalizeName prepares a participant name for display and comparison.
// It strips Enemy Territory colour codes (^ followed by one character),
// drops control characters, collapses whitespace and applies NFC.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	runes := []rune(name)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '^' && i+1 < len(runes) {
			i++
			continue
		}
		if unicode.IsSpace(r) {
			b.WriteByte(' ')
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}

	return norm.NFC.String(strings.Join(strings.Fields(b.String()), " "))
}
