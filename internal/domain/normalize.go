package domain

import (
	"strings"
	"unicode"
)

// NormalizeText prepares a name for comparison:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - compresses any run of whitespace into a single space
//
// Diacritics, hyphens, and punctuation are preserved, so "Acme Finance Co."
// and "Acme Finance Co" remain distinct names.
func NormalizeText(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(text))
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			prevSpace = true
			b.WriteByte(' ')
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
