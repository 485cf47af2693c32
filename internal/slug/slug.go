// Package slug derives URL-safe tokens from page titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^a-z0-9-_]`)
	dashRunRe    = regexp.MustCompile(`--+`)

	// NFKD decomposition followed by removal of combining marks strips
	// diacritics: "Çağ" -> "Cag".
	foldTransformer = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
)

// Make converts arbitrary text into a URL-safe slug token.
// The transform is pure and idempotent; the empty string maps to the empty
// string, which callers must treat as a validation failure.
func Make(text string) string {
	s := strings.ToLower(text)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = invalidRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
