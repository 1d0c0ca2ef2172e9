package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reSpaces = regexp.MustCompile(`\s+`)

// FoldHeader lowercases, strips diacritics and collapses whitespace so that
// "Conversões " and "conversoes" compare equal.
func FoldHeader(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, input)
	if err != nil {
		s = input
	}
	s = strings.ToLower(s)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func ContainsAny(haystack string, needles []string) bool {
	h := FoldHeader(haystack)
	for _, n := range needles {
		if n = FoldHeader(n); n != "" && strings.Contains(h, n) {
			return true
		}
	}
	return false
}
