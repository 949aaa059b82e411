package abr

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var entitySuffixes = regexp.MustCompile(
	`(?i)\s*,?\s*\b(PTY\.?\s*LTD\.?|PTY\.?\s*LIMITED|PROPRIETARY\s+LIMITED|PTY\.?|` +
		`LTD\.?|LIMITED|INC\.?|INCORPORATED|CORP\.?|CORPORATION|CO\.?|COMPANY|` +
		`LLC|L\.?L\.?C\.?|PLC|GROUP|HOLDINGS|AUSTRALIA)\s*\.?\s*$`)

var (
	multiSpace = regexp.MustCompile(`\s{2,}`)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}&\s]+`)
)

// Normalize folds accents, strips punctuation and trailing entity suffixes,
// and upper-cases name so register entries compare equal to user input.
// Suffixes are stripped repeatedly ("Acme Holdings Pty Ltd" → "ACME").
func Normalize(name string) string {
	n := foldAccents(strings.TrimSpace(name))
	n = strings.ToUpper(n)
	for {
		stripped := strings.TrimSpace(entitySuffixes.ReplaceAllString(n, ""))
		if stripped == n || stripped == "" {
			break
		}
		n = stripped
	}
	n = nonWord.ReplaceAllString(n, " ")
	n = multiSpace.ReplaceAllString(n, " ")
	return strings.TrimSpace(n)
}

// SameEntity reports whether two names normalise to the same value.
func SameEntity(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	return na != "" && na == nb
}

func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
