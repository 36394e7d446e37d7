// CLAUDE:SUMMARY Name normalization (lowercase + Polish diacritic strip + space removal) for column and station matching.
package table

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// polishBase maps the letters NFD cannot decompose (ł has no combining form).
var polishBase = runes.Map(func(r rune) rune {
	switch r {
	case 'ł':
		return 'l'
	case 'Ł':
		return 'L'
	}
	return r
})

var stripDiacritics = transform.Chain(polishBase, norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics and removes spaces
// (e.g. "Łódź Wodowskaz" -> "lodzwodowskaz").
// The IMGW API expects station identifiers in this form.
func Normalize(s string) string {
	result, _, err := transform.String(stripDiacritics, strings.ToLower(s))
	if err != nil {
		result = strings.ToLower(s)
	}
	return strings.ReplaceAll(result, " ", "")
}
