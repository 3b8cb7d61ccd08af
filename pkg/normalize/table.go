package normalize

import (
	"strings"
	"sync"
	"unicode"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// firstAccentedLetter is À, the first letter of Latin-1 Supplement.
const firstAccentedLetter = 0x00C0

var defaultReplacements = sync.OnceValue(func() map[rune]string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	table := make(map[rune]string)
	for r := rune(firstAccentedLetter); r <= lastLatinLetter; r++ {
		if !unicode.IsLetter(r) {
			continue
		}
		folded, _, err := transform.String(stripMarks, string(r))
		if err != nil || !isASCIIAlnum(folded) {
			// Ligatures and barred letters (æ, ß, ø, ł) have no decomposition.
			folded = unidecode.Unidecode(string(r))
		}
		folded = strings.ToLower(strings.TrimSpace(folded))
		if isASCIIAlnum(folded) {
			table[r] = folded
		}
	}
	return table
})

// DefaultReplacements returns the built-in replacement table covering the
// letters of Latin-1 Supplement and Latin Extended-A/B. The returned map is a
// copy and may be modified.
func DefaultReplacements() map[rune]string {
	src := defaultReplacements()
	out := make(map[rune]string, len(src))
	for r, s := range src {
		out[r] = s
	}
	return out
}

func isASCIIAlnum(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return true
}
