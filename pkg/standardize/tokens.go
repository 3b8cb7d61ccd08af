package standardize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type word kept in generated names ("Oak Hill Cemetery").
const keptTypeWord = "cemetery"

// nameTypeToken concatenates words[skip:] right to left into a lookup token.
// Type words seen before the first name word (i.e. trailing in the text) are
// split off into typ. Scanning stops at "now", and at "or" once something
// has been accumulated, unless "or" is the leftmost considered word.
// An empty name means there is nothing to look up.
func (s *Standardizer) nameTypeToken(words []string, skip int) (name, typ string) {
	expand := len(words)-skip > 1
	var (
		parts     []string // right to left
		foundName bool
	)
	for i := len(words) - 1; i >= skip; i-- {
		w := words[i]
		if w == "" {
			continue
		}
		if w == "now" || (w == "or" && i > skip && len(parts) > 0) {
			break
		}
		if expand {
			if e, ok := s.abbreviations[w]; ok {
				w = e
			}
		}
		if !s.typeWords[w] {
			if !foundName && len(parts) > 0 {
				typ = joinReversed(parts)
				parts = parts[:0]
			}
			foundName = true
		}
		parts = append(parts, w)
	}
	return joinReversed(parts), typ
}

func joinReversed(parts []string) string {
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteString(parts[i])
	}
	return b.String()
}

// IsTypeWord reports whether word, after abbreviation expansion, is a type
// word.
func (s *Standardizer) IsTypeWord(word string) bool {
	if e, ok := s.abbreviations[word]; ok {
		word = e
	}
	return s.typeWords[word]
}

// GeneratePlaceName renders tokenized words as a display name: trailing type
// words are dropped (except "cemetery"), unless every word is a type word,
// and each word is capitalized.
func (s *Standardizer) GeneratePlaceName(words []string) string {
	end := len(words)
	for end > 0 && s.IsTypeWord(words[end-1]) && words[end-1] != keptTypeWord {
		end--
	}
	if end == 0 {
		end = len(words)
	}
	// Only the first rune is raised: a title caser would turn "1st" into "1St".
	upper, lower := cases.Upper(language.Und), cases.Lower(language.Und)
	out := make([]string, 0, end)
	for _, w := range words[:end] {
		if w == "" {
			continue
		}
		_, size := utf8.DecodeRuneInString(w)
		out = append(out, upper.String(w[:size])+lower.String(w[size:]))
	}
	return strings.Join(out, " ")
}

func (s *Standardizer) hasNonNoise(words []string) bool {
	for _, w := range words {
		if !s.noiseWords[w] {
			return true
		}
	}
	return false
}

func (s *Standardizer) hasNonNoiseLevel(levels [][]string) bool {
	for _, words := range levels {
		if s.hasNonNoise(words) {
			return true
		}
	}
	return false
}

// promotable returns the skipped words worth a level of their own.
func (s *Standardizer) promotable(skipped []string) []string {
	var out []string
	for _, w := range skipped {
		if !s.noiseWords[w] && !s.IsTypeWord(w) {
			out = append(out, w)
		}
	}
	return out
}
