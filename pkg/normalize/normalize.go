// Package normalize turns free-text place descriptions into comma-delimited
// levels of lowercase alphanumeric words.
//
// The conversion is lossy: punctuation is dropped, letters with a registered
// replacement are folded to ASCII, and letters from scripts that do not map to
// the Latin alphabet are discarded.
package normalize

import (
	"log/slog"
	"strings"
	"unicode"
)

// Levels is a tokenized place text. Levels[0] is the most specific level
// (leftmost in the source text); each level is an ordered list of words.
type Levels [][]string

// Clone returns a deep copy, so a resolver can mutate its own levels.
func (l Levels) Clone() Levels {
	out := make(Levels, len(l))
	for i, words := range l {
		out[i] = append([]string(nil), words...)
	}
	return out
}

// Result is the output of Tokenize.
type Result struct {
	Levels Levels
	// Untokenized lists the Latin-range letters that had no replacement and
	// were dropped.
	Untokenized []rune
}

// lastLatinLetter is the end of Latin Extended-B. Letters above it belong to
// scripts that do not romanize well and are dropped without a warning.
const lastLatinLetter = 0x024F

// quietLetters are dropped without a warning: the Spanish ordinal indicators
// (1ª, 2º) and Ezh / reversed Ezh, which only show up as noise.
var quietLetters = map[rune]bool{
	0x00AA: true,
	0x00BA: true,
	0x01B7: true,
	0x01B8: true,
}

// Normalizer tokenizes place text using a character replacement table.
// It is safe for concurrent use.
type Normalizer struct {
	replacements map[rune]string
	logger       *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for untokenized-letter warnings
// (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New creates a Normalizer. Replacement strings are lowercased; a nil table
// means ASCII only.
func New(replacements map[rune]string, opts ...Option) *Normalizer {
	n := &Normalizer{
		replacements: make(map[rune]string, len(replacements)),
		logger:       slog.Default(),
	}
	for r, s := range replacements {
		n.replacements[r] = strings.ToLower(s)
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Tokenize splits text into levels on commas and into words on whitespace.
// Empty levels are never produced.
func (n *Normalizer) Tokenize(text string) Result {
	return n.scan(text, true)
}

// Normalize returns all words of text concatenated into a single token,
// the form in which names are stored in the word index.
func (n *Normalizer) Normalize(text string) string {
	res := n.scan(text, false)
	var b strings.Builder
	for _, words := range res.Levels {
		for _, w := range words {
			b.WriteString(w)
		}
	}
	return b.String()
}

func (n *Normalizer) scan(text string, report bool) Result {
	var (
		res   Result
		level []string
		word  strings.Builder
	)
	flushWord := func() {
		if word.Len() > 0 {
			level = append(level, word.String())
			word.Reset()
		}
	}
	flushLevel := func() {
		flushWord()
		if len(level) > 0 {
			res.Levels = append(res.Levels, level)
			level = nil
		}
	}

	for _, r := range text {
		if r == ',' {
			flushLevel()
			continue
		}
		if unicode.IsSpace(r) {
			flushWord()
			continue
		}
		if rep, ok := n.replacements[r]; ok {
			word.WriteString(rep)
			continue
		}
		switch {
		case r >= 'A' && r <= 'Z':
			word.WriteRune(r + ('a' - 'A'))
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			word.WriteRune(r)
		case unicode.IsLetter(r) && r <= lastLatinLetter && !quietLetters[r]:
			if report {
				res.Untokenized = append(res.Untokenized, r)
				n.logger.Warn("untokenized letter", "letter", string(r), "code", int(r), "text", text)
			}
		}
	}
	flushLevel()
	return res
}

// Render joins levels back into text: words with a space, levels with ", ".
// Tokenize(Render(l)) == l for any tokenizer output l.
func Render(levels Levels) string {
	parts := make([]string, len(levels))
	for i, words := range levels {
		parts[i] = strings.Join(words, " ")
	}
	return strings.Join(parts, ", ")
}
