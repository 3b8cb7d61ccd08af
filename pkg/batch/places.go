package batch

import (
	"bufio"
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// Counts is a frequency table of strings.
type Counts map[string]int

// Total is the number of counted occurrences.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// WriteCounts writes one "value\tcount" line per entry, most frequent
// first, ties by value.
func WriteCounts(w io.Writer, c Counts) error {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if n := cmp.Compare(c[b], c[a]); n != 0 {
			return n
		}
		return strings.Compare(a, b)
	})

	bw := bufio.NewWriter(w)
	for _, k := range keys {
		fmt.Fprintf(bw, "%s\t%d\n", k, c[k])
	}
	return bw.Flush()
}

// PlaceStats are the raw-text frequencies of a file of place texts. They
// are read by hand to find type words, noise words and abbreviations the
// configuration is missing.
type PlaceStats struct {
	Lines int
	// Places counts whole lines, lowercased.
	Places Counts
	// Words and Numbers count the comma- and space-separated pieces.
	Words   Counts
	Numbers Counts
	// Endings counts the last comma-separated level, usually the country.
	Endings Counts
}

// PlacesOptions configures AnalyzePlaces.
type PlacesOptions struct {
	// Reversed receives every ReverseEvery-th line spelled backwards, which
	// groups lines by their endings when sorted. Nil disables it.
	Reversed     io.Writer
	ReverseEvery int
}

func isNumber(s string) bool {
	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return false
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func reverse(s string) string {
	r := []rune(s)
	slices.Reverse(r)
	return string(r)
}

// AnalyzePlaces counts the lines, words, numbers and endings of in. Blank
// lines are skipped.
func AnalyzePlaces(ctx context.Context, in io.Reader, opts PlacesOptions) (*PlaceStats, error) {
	if opts.ReverseEvery <= 0 {
		opts.ReverseEvery = 10
	}
	stats := &PlaceStats{Places: Counts{}, Words: Counts{}, Numbers: Counts{}, Endings: Counts{}}
	var rev *bufio.Writer
	if opts.Reversed != nil {
		rev = bufio.NewWriter(opts.Reversed)
	}

	sc := newScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.ToLower(strings.TrimSpace(sc.Text()))
		if line == "" {
			continue
		}
		stats.Lines++
		stats.Places[line]++

		for _, piece := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' }) {
			if isNumber(piece) {
				stats.Numbers[piece]++
			} else {
				stats.Words[piece]++
			}
		}

		last := line
		if i := strings.LastIndexByte(line, ','); i >= 0 {
			last = line[i+1:]
		}
		if last = strings.TrimSpace(last); last != "" {
			stats.Endings[last]++
		}

		if rev != nil && stats.Lines%opts.ReverseEvery == 0 {
			fmt.Fprintln(rev, reverse(line))
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	if rev != nil {
		if err := rev.Flush(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}
