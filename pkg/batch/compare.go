package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/hazyhaar/placestd/pkg/standardize"
)

// CompareStats counts agreements with the other system.
type CompareStats struct {
	Same      int `json:"same"`
	Different int `json:"different"`
}

// Total is the number of compared lines.
func (c CompareStats) Total() int { return c.Same + c.Different }

var parenthetical = regexp.MustCompile(`\s*\([^)]*\)`)

// canonicalName drops the differences that don't change the meaning of a full
// name: case, leading and trailing commas, and parenthetical type names
// such as "Kent (county)".
func canonicalName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, ", ")
	return parenthetical.ReplaceAllString(name, "")
}

// CompareMatches reads "text|their full name" lines, standardizes text and
// writes "text|our full name|their full name" to out for every
// disagreement.
func CompareMatches(ctx context.Context, s *standardize.Standardizer, in io.Reader, out io.Writer) (CompareStats, error) {
	var stats CompareStats
	w := bufio.NewWriter(out)

	sc := newScanner(in)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		text, theirs, _ := strings.Cut(strings.TrimRight(sc.Text(), "\r"), "|")
		if text == "" && theirs == "" {
			continue
		}

		ours := ""
		p, err := s.Standardize(ctx, text)
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", line, err)
		}
		if p != nil {
			if ours, err = s.FullName(ctx, p); err != nil {
				return stats, fmt.Errorf("line %d: %w", line, err)
			}
		}

		if canonicalName(ours) == canonicalName(theirs) {
			stats.Same++
			continue
		}
		stats.Different++
		fmt.Fprintf(w, "%s|%s|%s\n", text, ours, theirs)
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	return stats, w.Flush()
}
