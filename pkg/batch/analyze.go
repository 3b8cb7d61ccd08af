package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hazyhaar/placestd/pkg/standardize"
)

// CountryMatches counts the best matches of one country by level.
type CountryMatches struct {
	Name    string
	Country int
	// Levels[i] counts matches at level i+1; the last entry also counts
	// every deeper level.
	Levels []int
}

// Total is the number of matches in the country.
func (c CountryMatches) Total() int {
	n := 0
	for _, v := range c.Levels {
		n += v
	}
	return n
}

// AnalyzeMatches standardizes each line of in and counts the matches per
// country and level, sorted by country name. The counts show which countries
// are matched deep enough to deserve a larger size bucket.
func AnalyzeMatches(ctx context.Context, s *standardize.Standardizer, in io.Reader) ([]CountryMatches, error) {
	maxLevels := s.MaxLevels()
	byName := make(map[string]*CountryMatches)

	sc := newScanner(in)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := s.Standardize(ctx, strings.TrimRight(sc.Text(), "\r"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p == nil {
			continue
		}
		full, err := s.FullName(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		name := full
		if i := strings.LastIndex(full, ","); i >= 0 {
			name = strings.TrimSpace(full[i+1:])
		}

		cm, ok := byName[name]
		if !ok {
			cm = &CountryMatches{Name: name, Country: p.Country, Levels: make([]int, maxLevels)}
			byName[name] = cm
		}
		cm.Levels[max(1, min(maxLevels, p.Level))-1]++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	out := make([]CountryMatches, 0, len(byName))
	for _, cm := range byName {
		out = append(out, *cm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WriteMatchCounts writes one "name,id,total,l1,...,lN" line per country.
func WriteMatchCounts(w io.Writer, counts []CountryMatches) error {
	bw := bufio.NewWriter(w)
	for _, cm := range counts {
		fmt.Fprintf(bw, "%s,%d,%d", cm.Name, cm.Country, cm.Total())
		for _, v := range cm.Levels {
			fmt.Fprintf(bw, ",%d", v)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
