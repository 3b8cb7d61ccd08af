// Package batch runs a Standardizer over files of place texts, one per line,
// and writes the results and diagnostic reports used to tune the gazetteer.
package batch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/hazyhaar/placestd/pkg/normalize"
	"github.com/hazyhaar/placestd/pkg/standardize"
)

const progressEvery = 100000

// Reports are the optional diagnostic outputs of StandardizeFile. A nil
// writer disables that report.
type Reports struct {
	// Ambiguous: "text | full name of the top place".
	Ambiguous io.Writer
	// Missing: "text | suggested full name" for unmatched levels under a
	// single matched parent.
	Missing io.Writer
	// Phrases: display name of every unmatched level.
	Phrases io.Writer
	// Types: text whose type word matched no candidate.
	Types io.Writer
	// NotFound: text with no match at all.
	NotFound io.Writer
	// Skipped: "levels from here up | full name of the match" for skipped
	// parent levels.
	Skipped io.Writer
}

// Options configures StandardizeFile.
type Options struct {
	// MaxLines stops after this many lines; zero reads everything.
	MaxLines int
	// TopN lists up to TopN results per line; zero writes only the best
	// result as "text | full name".
	TopN int
	// AlsoLocatedIn lists the secondary parents of each result.
	AlsoLocatedIn bool
	Reports       Reports
	Logger        *slog.Logger
}

// Stats summarizes a batch run.
type Stats struct {
	Lines   int `json:"lines"`
	Matched int `json:"matched"`
}

// StandardizeFile standardizes each line of in and writes the results to
// out.
func StandardizeFile(ctx context.Context, s *standardize.Standardizer, in io.Reader, out io.Writer, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := bufio.NewWriter(out)
	rep := newReporter(ctx, s, opts.Reports)

	var stats Stats
	sc := newScanner(in)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.TrimRight(sc.Text(), "\r")

		n := opts.TopN
		if n <= 0 {
			n = 1
		}
		res, err := s.Resolve(ctx, standardize.Request{Text: line, Mode: standardize.ModeBest, MaxResults: n, Handler: rep})
		if err != nil {
			return stats, fmt.Errorf("line %d: %w", stats.Lines+1, err)
		}
		if rep.err != nil {
			return stats, fmt.Errorf("line %d: report: %w", stats.Lines+1, rep.err)
		}
		if len(res) > 0 {
			stats.Matched++
		}

		if opts.TopN <= 0 {
			if len(res) > 0 {
				name, err := s.FullName(ctx, res[0].Place)
				if err != nil {
					return stats, err
				}
				fmt.Fprintf(w, "%s | %s\n", line, name)
				if err := writeAlsoLocatedIn(ctx, s, w, res[0].Place, opts.AlsoLocatedIn); err != nil {
					return stats, err
				}
			}
		} else {
			fmt.Fprintln(w, line)
			for _, ps := range res {
				name, err := s.FullName(ctx, ps.Place)
				if err != nil {
					return stats, err
				}
				fmt.Fprintf(w, "\t%s\n", name)
				if err := writeAlsoLocatedIn(ctx, s, w, ps.Place, opts.AlsoLocatedIn); err != nil {
					return stats, err
				}
			}
		}

		stats.Lines++
		if stats.Lines%progressEvery == 0 {
			logger.Info("batch progress", "lines", stats.Lines, "matched", stats.Matched)
		}
		if stats.Lines == opts.MaxLines {
			break
		}
	}
	if err := sc.Err(); err != nil {
		return stats, fmt.Errorf("read input: %w", err)
	}
	if err := w.Flush(); err != nil {
		return stats, err
	}
	if err := rep.flush(); err != nil {
		return stats, err
	}
	logger.Info("batch done", "lines", stats.Lines, "matched", stats.Matched)
	return stats, nil
}

func writeAlsoLocatedIn(ctx context.Context, s *standardize.Standardizer, w io.Writer, p *gazetteer.Place, enabled bool) error {
	if !enabled || len(p.AlsoLocatedInIDs) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.AlsoLocatedInIDs))
	for _, id := range p.AlsoLocatedInIDs {
		also, err := s.Place(ctx, id)
		if err != nil {
			return err
		}
		name, err := s.FullName(ctx, also)
		if err != nil {
			return err
		}
		names = append(names, name)
	}
	_, err := fmt.Fprintf(w, "\talso located in = %s\n", strings.Join(names, ", "))
	return err
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	return sc
}

// reporter writes diagnostics to the report files. It is used from a single
// goroutine; the first failure is kept in err and stops the run.
type reporter struct {
	ctx context.Context
	s   *standardize.Standardizer

	ambiguous, missing, phrases, types, notFound, skipped *bufio.Writer

	err error
}

var _ standardize.ErrorHandler = (*reporter)(nil)

func newReporter(ctx context.Context, s *standardize.Standardizer, r Reports) *reporter {
	wrap := func(w io.Writer) *bufio.Writer {
		if w == nil {
			return nil
		}
		return bufio.NewWriter(w)
	}
	return &reporter{
		ctx:       ctx,
		s:         s,
		ambiguous: wrap(r.Ambiguous),
		missing:   wrap(r.Missing),
		phrases:   wrap(r.Phrases),
		types:     wrap(r.Types),
		notFound:  wrap(r.NotFound),
		skipped:   wrap(r.Skipped),
	}
}

func (r *reporter) flush() error {
	for _, w := range []*bufio.Writer{r.ambiguous, r.missing, r.phrases, r.types, r.notFound, r.skipped} {
		if w == nil {
			continue
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush report: %w", err)
		}
	}
	return nil
}

func (r *reporter) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reporter) fullName(id int) (string, bool) {
	p, err := r.s.Place(r.ctx, id)
	if err != nil {
		r.fail(err)
		return "", false
	}
	name, err := r.s.FullName(r.ctx, p)
	if err != nil {
		r.fail(err)
		return "", false
	}
	return name, true
}

func hasDigit(words []string) bool {
	for _, w := range words {
		if strings.ContainsAny(w, "0123456789") {
			return true
		}
	}
	return false
}

func (r *reporter) TokenNotFound(_ context.Context, text string, levels normalize.Levels, level int, parentIDs []int) {
	words := levels[level]
	// Numbered phrases are usually addresses or plot numbers.
	if len(words) == 0 || hasDigit(words) {
		return
	}
	name := r.s.GeneratePlaceName(words)
	// Not every church and hospital deserves a place of its own.
	last := words[len(words)-1]
	if r.missing != nil && len(parentIDs) == 1 && last != "church" && last != "hospital" {
		if parent, ok := r.fullName(parentIDs[0]); ok {
			fmt.Fprintf(r.missing, "%s | %s, %s\n", text, name, parent)
		}
	}
	if r.phrases != nil {
		fmt.Fprintln(r.phrases, name)
	}
}

func (r *reporter) SkippingParentLevel(_ context.Context, _ string, levels normalize.Levels, level int, ids []int) {
	if r.skipped == nil || len(ids) == 0 {
		return
	}
	words := levels[level]
	if len(words) == 0 || hasDigit(words) {
		return
	}
	names := make([]string, 0, len(levels)-level)
	for _, l := range levels[level:] {
		names = append(names, r.s.GeneratePlaceName(l))
	}
	if match, ok := r.fullName(ids[0]); ok {
		fmt.Fprintf(r.skipped, "%s | %s\n", strings.Join(names, ", "), match)
	}
}

func (r *reporter) TypeNotFound(_ context.Context, text string, _ normalize.Levels, _ int, _ []int) {
	if r.types != nil {
		fmt.Fprintln(r.types, text)
	}
}

func (r *reporter) Ambiguous(_ context.Context, text string, _ normalize.Levels, _ []int, top *gazetteer.Place) {
	if r.ambiguous == nil {
		return
	}
	name, err := r.s.FullName(r.ctx, top)
	if err != nil {
		r.fail(err)
		return
	}
	fmt.Fprintf(r.ambiguous, "%s | %s\n", text, name)
}

func (r *reporter) PlaceNotFound(_ context.Context, text string, _ normalize.Levels) {
	if r.notFound != nil {
		fmt.Fprintln(r.notFound, text)
	}
}
