package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hazyhaar/placestd/pkg/batch"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/spf13/cobra"
)

// openInput opens path for reading; "-" is stdin.
func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// createOutput creates path for writing; "" and "-" are stdout.
func createOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func (a *app) standardizeCmd() *cobra.Command {
	var (
		text          string
		country       string
		mode          string
		out           string
		topN          int
		maxLines      int
		alsoLocatedIn bool
		reportsDir    string
	)
	cmd := &cobra.Command{
		Use:   "standardize [file]",
		Short: "Standardize one place text, or a file with one text per line",
		Long: `Standardize --text prints the matches of a single text. With a file
argument ("-" for stdin) every line is standardized and written as
"text | full name", or with --top-n as the text followed by up to N
indented full names. --reports-dir writes the diagnostic reports
(ambiguous, missing, phrases, types, notfound, skipped) used to tune the
gazetteer.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return fmt.Errorf("need --text or an input file")
			}
			ctx := cmd.Context()
			s, closeFn, err := a.standardizer(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if text != "" {
				m, err := standardize.ParseMode(mode)
				if err != nil {
					return err
				}
				n := max(topN, 1)
				res, err := s.StandardizeN(ctx, text, country, m, n)
				if err != nil {
					return err
				}
				if len(res) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "no match")
					return nil
				}
				for _, ps := range res {
					name, err := s.FullName(ctx, ps.Place)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.2f\t%s\n", ps.Place.ID, ps.Score, name)
				}
				return nil
			}

			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			w, err := createOutput(out)
			if err != nil {
				return err
			}
			defer w.Close()

			opts := batch.Options{
				MaxLines:      maxLines,
				TopN:          topN,
				AlsoLocatedIn: alsoLocatedIn,
				Logger:        a.logger,
			}
			if reportsDir != "" {
				files, err := openReports(reportsDir, &opts.Reports)
				if err != nil {
					return err
				}
				defer func() {
					for _, f := range files {
						f.Close()
					}
				}()
			}

			stats, err := batch.StandardizeFile(ctx, s, in, w, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d lines, %d matched\n", stats.Lines, stats.Matched)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&text, "text", "", "standardize a single text")
	f.StringVar(&country, "country", "", "default country for --text")
	f.StringVar(&mode, "mode", "best", "mode for --text: best, required or new")
	f.StringVarP(&out, "out", "o", "", "output file (default stdout)")
	f.IntVar(&topN, "top-n", 0, "list up to N results per text")
	f.IntVar(&maxLines, "max-lines", 0, "stop after N lines (0: all)")
	f.BoolVar(&alsoLocatedIn, "also-located-in", false, "list secondary parents")
	f.StringVar(&reportsDir, "reports-dir", "", "write diagnostic reports to this directory")
	return cmd
}

// openReports creates one file per report in dir and wires them into r.
func openReports(dir string, r *batch.Reports) ([]*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	targets := []struct {
		name string
		w    *io.Writer
	}{
		{"ambiguous.txt", &r.Ambiguous},
		{"missing.txt", &r.Missing},
		{"phrases.txt", &r.Phrases},
		{"types.txt", &r.Types},
		{"notfound.txt", &r.NotFound},
		{"skipped.txt", &r.Skipped},
	}
	var files []*os.File
	for _, t := range targets {
		f, err := os.Create(filepath.Join(dir, t.name))
		if err != nil {
			for _, f := range files {
				f.Close()
			}
			return nil, err
		}
		files = append(files, f)
		*t.w = f
	}
	return files, nil
}

func (a *app) analyzeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Count best matches per country and level",
		Long: `Analyze standardizes every line of file and writes one
"country,id,total,level1,...,levelN" line per matched country.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, closeFn, err := a.standardizer(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()

			counts, err := batch.AnalyzeMatches(ctx, s, in)
			if err != nil {
				return err
			}
			w, err := createOutput(out)
			if err != nil {
				return err
			}
			defer w.Close()
			return batch.WriteMatchCounts(w, counts)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "compare <file>",
		Short: "Compare our matches with another system's",
		Long: `Compare reads "text|their full name" lines and writes
"text|our full name|their full name" for every disagreement.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, closeFn, err := a.standardizer(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			w, err := createOutput(out)
			if err != nil {
				return err
			}
			defer w.Close()

			stats, err := batch.CompareMatches(ctx, s, in, w)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "total %d, same %d, different %d\n", stats.Total(), stats.Same, stats.Different)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func (a *app) analyzePlacesCmd() *cobra.Command {
	var (
		outDir       string
		reverseEvery int
	)
	cmd := &cobra.Command{
		Use:   "analyze-places <file>",
		Short: "Count raw lines, words, numbers and endings of place texts",
		Long: `Analyze-places needs no gazetteer. It writes to --out-dir the
frequency tables places.txt, words.txt, numbers.txt and endings.txt
("value<TAB>count", most frequent first), plus reversed.txt with every Nth
line spelled backwards. The tables are used to find missing type words,
noise words and abbreviations.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			rev, err := os.Create(filepath.Join(outDir, "reversed.txt"))
			if err != nil {
				return err
			}
			defer rev.Close()

			stats, err := batch.AnalyzePlaces(cmd.Context(), in, batch.PlacesOptions{Reversed: rev, ReverseEvery: reverseEvery})
			if err != nil {
				return err
			}
			tables := []struct {
				name   string
				counts batch.Counts
			}{
				{"places", stats.Places},
				{"words", stats.Words},
				{"numbers", stats.Numbers},
				{"endings", stats.Endings},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d lines\n", stats.Lines)
			for _, tb := range tables {
				if err := writeCountsFile(filepath.Join(outDir, tb.name+".txt"), tb.counts); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d total, %d unique\n", tb.name, tb.counts.Total(), len(tb.counts))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out-dir", "o", "analysis", "directory for the frequency tables")
	cmd.Flags().IntVar(&reverseEvery, "reverse-every", 10, "write every Nth line reversed")
	return cmd
}

func writeCountsFile(path string, c batch.Counts) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := batch.WriteCounts(f, c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
