package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hazyhaar/placestd/pkg/importer"
	"github.com/spf13/cobra"
)

// openSources opens the configured sources DB and seeds it with every
// registered adapter.
func (a *app) openSources(ctx context.Context) (*importer.SourceDB, error) {
	cfg, err := a.config()
	if err != nil {
		return nil, err
	}
	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		return nil, fmt.Errorf("open sources db: %w", err)
	}
	if err := sdb.Seed(ctx, importer.All()); err != nil {
		sdb.Close()
		return nil, fmt.Errorf("seed sources: %w", err)
	}
	return sdb, nil
}

func (a *app) importCmd() *cobra.Command {
	var (
		source    string
		all       bool
		outputDir string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Download and build gazetteer datasets from public sources",
		Long: `Import fetches a source (see "placestd sources list") and writes the
dataset to <output-dir>/<dataset id>/ as manifest.yaml and data.gob.
Without --source or --all it lists the available sources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Hour)
			defer cancel()

			sdb, err := a.openSources(ctx)
			if err != nil {
				return err
			}
			defer sdb.Close()

			out := cmd.OutOrStdout()
			if !all && source == "" {
				if err := printSources(ctx, out, sdb); err != nil {
					return err
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Usage:")
				fmt.Fprintln(out, "  placestd import --source <id> [--output-dir <dir>]")
				fmt.Fprintln(out, "  placestd import --all [--output-dir <dir>]")
				return nil
			}

			adapters := importer.All()
			if !all {
				ad, err := importer.Get(source)
				if err != nil {
					return err
				}
				adapters = []importer.Adapter{ad}
			}

			var failed int
			for _, ad := range adapters {
				url, err := sdb.GetURL(ctx, ad.ID())
				if err != nil {
					a.logger.Error("source URL", "source", ad.ID(), "error", err)
					failed++
					continue
				}
				a.logger.Info("import started", "source", ad.ID(), "url", url)
				start := time.Now()
				if err := ad.Import(ctx, url, outputDir); err != nil {
					a.logger.Error("import failed", "source", ad.ID(), "error", err)
					failed++
					continue
				}
				a.logger.Info("import done", "source", ad.ID(),
					"dir", filepath.Join(outputDir, ad.DatasetID()),
					"duration", time.Since(start).Round(time.Second))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d imports failed", failed, len(adapters))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&source, "source", "", "adapter ID to import (e.g. geonames)")
	f.BoolVar(&all, "all", false, "import every available source")
	f.StringVar(&outputDir, "output-dir", "data", "output directory for datasets")
	cmd.MarkFlagsMutuallyExclusive("source", "all")
	return cmd
}
