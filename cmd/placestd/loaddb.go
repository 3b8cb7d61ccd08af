package main

import (
	"fmt"

	"github.com/hazyhaar/placestd/pkg/gazetteer"
	"github.com/spf13/cobra"
)

func (a *app) loadDBCmd() *cobra.Command {
	var dataset, driver, dsn string
	cmd := &cobra.Command{
		Use:   "load-db",
		Short: "Copy a dataset directory into a SQL gazetteer",
		Long: `Load-db reads a dataset directory (manifest.yaml with data.gob or
the flat index files) and replaces the gazetteer tables of a SQLite or Postgres
database with it. Serve then reads the gazetteer from db.dsn instead of
holding it in memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if dataset == "" {
				dataset = cfg.DatasetDir
			}
			if driver == "" {
				driver = cfg.DB.Driver
			}
			if dsn == "" {
				dsn = cfg.DB.DSN
			}
			if dsn == "" {
				return fmt.Errorf("no database: set --dsn, db.dsn or PLACESTD_DB_DSN")
			}

			ds, err := gazetteer.LoadDataset(dataset)
			if err != nil {
				return err
			}
			db, err := gazetteer.OpenDB(driver, dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := gazetteer.WriteSQL(cmd.Context(), db, driver, ds.Index); err != nil {
				return err
			}
			words, places := ds.Index.Stats()
			a.logger.Info("gazetteer loaded into database",
				"dataset", ds.Manifest.ID, "driver", driver, "words", words, "places", places)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&dataset, "dataset", "", "dataset directory (default dataset_dir)")
	f.StringVar(&driver, "driver", "", "sqlite or postgres (default db.driver)")
	f.StringVar(&dsn, "dsn", "", "database DSN (default db.dsn)")
	return cmd
}
