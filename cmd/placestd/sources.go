package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hazyhaar/placestd/pkg/importer"
	"github.com/spf13/cobra"
)

func (a *app) sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect and edit the import sources",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the import sources and their last check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sdb, err := a.openSources(cmd.Context())
			if err != nil {
				return err
			}
			defer sdb.Close()
			return printSources(cmd.Context(), cmd.OutOrStdout(), sdb)
		},
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Check every source URL once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sdb, err := a.openSources(cmd.Context())
			if err != nil {
				return err
			}
			defer sdb.Close()
			sum := importer.NewChecker(sdb, a.logger, time.Hour).CheckAll(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d ok, %d failed\n", sum.OK, sum.Failed)
			if sum.Failed > 0 {
				return fmt.Errorf("%d sources unreachable", sum.Failed)
			}
			return nil
		},
	}

	setURL := &cobra.Command{
		Use:   "set-url <adapter-id> <url>",
		Short: "Point a source at another URL",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := importer.Get(args[0]); err != nil {
				return err
			}
			sdb, err := a.openSources(cmd.Context())
			if err != nil {
				return err
			}
			defer sdb.Close()
			return sdb.SetURL(cmd.Context(), args[0], args[1])
		},
	}

	cmd.AddCommand(list, check, setURL)
	return cmd
}

func printSources(ctx context.Context, w io.Writer, sdb *importer.SourceDB) error {
	sources, err := sdb.ListSources(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATASET\tSTATUS\tLICENSE\tDESCRIPTION")
	for _, src := range sources {
		status := "-"
		if src.LastStatus != nil {
			status = fmt.Sprint(*src.LastStatus)
		}
		if src.LastError != nil && *src.LastError != "" {
			status = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", src.AdapterID, src.DatasetID, status, src.License, src.Description)
	}
	return tw.Flush()
}
