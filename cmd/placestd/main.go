// Command placestd standardizes free-text place names against a
// hierarchical gazetteer: as an HTTP/MCP server, as batch file tools, and as
// the importer that builds the gazetteer datasets.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	_ = godotenv.Load(".env")
	logger := setupLogger()
	slog.SetDefault(logger)

	var cfgPath string
	root := &cobra.Command{
		Use:           "placestd",
		Short:         "Hierarchical place-name standardizer",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "placestd.yaml", "path to config file")

	app := &app{logger: logger, cfgPath: &cfgPath}
	root.AddCommand(
		app.serveCmd(),
		app.standardizeCmd(),
		app.analyzeCmd(),
		app.analyzePlacesCmd(),
		app.compareCmd(),
		app.importCmd(),
		app.loadDBCmd(),
		app.sourcesCmd(),
		app.queryCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	logger  *slog.Logger
	cfgPath *string
}

func (a *app) config() (config, error) {
	return loadConfig(*a.cfgPath)
}

// standardizer loads the configured gazetteer once, for the batch
// commands. The caller runs closeFn when done.
func (a *app) standardizer(ctx context.Context) (s *standardize.Standardizer, closeFn func(), err error) {
	cfg, err := a.config()
	if err != nil {
		return nil, nil, err
	}
	l := newLoader(cfg, a.logger)
	if s, _, err = l.load(ctx); err != nil {
		l.Close()
		return nil, nil, err
	}
	return s, func() { l.Close() }, nil
}

// setupLogger builds the process logger from LOG_LEVEL (debug, info, warn,
// error) and LOG_FORMAT (text, json).
func setupLogger() *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
