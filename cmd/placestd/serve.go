package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hazyhaar/placestd/pkg/api"
	"github.com/hazyhaar/placestd/pkg/chassis"
	"github.com/hazyhaar/placestd/pkg/importer"
	"github.com/hazyhaar/placestd/pkg/kit"
	"github.com/hazyhaar/placestd/pkg/mcpquic"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCmd() *cobra.Command {
	var (
		addr           string
		stdio          bool
		logDiagnostics bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and MCP tools",
		Long: `Serve the standardizer over HTTP (/v1/standardize, /v1/places/{id},
/v1/health, /metrics) and MCP. With tls.enabled the TLS chassis serves
HTTP/1.1, HTTP/2, HTTP/3 and MCP over QUIC on one port. SIGHUP reloads the
gazetteer; SIGINT and SIGTERM shut down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}

			l := newLoader(cfg, a.logger)
			l.logDiagnostics = logDiagnostics
			defer l.Close()
			reg := standardize.NewRegistry(l.load)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := reg.Load(ctx); err != nil {
				return err
			}
			go a.reloadOnSIGHUP(ctx, reg)
			a.startChecker(ctx, cfg)

			mcpSrv := api.NewMCPServer(reg, version, a.logger)
			if stdio {
				a.logger.Info("serving MCP on stdio")
				return server.ServeStdio(mcpSrv, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
					return kit.WithTransport(ctx, "mcp_stdio")
				}))
			}

			router := api.NewRouter(reg, a.logger)
			if cfg.TLS.Enabled {
				return a.serveTLS(ctx, cfg, router, mcpSrv)
			}
			return a.serveHTTP(ctx, cfg, router, mcpSrv)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&stdio, "stdio", false, "serve MCP on stdin/stdout instead of HTTP")
	cmd.Flags().BoolVar(&logDiagnostics, "log-diagnostics", false, "log every resolver diagnostic")
	return cmd
}

func (a *app) reloadOnSIGHUP(ctx context.Context, reg *standardize.Registry) {
	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sighup:
			a.logger.Info("SIGHUP received, reloading gazetteer")
			if err := reg.Reload(ctx); err != nil {
				a.logger.Error("reload failed, keeping previous gazetteer", "error", err)
				continue
			}
			info := reg.Info()
			a.logger.Info("gazetteer reloaded", "dataset", info.DatasetID, "version", info.Version, "places", info.Places)
		}
	}
}

// startChecker polls the import sources in the background. A sources DB
// that cannot be opened only disables the checker.
func (a *app) startChecker(ctx context.Context, cfg config) {
	if cfg.SourcesDB == "" || cfg.CheckInterval <= 0 {
		return
	}
	sdb, err := importer.OpenSourceDB(cfg.SourcesDB)
	if err != nil {
		a.logger.Warn("source checker disabled", "error", err)
		return
	}
	if err := sdb.Seed(ctx, importer.All()); err != nil {
		a.logger.Warn("source checker disabled", "error", err)
		sdb.Close()
		return
	}
	go func() {
		defer sdb.Close()
		importer.NewChecker(sdb, a.logger, cfg.CheckInterval).Start(ctx)
	}()
}

func (a *app) serveHTTP(ctx context.Context, cfg config, router http.Handler, mcpSrv *server.MCPServer) error {
	if cfg.MCPQUICAddr != "" {
		tlsCfg, err := mcpTLS(cfg)
		if err != nil {
			return err
		}
		ln, err := mcpquic.NewListener(cfg.MCPQUICAddr, tlsCfg, mcpSrv, a.logger)
		if err != nil {
			return err
		}
		defer ln.Close()
		go func() {
			if err := ln.Serve(ctx); err != nil && ctx.Err() == nil {
				a.logger.Error("MCP QUIC listener stopped", "error", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("placestd listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) serveTLS(ctx context.Context, cfg config, router http.Handler, mcpSrv *server.MCPServer) error {
	srv, err := chassis.New(chassis.Config{
		Addr:      cfg.TLS.Addr,
		CertFile:  cfg.TLS.CertFile,
		KeyFile:   cfg.TLS.KeyFile,
		Handler:   router,
		MCPServer: mcpSrv,
		Logger:    a.logger,
	})
	if err != nil {
		return err
	}
	runErr := srv.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return errors.Join(runErr, srv.Stop(shutdownCtx))
}

func mcpTLS(cfg config) (*tls.Config, error) {
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return mcpquic.ServerTLSConfig(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	}
	return mcpquic.SelfSignedTLSConfig()
}
