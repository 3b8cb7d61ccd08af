package main

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/hazyhaar/placestd/pkg/api"
	"github.com/hazyhaar/placestd/pkg/mcpquic"
	"github.com/spf13/cobra"
)

func (a *app) queryCmd() *cobra.Command {
	var (
		addr     string
		caFile   string
		insecure bool
		mode     string
		n        int
		place    int
	)
	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Query a running server over MCP/QUIC",
		Long: `Query connects to the MCP-over-QUIC port of a running serve and calls
standardize_place with the text, printing one "score<TAB>full name" line per
match. With --place it calls get_place instead and prints "id<TAB>full name".`,
		Example: `  placestd query --quic localhost:8421 --insecure "Springfield, Sangamon, Illinois"
  placestd query --quic localhost:8421 --insecure --place 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" && place == 0 {
				return fmt.Errorf("give a place text or --place")
			}
			if addr == "" {
				cfg, err := a.config()
				if err != nil {
					return err
				}
				addr = cfg.MCPQUICAddr
				if cfg.TLS.Enabled {
					addr = cfg.TLS.Addr
				}
			}
			if addr == "" {
				return fmt.Errorf("no server: set --quic or mcp_quic_addr")
			}
			if host, port, err := net.SplitHostPort(addr); err == nil && host == "" {
				addr = net.JoinHostPort("localhost", port)
			}
			tlsCfg, err := queryTLS(caFile, insecure)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := mcpquic.Dial(ctx, addr, tlsCfg)
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			if place != 0 {
				var res api.PlaceResponse
				if err := c.Call(ctx, "get_place", map[string]any{"id": place}, &res); err != nil {
					return err
				}
				fmt.Fprintf(out, "%d\t%s\n", res.Place.ID, res.FullName)
				return nil
			}

			callArgs := map[string]any{"text": text, "n": n}
			if mode != "" {
				callArgs["mode"] = mode
			}
			var res api.StandardizeResponse
			if err := c.Call(ctx, "standardize_place", callArgs, &res); err != nil {
				return err
			}
			if len(res.Matches) == 0 {
				a.logger.Warn("no match", "text", text)
			}
			for _, m := range res.Matches {
				fmt.Fprintf(out, "%.2f\t%s\n", m.Score, m.FullName)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "quic", "", "server MCP/QUIC address (default mcp_quic_addr, or tls.addr with tls.enabled)")
	f.StringVar(&caFile, "ca", "", "PEM file of the CA that signed the server certificate")
	f.BoolVar(&insecure, "insecure", false, "skip certificate verification (self-signed servers)")
	f.StringVar(&mode, "mode", "", "best, required or new")
	f.IntVarP(&n, "top-n", "n", 1, "maximum number of matches")
	f.IntVar(&place, "place", 0, "look up a place id instead of standardizing text")
	cmd.MarkFlagsMutuallyExclusive("ca", "insecure")
	return cmd
}

func queryTLS(caFile string, insecure bool) (*tls.Config, error) {
	cfg := mcpquic.ClientTLSConfig(insecure)
	if caFile == "" {
		return cfg, nil
	}
	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("%s: no certificates", caFile)
	}
	cfg.RootCAs = pool
	return cfg, nil
}
