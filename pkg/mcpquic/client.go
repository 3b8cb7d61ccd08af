package mcpquic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/quic-go/quic-go"
)

// ErrToolFailed wraps the message of a tool call that returned isError.
var ErrToolFailed = errors.New("mcpquic: tool failed")

// Client is an initialized MCP session over one QUIC stream.
type Client struct {
	conn *quic.Conn
	mcp  *client.Client
}

// Dial connects to addr, sends the magic bytes and runs the MCP initialize
// handshake. A nil tlsCfg skips certificate verification, for the
// self-signed development certificate.
func Dial(ctx context.Context, addr string, tlsCfg *tls.Config) (*Client, error) {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(true)
	}
	conn, stream, err := openMCPStream(ctx, addr, tlsCfg)
	if err != nil {
		return nil, err
	}

	// The stream has no stderr; the third reader only ever reports EOF.
	c := &Client{conn: conn, mcp: client.NewClient(transport.NewIO(stream, stream, io.NopCloser(strings.NewReader(""))))}
	if err := c.mcp.Start(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp start: %w", err)
	}

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "placestd-query", Version: "1"}
	hsCtx, cancel := context.WithTimeout(ctx, DefaultHandshakeTimeout)
	defer cancel()
	if _, err := c.mcp.Initialize(hsCtx, init); err != nil {
		c.Close()
		return nil, fmt.Errorf("mcp initialize: %w", err)
	}
	return c, nil
}

func openMCPStream(ctx context.Context, addr string, tlsCfg *tls.Config) (*quic.Conn, *quic.Stream, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsCfg, ProductionQUICConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	fail := func(code quic.ApplicationErrorCode, err error) (*quic.Conn, *quic.Stream, error) {
		conn.CloseWithError(code, err.Error())
		return nil, nil, err
	}

	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		return fail(ConnErrorUnsupportedALPN, fmt.Errorf("%w: got %q", ErrUnsupportedALPN, alpn))
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return fail(ConnErrorProtocolViolation, fmt.Errorf("open stream: %w", err))
	}
	if err := SendMagicBytes(stream); err != nil {
		return fail(ConnErrorProtocolViolation, err)
	}
	return conn, stream, nil
}

// Tools lists the names of the tools the server offers.
func (c *Client) Tools(ctx context.Context) ([]string, error) {
	res, err := c.mcp.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, err
	}
	names := make([]string, len(res.Tools))
	for i, t := range res.Tools {
		names[i] = t.Name
	}
	return names, nil
}

// Call invokes a tool and decodes its JSON text result into out. A nil out
// discards the result. A tool error is returned wrapping ErrToolFailed.
func (c *Client) Call(ctx context.Context, tool string, args map[string]any, out any) error {
	var req mcp.CallToolRequest
	req.Params.Name = tool
	req.Params.Arguments = args
	res, err := c.mcp.CallTool(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", tool, err)
	}

	var text strings.Builder
	for _, content := range res.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			text.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return fmt.Errorf("%s: %w: %s", tool, ErrToolFailed, text.String())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text.String()), out); err != nil {
		return fmt.Errorf("%s: decode result: %w", tool, err)
	}
	return nil
}

// Close ends the MCP session and the QUIC connection.
func (c *Client) Close() error {
	c.mcp.Close()
	return c.conn.CloseWithError(ConnErrorNoError, "client closing")
}
