package mcpquic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func TestMagicBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := SendMagicBytes(&buf); err != nil {
		t.Fatal(err)
	}
	if err := ValidateMagicBytes(&buf); err != nil {
		t.Errorf("ValidateMagicBytes: %v", err)
	}

	if err := ValidateMagicBytes(bytes.NewBufferString("HTTP")); !errors.Is(err, ErrInvalidMagicBytes) {
		t.Errorf("err = %v, want ErrInvalidMagicBytes", err)
	}
	if err := ValidateMagicBytes(bytes.NewBufferString("MC")); err == nil {
		t.Error("expected error on short read")
	}
}

func TestSelfSignedTLSConfig(t *testing.T) {
	cfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Certificates) != 1 || len(cfg.NextProtos) != 1 || cfg.NextProtos[0] != ALPNProtocolMCP {
		t.Errorf("config = %+v", cfg)
	}

	cfg, err = SelfSignedTLSConfig("h3", ALPNProtocolMCP)
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.NextProtos) != 2 {
		t.Errorf("NextProtos = %v", cfg.NextProtos)
	}
}

func TestDial_NoServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if c, err := Dial(ctx, "127.0.0.1:1", nil); err == nil {
		c.Close()
		t.Error("expected dial error")
	}
}

func TestRoundTrip(t *testing.T) {
	mcpSrv := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(false))
	mcpSrv.AddTool(mcp.NewTool("echo",
		mcp.WithString("text", mcp.Required()),
	), func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		data, _ := json.Marshal(req.GetArguments())
		return mcp.NewToolResultText(string(data)), nil
	})
	mcpSrv.AddTool(mcp.NewTool("fail"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultError("place 404 not found"), nil
	})

	tlsCfg, err := SelfSignedTLSConfig()
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ln, err := NewListener("127.0.0.1:0", tlsCfg, mcpSrv, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go ln.Serve(ctx)

	c, err := Dial(ctx, ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	tools, err := c.Tools(ctx)
	if err != nil {
		t.Fatalf("Tools: %v", err)
	}
	slices.Sort(tools)
	if !slices.Equal(tools, []string{"echo", "fail"}) {
		t.Errorf("tools = %v", tools)
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := c.Call(ctx, "echo", map[string]any{"text": "Springfield"}, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.Text != "Springfield" {
		t.Errorf("text = %q", out.Text)
	}

	err = c.Call(ctx, "fail", nil, nil)
	if !errors.Is(err, ErrToolFailed) || !strings.Contains(err.Error(), "place 404 not found") {
		t.Errorf("err = %v, want ErrToolFailed with the tool message", err)
	}
}
