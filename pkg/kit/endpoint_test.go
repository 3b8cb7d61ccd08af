package kit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func tag(s string) Middleware {
	return func(next Endpoint) Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			resp, err := next(ctx, req.(string)+s)
			return resp.(string) + s, err
		}
	}
}

func TestChain(t *testing.T) {
	echo := func(_ context.Context, req any) (any, error) { return req.(string) + "|", nil }
	resp, err := Chain(tag("a"), tag("b"), tag("c"))(echo)(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if resp != "abc|cba" {
		t.Errorf("resp = %q, want %q", resp, "abc|cba")
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	failing := func(context.Context, any) (any, error) { return nil, errors.New("boom") }
	ctx := WithRequestID(WithTransport(context.Background(), "mcp_quic"), "req-1")
	if _, err := Logging(logger, "place")(failing)(ctx, nil); err == nil {
		t.Fatal("expected error")
	}

	out := buf.String()
	for _, want := range []string{"level=WARN", "endpoint=place", "transport=mcp_quic", "request_id=req-1", "error=boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q missing %q", out, want)
		}
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	if got := GetTransport(ctx); got != "http" {
		t.Errorf("transport = %q", got)
	}
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("request id = %q", got)
	}
}
