package api

import (
	"fmt"
	"log/slog"

	"github.com/hazyhaar/placestd/pkg/kit"
	"github.com/hazyhaar/placestd/pkg/standardize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates an MCP server with the placestd tools registered.
func NewMCPServer(reg *standardize.Registry, version string, logger *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("placestd", version, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, reg, logger)
	return srv
}

// RegisterMCPTools registers the three placestd MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, reg *standardize.Registry, logger *slog.Logger) {
	ep := NewEndpoints(reg, logger)
	registerStandardizePlace(srv, ep.Standardize)
	registerStandardizeBatch(srv, ep.Batch)
	registerGetPlace(srv, ep.Place)
}

var optionParams = []mcp.ToolOption{
	mcp.WithString("mode", mcp.Description("best (default), required or new"), mcp.Enum("best", "required", "new")),
	mcp.WithNumber("n", mcp.Description("Maximum number of ranked matches (default 1)")),
	mcp.WithString("country", mcp.Description("Default country (accepted, currently ignored)")),
	mcp.WithBoolean("diagnostics", mcp.Description("Include the diagnostic events of the resolution")),
}

func decodeOptions(args map[string]any) (options, error) {
	mode, _ := args["mode"].(string)
	n, _ := args["n"].(float64)
	country, _ := args["country"].(string)
	diagnostics, _ := args["diagnostics"].(bool)
	return parseOptions(mode, int(n), country, diagnostics)
}

func registerStandardizePlace(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("standardize_place",
		append([]mcp.ToolOption{
			mcp.WithDescription("Resolve a free-text place description (e.g. \"Springfield, Sangamon, Illinois\") to gazetteer places, most specific level first."),
			mcp.WithString("text", mcp.Required(), mcp.Description("The place text, levels separated by commas")),
		}, optionParams...)...,
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		text, _ := args["text"].(string)
		if text == "" {
			return nil, fmt.Errorf("text is required")
		}
		opts, err := decodeOptions(args)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &standardizeReq{Text: text, options: opts}}, nil
	})
}

func registerStandardizeBatch(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("standardize_batch",
		append([]mcp.ToolOption{
			mcp.WithDescription(fmt.Sprintf("Resolve up to %d place descriptions in one call.", MaxBatch)),
			mcp.WithArray("texts", mcp.Required(), mcp.Description("Place texts"), mcp.Items(map[string]any{"type": "string"})),
		}, optionParams...)...,
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		raw, ok := args["texts"].([]any)
		if !ok {
			return nil, fmt.Errorf("texts must be an array of strings")
		}
		texts := make([]string, len(raw))
		for i, v := range raw {
			if texts[i], ok = v.(string); !ok {
				return nil, fmt.Errorf("texts[%d] is not a string", i)
			}
		}
		opts, err := decodeOptions(args)
		if err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &batchReq{Texts: texts, options: opts}}, nil
	})
}

func registerGetPlace(srv *server.MCPServer, endpoint kit.Endpoint) {
	tool := mcp.NewTool("get_place",
		mcp.WithDescription("Get a gazetteer place by id, with its full hierarchical name."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Place id")),
	)

	kit.RegisterMCPTool(srv, tool, endpoint, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		id, _ := req.GetArguments()["id"].(float64)
		if id <= 0 || id != float64(int(id)) {
			return nil, fmt.Errorf("id must be a positive integer")
		}
		return &kit.MCPDecodeResult{Request: &placeReq{ID: int(id)}}, nil
	})
}
