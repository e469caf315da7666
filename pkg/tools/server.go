package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer exposes every tool of m over MCP.
func NewServer(m *ToolManager, version string) *server.MCPServer {
	s := server.NewMCPServer("chatview", version, server.WithToolCapabilities(false))
	for _, t := range m.List() {
		s.AddTool(mcpTool(t), Handler(m, t.Name()))
	}
	return s
}

func mcpTool(t Tool) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(t.Description())}
	for _, p := range t.Params() {
		popts := []mcp.PropertyOption{mcp.Description(p.Description)}
		if p.Required {
			popts = append(popts, mcp.Required())
		}
		switch p.Kind {
		case "number":
			opts = append(opts, mcp.WithNumber(p.Name, popts...))
		default:
			opts = append(opts, mcp.WithString(p.Name, popts...))
		}
	}
	return mcp.NewTool(t.Name(), opts...)
}

// Handler dispatches MCP calls for the named tool through m. Tool failures,
// unknown tools included, are reported as error results, not protocol errors.
func Handler(m *ToolManager, name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := m.Call(ctx, name, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}
