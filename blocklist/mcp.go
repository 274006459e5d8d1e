// CLAUDE:SUMMARY Registers the blocklist MCP tools: list, add, remove and set_enabled.
package blocklist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers the blocklist tools on an MCP server.
func (m *Manager) RegisterMCP(srv *mcp.Server) {
	m.registerListTool(srv)
	m.registerAddTool(srv)
	m.registerRemoveTool(srv)
	m.registerSetEnabledTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// registerTool adapts a JSON-in/JSON-out endpoint to an MCP tool handler.
// Endpoint errors become tool errors, not protocol errors.
func registerTool[Req any](srv *mcp.Server, tool *mcp.Tool, endpoint func(context.Context, *Req) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var r Req
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				var res mcp.CallToolResult
				res.SetError(fmt.Errorf("invalid arguments: %w", err))
				return &res, nil
			}
		}
		resp, err := endpoint(ctx, &r)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(err)
			return &res, nil
		}
		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// --- list ---

type listRequest struct{}

func (m *Manager) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedhider_list",
		Description: "List blocked channel names, most recently added first, and whether blocking is enabled.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	registerTool(srv, tool, func(ctx context.Context, _ *listRequest) (any, error) {
		list, err := m.List(ctx)
		if err != nil {
			return nil, err
		}
		enabled, err := m.Enabled(ctx)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = List{}
		}
		return Snapshot{List: list, Enabled: enabled}, nil
	})
}

// --- add ---

type nameRequest struct {
	Name string `json:"name"`
}

func (m *Manager) registerAddTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedhider_add",
		Description: "Block a channel name. Items whose names, links or titles contain it (case-insensitive) are hidden.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Channel name or handle to block"},
		}, []string{"name"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *nameRequest) (any, error) {
		return m.Add(ctx, r.Name)
	})
}

// --- remove ---

func (m *Manager) registerRemoveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedhider_remove",
		Description: "Unblock a channel name. The name must match an entry exactly.",
		InputSchema: inputSchema(map[string]any{
			"name": map[string]any{"type": "string", "description": "Exact blocked name to remove"},
		}, []string{"name"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *nameRequest) (any, error) {
		if err := m.Remove(ctx, r.Name); err != nil {
			return nil, err
		}
		return map[string]string{"status": "removed", "name": r.Name}, nil
	})
}

// --- set_enabled ---

type enabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (m *Manager) registerSetEnabledTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "feedhider_set_enabled",
		Description: "Turn blocking on or off. Turning it off restores every hidden item.",
		InputSchema: inputSchema(map[string]any{
			"enabled": map[string]any{"type": "boolean", "description": "true to hide blocked items"},
		}, []string{"enabled"}),
	}
	registerTool(srv, tool, func(ctx context.Context, r *enabledRequest) (any, error) {
		if err := m.SetEnabled(ctx, r.Enabled); err != nil {
			return nil, err
		}
		return map[string]bool{"enabled": r.Enabled}, nil
	})
}
