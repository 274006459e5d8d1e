package main

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/feedhider/blocklist"
)

const version = "1.0.0"

func newMCPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the blocklist tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.withManager(func(m *blocklist.Manager) error {
				srv := newMCPServer(m)
				g.logger().Info("feedhider: mcp server on stdio")
				return srv.Run(cmd.Context(), &mcp.StdioTransport{})
			})
		},
	}
}

func newMCPServer(m *blocklist.Manager) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "feedhider",
		Version: version,
	}, nil)
	m.RegisterMCP(srv)
	return srv
}
