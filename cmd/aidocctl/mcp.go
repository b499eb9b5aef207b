package main

import (
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the search and ask tools over MCP stdio",
	Long: `Starts a Model Context Protocol server on stdin/stdout exposing the "search"
and "ask" tools plus the stored documents as resources.

Client configuration:
  {
    "mcpServers": {
      "aidoc": {
        "command": "/path/to/aidocctl",
        "args": ["mcp"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	a, err := requireApp()
	if err != nil {
		return err
	}
	server, err := a.MCPServer()
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
