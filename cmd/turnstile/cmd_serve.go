package main

import (
	"context"

	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"turnstile/internal/logging"
	"turnstile/internal/mcpserve"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server over stdio for editor integration",
	Long: `Starts an MCP server over stdin/stdout. Editors and agents connect via
their MCP config and call the checks as tools directly.

The server monitors for parent process death. When the client disconnects
or restarts, the server self-terminates to prevent zombie processes.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db := p.openStore()
	if db != nil {
		defer db.Close()
	}
	srv := mcpserve.NewServer(p.Root, p.Cfg, db)

	mcpserve.WatchParent(ctx, cancel)

	logging.New("mcp").Info("starting turnstile MCP server over stdio (parent watchdog active)")
	return srv.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
