package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	mcpsrv "github.com/jaehoon-lim/mnemos/internal/mcp"
	"github.com/jaehoon-lim/mnemos/internal/service"
)

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP (Model Context Protocol) server over stdio",
		Long: `Starts an MCP JSON-RPC 2.0 server that reads from stdin and writes to stdout.
All diagnostic logs go to stderr so that stdout remains exclusively MCP protocol traffic.

Tools exposed:
  classify  — classify a text as episodic or semantic
  remember  — classify, embed, and store a memory
  search    — weighted search biased by query classification
  forget    — delete a user's memories
  stats     — per-user memory counts and distribution

If the vector store is unavailable at startup the server still starts;
individual tool calls will return MCP error responses on failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger()

			var svc *service.Service
			s, st, storeErr := newService(logger)
			if storeErr != nil {
				// Log to stderr and continue with a nil service.
				// Tool calls will return per-call errors rather than crashing.
				logger.Error("mcp: failed to connect to store; tool calls will fail", "error", storeErr)
			} else {
				svc = s
				defer func() { _ = st.Close() }()
				if err := st.EnsureCollections(cmd.Context()); err != nil {
					logger.Error("mcp: ensuring collections", "error", err)
				}
			}

			srv := mcpsrv.NewServer(svc, logger)

			// Use a standard log.Logger pointing at stderr for the mcp-go error logger.
			errLogger := log.New(os.Stderr, "mcp: ", log.LstdFlags)

			logger.Info("mcp: mnemos MCP server starting", "transport", "stdio")

			return mcpserver.ServeStdio(
				srv.MCPServer(),
				mcpserver.WithErrorLogger(errLogger),
			)
		},
	}

	return cmd
}
