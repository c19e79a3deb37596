package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/folio/internal/cli"
	"github.com/aretw0/folio/pkg/adapters/mcp"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes the configured document store as MCP tools, so that agents can read documents
and edit them through commands with undo.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Run: func(cmd *cobra.Command, args []string) {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		// Logs go to Stderr so they do not corrupt JSON-RPC on Stdout.
		logger, err := cli.NewLogger(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
			os.Exit(1)
		}

		manager, backend, err := cli.NewManager(cfg, logger, domain.Hooks{})
		if err != nil {
			logger.Error("Failed to open store", "error", err)
			os.Exit(1)
		}
		defer backend.Close()

		srv := mcp.NewServer(manager, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			logger.Info("Starting Folio MCP Server (Stdio)...")
			err = srv.ServeStdio()
		case "sse":
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			err = srv.ServeSSE(ctx, port)
		default:
			err = fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
		if err != nil {
			logger.Error("MCP Server execution failed", "error", err)
			backend.Close()
			os.Exit(1)
		}
		logger.Info("MCP Server stopped gracefully")
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
