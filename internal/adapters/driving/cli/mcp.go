package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medreport/internal/adapters/driving/mcp"
	"github.com/custodia-labs/medreport/internal/core/domain"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose reports to AI assistants over MCP",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can generate
and read medical reports.

Tools: summarize_report, process_file, get_report, search_context
Resources: medreport://reports, medreport://reports/{documentId}

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve streamable HTTP on /mcp instead, with a liveness probe
on /healthz.

Examples:
  medreport mcp serve
  medreport mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "medreport": {
        "command": "/path/to/medreport",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %d out of range", domain.ErrInvalidInput, port)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Reports: reportService,
		Context: contextService,
	}, mcp.WithVersion(version))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if port == 0 {
		return server.Run(ctx)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost:%d/mcp\n", port)
	return server.RunHTTP(ctx, fmt.Sprintf(":%d", port))
}
