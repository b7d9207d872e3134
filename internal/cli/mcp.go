package cli

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/guillaumegay13/fieldflow/internal/config"
	"github.com/guillaumegay13/fieldflow/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the tool surface to an MCP client over stdio",
		Long: "Serve the compiled tool surface to a Model Context Protocol client over " +
			"stdin/stdout. Logs go to stderr so they never corrupt the framed stream.",
		Example: strings.TrimSpace(`  fieldflow mcp --spec openapi.yaml
  fieldflow --config fieldflow.yaml mcp`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return runMCP(cmd.Context(), cfg)
		},
	}
	addRuntimeFlags(cmd)
	return cmd
}

func runMCP(ctx context.Context, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	transport := mcp.NewStdioTransport(os.Stdin, os.Stdout)
	server := mcp.NewServer("fieldflow", Version, rt.set, transport, rt.logger)
	return server.Run(ctx)
}
