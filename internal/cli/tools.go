package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guillaumegay13/fieldflow/internal/config"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools compiled from a document",
		Long:  "Compile the document and print the resulting tool surface without serving anything.",
		Example: strings.TrimSpace(`  fieldflow tools --spec openapi.yaml
  fieldflow tools --spec openapi.yaml --json`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return runTools(cmd.Context(), cfg, asJSON)
		},
	}
	addRuntimeFlags(cmd)
	cmd.Flags().Bool("json", false, "Print tool definitions as JSON, input schemas included")
	return cmd
}

func runTools(ctx context.Context, cfg config.Config, asJSON bool) error {
	rt, err := bootstrap(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	if asJSON {
		out := make([]map[string]any, 0, rt.set.Len())
		for _, t := range rt.set.Tools() {
			out = append(out, map[string]any{
				"name":        t.Name(),
				"description": t.Description(),
				"inputSchema": t.InputSchema(),
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, t := range rt.set.Tools() {
		op := t.Operation()
		fmt.Fprintf(os.Stdout, "%-40s %s %s\n", t.Name(), strings.ToUpper(op.Method), op.Path)
	}
	return nil
}
