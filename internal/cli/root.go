package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Execute runs the fieldflow CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fieldflow",
		Short:         "Serve OpenAPI operations as callable tools with response field selection",
		Long:          "fieldflow compiles an OpenAPI/Swagger document into callable tools, forwards invocations to the upstream service, and projects responses through field selectors.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	})

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	for _, sub := range []*cobra.Command{newServeCmd(), newMCPCmd(), newToolsCmd(), newInitCmd()} {
		sub.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
			return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
		})
		cmd.AddCommand(sub)
	}

	return cmd
}

// addRuntimeFlags registers the flags shared by every command that compiles
// the tool surface.
func addRuntimeFlags(cmd *cobra.Command) {
	cmd.Flags().String("spec", "", "Path or URL to the OpenAPI/Swagger document")
	cmd.Flags().String("base-url", "", "Upstream base URL (overrides the document's servers entry)")
}
