package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	mcpadapter "github.com/aretw0/canopy/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Exposes the tree to MCP clients: run_tree and inspect_tree tools plus
a tree resource. Serves on stdio by default, or over SSE with --sse.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		treeDir, _ := cmd.Flags().GetString("tree")
		ssePort, _ := cmd.Flags().GetInt("sse")

		tree, err := cli.BuildTree(cmd.Context(), treeDir, nil, logger)
		if err != nil {
			return err
		}

		srv := mcpadapter.NewServer(tree, mcpadapter.WithLogger(logger))

		if ssePort > 0 {
			maybeBanner(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ServeSSE(ctx, ssePort)
		}

		// Stdio transport: stdout belongs to the protocol, no banner.
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("tree", "", "Loam directory holding the tree definition")
	mcpCmd.Flags().Int("sse", 0, "Serve over SSE on this port instead of stdio")
}
