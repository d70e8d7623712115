package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the tree structure",
	Long: `Prints an indented outline of the tree's branches and tools, or a
Mermaid flowchart with --mermaid for embedding in documentation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		treeDir, _ := cmd.Flags().GetString("tree")
		mermaid, _ := cmd.Flags().GetBool("mermaid")

		tree, err := cli.BuildTree(cmd.Context(), treeDir, nil, logger)
		if err != nil {
			return err
		}

		info := tree.Inspect()
		if mermaid {
			fmt.Print(graph.Mermaid(info))
			return nil
		}
		fmt.Print(graph.ASCII(info))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("tree", "", "Loam directory holding the tree definition")
	graphCmd.Flags().Bool("mermaid", false, "Emit a Mermaid flowchart instead of the outline")
}
