package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/validator"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a tree definition for structural problems",
	Long: `Loads the tree and reports all findings: errors (missing root,
unreachable branches, dangling child references) fail the command,
warnings (empty branches, no terminal tool) do not.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		treeDir, _ := cmd.Flags().GetString("tree")

		tree, err := cli.BuildTree(cmd.Context(), treeDir, nil, logger)
		if err != nil {
			return err
		}

		findings := validator.Check(tree.Inspect())
		failed := false
		for _, f := range findings {
			fmt.Fprintln(os.Stderr, f.String())
			if f.Level == validator.LevelError {
				failed = true
			}
		}
		if failed {
			return fmt.Errorf("validation failed with %d findings", len(findings))
		}
		fmt.Println("tree is valid")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().String("tree", "", "Loam directory holding the tree definition")
}
