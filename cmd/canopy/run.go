package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/tui"
	"github.com/aretw0/canopy/pkg/decision"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/runner"
)

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Run a prompt through the tree",
	Long: `Runs a prompt through the built-in demo tree, or through a tree
loaded from a loam directory (--tree), streaming events to the
terminal or as NDJSON (--output json).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prompt := args[0]

		treeDir, _ := cmd.Flags().GetString("tree")
		output, _ := cmd.Flags().GetString("output")
		record, _ := cmd.Flags().GetBool("record")
		storeKind, _ := cmd.Flags().GetString("store")
		storeAddr, _ := cmd.Flags().GetString("store-addr")
		encryptKey, _ := cmd.Flags().GetString("encrypt-key")
		maskKeys, _ := cmd.Flags().GetStringSlice("mask")
		scriptPath, _ := cmd.Flags().GetString("decide")
		contextPath, _ := cmd.Flags().GetString("context")

		var decide domain.DecisionFunc
		if scriptPath != "" {
			src, err := os.ReadFile(scriptPath)
			if err != nil {
				return fmt.Errorf("read decision script: %w", err)
			}
			decide, err = decision.Scripted(scriptPath, src)
			if err != nil {
				return err
			}
		}

		tree, err := cli.BuildTree(cmd.Context(), treeDir, decide, logger)
		if err != nil {
			return err
		}

		var runOpts []canopy.RunOption
		if contextPath != "" {
			runOpts, err = cli.LoadRunContext(contextPath)
			if err != nil {
				return err
			}
		}

		var handler runner.Handler
		switch output {
		case "json":
			handler = runner.NewJSONHandler(os.Stdout)
		case "", "text":
			var textOpts []runner.TextHandlerOption
			if runner.Interactive(os.Stdout) {
				textOpts = append(textOpts, runner.WithRenderer(tui.NewRenderer()))
			}
			handler = runner.NewTextHandler(os.Stdout, textOpts...)
		default:
			return fmt.Errorf("unknown output %q (want text or json)", output)
		}

		opts := []runner.Option{
			runner.WithHandler(handler),
			runner.WithLogger(logger),
		}
		if record {
			layers, err := cli.StoreLayers(encryptKey, maskKeys)
			if err != nil {
				return err
			}
			store, closeStore, err := cli.OpenStore(storeKind, storeAddr, layers...)
			if err != nil {
				return err
			}
			defer closeStore()
			opts = append(opts, runner.WithStore(store))
		}

		out, err := runner.New(tree, opts...).Run(cmd.Context(), prompt, runOpts...)
		if err != nil {
			return err
		}
		if out.Err != nil {
			return fmt.Errorf("run failed: %s", out.Err.Message)
		}
		if record {
			fmt.Fprintf(os.Stderr, "recorded run %s (%d events)\n", out.RunID, out.Events)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("tree", "", "Load the tree from a loam directory instead of the demo tree")
	runCmd.Flags().StringP("output", "o", "text", "Output mode (text, json)")
	runCmd.Flags().Bool("record", false, "Record the event stream into a runlog store")
	runCmd.Flags().String("store", "sqlite", "Runlog store kind (memory, redis, sqlite)")
	runCmd.Flags().String("store-addr", "", "Store address (redis addr or sqlite path)")
	runCmd.Flags().String("encrypt-key", "", "Hex-encoded 32-byte key encrypting recorded events at rest")
	runCmd.Flags().StringSlice("mask", nil, "Regexps for payload keys to mask before recording")
	runCmd.Flags().String("decide", "", "Starlark decision script governing branch choices")
	runCmd.Flags().String("context", "", "YAML file seeding run collections, history and metadata")
}
