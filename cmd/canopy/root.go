package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/internal/presentation/tui"
)

var rootCmd = &cobra.Command{
	Use:   "canopy",
	Short: "Canopy routes queries through a decision tree of tools",
	Long: `Canopy is a decision-tree orchestration engine: a query is routed
through a hierarchy of branches, each choosing a tool or a nested
branch, streaming typed events until a terminal tool answers.`,
	SilenceUsage: true,
}

// logger is built once by the persistent pre-run and shared by all
// commands; closeLogger flushes the optional log file.
var (
	logger      *slog.Logger
	closeLogger func() error
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this file")
	rootCmd.PersistentFlags().Bool("no-banner", false, "Suppress the startup banner")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		levelStr, _ := cmd.Flags().GetString("log-level")
		file, _ := cmd.Flags().GetString("log-file")

		var err error
		logger, closeLogger, err = cli.NewLogger(levelStr, file)
		return err
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if closeLogger != nil {
			return closeLogger()
		}
		return nil
	}
}

// maybeBanner prints the banner for long-running commands unless
// suppressed.
func maybeBanner(cmd *cobra.Command) {
	if noBanner, _ := cmd.Flags().GetBool("no-banner"); !noBanner {
		tui.PrintBanner()
	}
}
