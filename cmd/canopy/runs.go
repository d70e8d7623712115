package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	"github.com/aretw0/canopy/pkg/runlog"
	"github.com/aretw0/canopy/pkg/schema"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect recorded runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, closeStore, err := openRunsManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		runs, err := manager.Runs(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("no recorded runs")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tSTARTED\tEVENTS")
		for _, r := range runs {
			fmt.Fprintf(w, "%s\t%s\t%d\n", r.RunID, r.StartedAt.Format(time.RFC3339), r.Events)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Print a run's step log as event envelopes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, closeStore, err := openRunsManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		records, err := manager.List(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("load run: %w", err)
		}

		for _, rec := range records {
			envelope, err := schema.Encode(rec.Event)
			if err != nil {
				return fmt.Errorf("encode record %d: %w", rec.Seq, err)
			}
			fmt.Printf("%4d  %s  %s\n", rec.Seq, rec.At.Format(time.RFC3339), envelope)
		}
		return nil
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete [run-id]",
	Short: "Delete a run's step log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, closeStore, err := openRunsManager(cmd)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := manager.Delete(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		fmt.Printf("deleted run %s\n", args[0])
		return nil
	},
}

// openRunsManager opens the configured store behind a runlog.Manager so
// concurrent invocations against the same store serialize per run.
func openRunsManager(cmd *cobra.Command) (*runlog.Manager, func() error, error) {
	storeKind, _ := cmd.Flags().GetString("store")
	storeAddr, _ := cmd.Flags().GetString("store-addr")
	encryptKey, _ := cmd.Flags().GetString("encrypt-key")
	maskKeys, _ := cmd.Flags().GetStringSlice("mask")
	layers, err := cli.StoreLayers(encryptKey, maskKeys)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore, err := cli.OpenStore(storeKind, storeAddr, layers...)
	if err != nil {
		return nil, nil, err
	}
	return runlog.NewManager(store, runlog.WithManagerLogger(logger)), closeStore, nil
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)

	runsCmd.PersistentFlags().String("store", "sqlite", "Runlog store kind (memory, redis, sqlite)")
	runsCmd.PersistentFlags().String("store-addr", "", "Store address (redis addr or sqlite path)")
	runsCmd.PersistentFlags().String("encrypt-key", "", "Hex-encoded 32-byte key decrypting recorded events")
	runsCmd.PersistentFlags().StringSlice("mask", nil, "Regexps for payload keys to mask before recording")
}
