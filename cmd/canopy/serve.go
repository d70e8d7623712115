package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aretw0/canopy/internal/cli"
	httpadapter "github.com/aretw0/canopy/pkg/adapters/http"
	"github.com/aretw0/canopy/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Exposes the tree over HTTP: runs stream back as server-sent events,
and a runlog store (--store) adds run history endpoints.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		treeDir, _ := cmd.Flags().GetString("tree")
		addr, _ := cmd.Flags().GetString("addr")
		storeKind, _ := cmd.Flags().GetString("store")
		storeAddr, _ := cmd.Flags().GetString("store-addr")
		encryptKey, _ := cmd.Flags().GetString("encrypt-key")
		maskKeys, _ := cmd.Flags().GetStringSlice("mask")
		withMetrics, _ := cmd.Flags().GetBool("metrics")
		validateRequests, _ := cmd.Flags().GetBool("validate-requests")

		maybeBanner(cmd)

		tree, err := cli.BuildTree(cmd.Context(), treeDir, nil, logger)
		if err != nil {
			return err
		}

		opts := []httpadapter.Option{
			httpadapter.WithServerLogger(logger),
			httpadapter.WithRequestValidation(validateRequests),
		}
		if storeKind != "" {
			layers, err := cli.StoreLayers(encryptKey, maskKeys)
			if err != nil {
				return err
			}
			store, closeStore, err := cli.OpenStore(storeKind, storeAddr, layers...)
			if err != nil {
				return err
			}
			defer closeStore()
			opts = append(opts, httpadapter.WithStore(store))
		}
		if withMetrics {
			opts = append(opts, httpadapter.WithMetrics(observability.NewCollector()))
		}

		handler, err := httpadapter.NewServer(tree, opts...).Handler()
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr, "tree", tree.Name())
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete, closing", "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("close server: %w", err)
				}
			}
			logger.Info("server stopped")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("tree", "", "Loam directory holding the tree definition")
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().String("store", "", "Runlog store kind (memory, redis, sqlite); empty disables history")
	serveCmd.Flags().String("store-addr", "", "Store address (redis addr or sqlite path)")
	serveCmd.Flags().String("encrypt-key", "", "Hex-encoded 32-byte key encrypting recorded events at rest")
	serveCmd.Flags().StringSlice("mask", nil, "Regexps for payload keys to mask before recording")
	serveCmd.Flags().Bool("metrics", false, "Expose Prometheus metrics on /metrics")
	serveCmd.Flags().Bool("validate-requests", false, "Validate requests against the OpenAPI document")
}
