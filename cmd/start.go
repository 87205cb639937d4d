package main

import (
	"fmt"

	"github.com/Shugur-Network/feedsync/internal/application"
	"github.com/Shugur-Network/feedsync/internal/logger"
	"github.com/Shugur-Network/feedsync/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the feedsync daemon",
		Long:  "Subscribe to the account's relays, persist what arrives and keep the home feed current until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger.Info("Using config file", zap.String("config_file", cfgFile))

			metrics.RegisterMetrics()

			logger.Info("Starting feedsync...", zap.String("version", version))
			app, err := application.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to initialize feedsync: %w", err)
			}

			if err := app.Start(ctx); err != nil {
				app.Shutdown()
				return fmt.Errorf("failed to start feedsync: %w", err)
			}
			logger.Info("feedsync started successfully")

			<-ctx.Done()
			logger.Info("Shutdown signal received, initiating graceful shutdown...")
			app.Shutdown()
			return nil
		},
	}
}
