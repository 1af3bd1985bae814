package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/coursechat-backend/internal/app"
	"github.com/yungbote/coursechat-backend/internal/platform/logger"
	"github.com/yungbote/coursechat-backend/internal/platform/shutdown"
)

func newServeCmd(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := shutdown.NotifyContext(cmd.Context())
			defer stop()

			a, err := app.New(ctx, *cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			a.Log.Info("Starting coursechat", "version", cfg.Version, "env", cfg.Env, "addr", cfg.HTTP.Addr())
			if err := a.Run(ctx); err != nil {
				a.Log.Error("Server stopped with error", "error", err)
				return err
			}
			a.Log.Info("Server stopped")
			return nil
		},
	}
}

func newMigrateCmd(cfg *app.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logger.New(cfg.LogMode)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer log.Sync()

			svc, err := app.OpenDB(log, cfg.DB)
			if err != nil {
				return err
			}
			defer svc.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
