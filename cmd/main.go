package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yungbote/coursechat-backend/internal/app"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        app.Config
	)

	cmd := &cobra.Command{
		Use:           "coursechat",
		Short:         "Course chat backend: uploads, grounded answers, and the HTTP API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = app.ConfigPathFromEnv()
			}
			loaded, err := app.Load(configPath)
			if err != nil {
				return err
			}
			if loaded.Version == "" || loaded.Version == "dev" {
				loaded.Version = version
			}
			cfg = loaded
			return nil
		},
	}
	cmd.Version = version
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default ./config.yaml, or $COURSECHAT_CONFIG)")

	cmd.AddCommand(
		newServeCmd(&cfg),
		newMigrateCmd(&cfg),
		newExtractCmd(&cfg),
		newAskCmd(&cfg),
		newFormatCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
