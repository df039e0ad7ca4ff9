package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dongtanms/parking-kiosk/internal/app"
	"github.com/dongtanms/parking-kiosk/internal/config"
	"github.com/dongtanms/parking-kiosk/internal/logging"
)

var (
	configPath string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "parking-kiosk",
	Short: "Parking lot entry kiosk backend",
	Long: `parking-kiosk keeps the lot's entry register for the touchscreen kiosk.
Without a subcommand it serves the kiosk API; the other commands are admin
maintenance tools that work against the same store and backup folder.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		return err
	},
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("PARKING_CONFIG"), "path to a YAML config file")
}

// withApp builds the app for a one-shot command and tears it down after fn.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
