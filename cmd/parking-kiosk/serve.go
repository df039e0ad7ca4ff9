package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dongtanms/parking-kiosk/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the kiosk API (default)",
	Long: `Open the store, start the backup scheduler and serve the kiosk HTTP API.
SIGINT or SIGTERM drains requests and writes a final autosave before exit.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withApp(ctx, func(a *app.App) error {
		if err := a.Run(ctx); err != nil {
			return err
		}
		logger.Info("shut down cleanly")
		return nil
	})
}
