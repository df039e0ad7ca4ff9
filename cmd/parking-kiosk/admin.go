package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dongtanms/parking-kiosk/internal/app"
	"github.com/dongtanms/parking-kiosk/internal/parking/service"
	"github.com/dongtanms/parking-kiosk/internal/parking/types"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write the admin backup file now",
	Long:  `Snapshot every entry to parking_backup.json in the backup folder, the same file the admin screen's backup button writes.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		// The scheduler is left stopped so Close writes no shutdown autosave.
		return withApp(ctx, func(a *app.App) error {
			path := a.Scheduler.Paths().Admin()
			n, err := a.Scheduler.Snapshot(ctx, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Backed up %d entries to %s\n", n, path)
			return nil
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Import the admin backup file into the store",
	Long: `Replay parking_backup.json from the backup folder into the store.
Restore is additive: current entries are kept and every record in the file is
added with a new id and its original registration time.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app.App) error {
			path := a.Scheduler.Paths().Admin()
			n, err := service.NewRestorer(a.Store, logger).Restore(ctx, path)
			if err != nil {
				if n > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "restore stopped after %d entries\n", n)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored %d entries from %s\n", n, path)
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print entry totals and the hourly histogram",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			st, err := a.Admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(backupCmd, restoreCmd, statsCmd)
}

func printStats(w io.Writer, st types.Stats) {
	fmt.Fprintf(w, "total:   %d\n", st.Total)
	fmt.Fprintf(w, "done:    %d\n", st.Done)
	fmt.Fprintf(w, "pending: %d\n", st.Pending)
	fmt.Fprintf(w, "rate:    %d%%\n", st.DoneRate)
	fmt.Fprintln(w)
	for h, n := range st.Hourly {
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "%02d:00 %-20s %d\n", h, strings.Repeat("#", min(n, 20)), n)
	}
}
