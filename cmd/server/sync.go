package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rental-sync/backend/internal/api/handlers"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one scheduled sync of every enabled property and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")

		run, batch, err := a.triggers.Scheduled(ctx)
		if err != nil {
			enc.Encode(handlers.ScheduledSyncFailure{Success: false, Error: err.Error(), LogID: run.ID})
			return err
		}
		return enc.Encode(handlers.NewScheduledSyncResponse(run, batch))
	},
}
