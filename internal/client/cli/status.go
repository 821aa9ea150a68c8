package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophsync/internal/crdt"
)

func newStatusCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show device, queue and coordinator status",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			cursor, err := app.Store.GetSyncCursor(ctx)
			if err != nil {
				return fmt.Errorf("failed to get sync cursor: %w", err)
			}
			records, err := app.Store.ListRecords(ctx)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}

			fmt.Fprintf(out, "Device:  %s\n", app.Tracker.DeviceID())
			fmt.Fprintf(out, "User:    %s\n", app.Tracker.UserID())
			fmt.Fprintf(out, "Records: %d\n", len(records))
			fmt.Fprintf(out, "Pending: %d\n", len(app.Tracker.PendingChanges()))
			fmt.Fprintf(out, "Cursor:  %d\n", cursor)
			fmt.Fprintf(out, "Clock:   %s\n", formatClock(app.Tracker.VectorClock()))

			// Недоступность координатора не ошибка для локального статуса
			health, err := app.Client.Health(ctx)
			if err != nil {
				opts.logger.Debug("Coordinator health check failed", "error", err)
				_, err = fmt.Fprintf(out, "Server:  %s (unreachable)\n", opts.cfg.ServerURL)
				return err
			}
			_, err = fmt.Fprintf(out, "Server:  %s (%s, version %s)\n", opts.cfg.ServerURL, health.Status, health.Version)
			return err
		}),
	}
}

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Validate local records and repair them from history",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			report, err := app.Data.VerifyAndRepair(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Checked:      %d\n", report.Checked)
			fmt.Fprintf(out, "Invalid:      %d\n", report.Invalid)
			fmt.Fprintf(out, "Repaired:     %d\n", report.Repaired)
			fmt.Fprintf(out, "Unrepairable: %d\n", len(report.Unrepairable))
			for _, key := range report.Unrepairable {
				fmt.Fprintf(out, "  %s\n", key)
			}
			if len(report.Unrepairable) > 0 {
				return fmt.Errorf("%d record(s) could not be repaired", len(report.Unrepairable))
			}
			return nil
		}),
	}
}

func formatClock(clock crdt.VectorClock) string {
	if len(clock) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(clock))
	for _, device := range slices.Sorted(maps.Keys(clock)) {
		parts = append(parts, fmt.Sprintf("%s:%d", device, clock[device]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
