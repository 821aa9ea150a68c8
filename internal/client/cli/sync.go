package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iudanet/gophsync/internal/client/data"
	syncengine "github.com/iudanet/gophsync/internal/client/sync"
)

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization cycle with the coordinator",
		Args:  cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			pending := len(app.Tracker.PendingChanges())

			engine := app.Engine(syncengine.NewStaticConnectivity(true))
			if err := engine.Sync(cmd.Context()); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			state := engine.State()
			_, err := fmt.Fprintf(cmd.OutOrStdout(),
				"Sync complete: pushed %d change(s), resolved %d conflict(s), %d still pending\n",
				pending-len(app.Tracker.PendingChanges()), state.ConflictCount, len(app.Tracker.PendingChanges()))
			return err
		}),
	}
}

// lockedWriter сериализует вывод горутин команды run
type lockedWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (l *lockedWriter) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = fmt.Fprintf(l.w, format, args...)
}

func newRunCommand(opts *rootOptions) *cobra.Command {
	var verifyInterval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Synchronize in the background until interrupted",
		Long: `Run the sync engine: the coordinator health endpoint is probed to
track connectivity, a cycle runs every sync.interval and immediately when
the device comes back online. Local records are verified on start and,
with --verify-interval, periodically afterwards.`,
		Args: cobra.NoArgs,
		RunE: opts.withApp(func(cmd *cobra.Command, _ []string, app *App) error {
			return runDaemon(cmd.Context(), app, opts, verifyInterval, &lockedWriter{w: cmd.OutOrStdout()})
		}),
	}
	cmd.Flags().DurationVar(&verifyInterval, "verify-interval", 0, "Re-verify local records with this period (0 disables)")

	return cmd
}

func runDaemon(ctx context.Context, app *App, opts *rootOptions, verifyInterval time.Duration, out *lockedWriter) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := app.Data.VerifyAndRepair(ctx)
	if err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	out.Printf("Verified %d record(s): %d repaired, %d unrepairable\n",
		report.Checked, report.Repaired, len(report.Unrepairable))

	probe := syncengine.NewProbeConnectivity(app.Client, opts.cfg.Sync.ProbeInterval, opts.logger,
		syncengine.WithProbeTimeout(opts.cfg.Sync.RequestTimeout))
	probe.Start(ctx)
	defer probe.Stop()

	engine := app.Engine(probe)
	unsubscribe := engine.Subscribe(func(state syncengine.SyncState) {
		line := fmt.Sprintf("[%s] online=%t syncs=%d conflicts=%d", state.Status, state.IsOnline, state.SyncCount, state.ConflictCount)
		if state.SyncError != "" {
			line += " error=" + state.SyncError
		}
		out.Printf("%s\n", line)
	})
	defer unsubscribe()

	engine.Start(opts.cfg.Sync.Interval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		engine.Stop()
		return nil
	})
	if verifyInterval > 0 {
		g.Go(func() error {
			return verifyLoop(gctx, app.Data, verifyInterval, opts, out)
		})
	}

	return g.Wait()
}

func verifyLoop(ctx context.Context, service *data.Service, interval time.Duration, opts *rootOptions, out *lockedWriter) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			report, err := service.VerifyAndRepair(ctx)
			if err != nil {
				opts.logger.Error("Periodic integrity check failed", "error", err)
				continue
			}
			if report.Invalid > 0 {
				out.Printf("Verified %d record(s): %d repaired, %d unrepairable\n",
					report.Checked, report.Repaired, len(report.Unrepairable))
			}
		}
	}
}
