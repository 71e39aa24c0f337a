package bot

// Wallet monitor runner: feeds the watcher from its source and, alongside,
// renders the console dashboard and answers Telegram commands.

import (
	"context"
	"errors"
	"io"
	"time"

	"pump-wallet-monitor/internal/features/dashboard"
	"pump-wallet-monitor/internal/features/holdings"
	"pump-wallet-monitor/internal/features/watcher"
	log "pump-wallet-monitor/internal/infra/log"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Deps struct {
	Watcher *watcher.Watcher
	Source  watcher.Source

	// Dashboard is where the holdings table is drawn; nil disables drawing
	// but small positions are still pruned every RenderInterval.
	Dashboard      io.Writer
	RenderInterval time.Duration

	// Commands enables the Telegram command handler when set.
	Commands *CommandHandler
}

// RunWalletMonitor blocks until ctx is cancelled or the source fails. A
// failing source sends an Error alert before the error is returned.
func RunWalletMonitor(ctx context.Context, d Deps) error {
	if d.Watcher == nil || d.Source == nil {
		return errors.New("wallet monitor needs a watcher and a source")
	}

	log.LogSuccess("Wallet monitor started",
		zap.String("wallet", d.Watcher.Wallet().String()),
		zap.String("program", d.Watcher.Program().String()),
		zap.String("source", d.Source.Name()),
		zap.Bool("dashboard", d.Dashboard != nil),
		zap.Bool("commands", d.Commands != nil))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := d.Source.Run(gctx, d.Watcher)
		if err == nil || gctx.Err() != nil {
			return nil
		}
		log.LogError("Monitor source stopped", zap.String("source", d.Source.Name()), zap.Error(err))
		d.Watcher.ReportFailure(ctx, err)
		return err
	})

	g.Go(func() error {
		RunDashboard(gctx, d.Watcher, d.Dashboard, d.RenderInterval)
		return nil
	})

	if d.Commands != nil {
		g.Go(func() error {
			RunCommandHandler(gctx, d.Commands)
			return nil
		})
	}

	return g.Wait()
}

// RunDashboard prunes small positions and redraws the holdings table every
// interval until ctx is done. A nil w only prunes.
func RunDashboard(ctx context.Context, wt *watcher.Watcher, w io.Writer, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			wt.PruneHoldings()
			if w == nil {
				continue
			}
			snap := wt.Portfolio().Snapshot()
			dashboard.Render(w, snap, holdings.Summarize(snap), now)
		}
	}
}
