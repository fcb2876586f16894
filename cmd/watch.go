package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"bookworm/internal/feed"
	"bookworm/internal/scheduler"

	"github.com/spf13/cobra"
)

func newWatchCommand(log *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow the feed, refreshing on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a, err := newApp(ctx, log)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			a.session.Restore(ctx)
			if !a.session.Snapshot().SignedIn() {
				return errors.New("not signed in; run bookworm login first")
			}

			feedSync := a.newSynchronizer()
			unsubscribe := feedSync.Subscribe(func(state feed.State) {
				if state.IsLoading || state.IsRefreshing {
					return
				}

				log.InfoContext(ctx, "Feed updated",
					"itemCount", len(state.Items),
					"page", state.CurrentPage,
					"hasMore", state.HasMore)
			})
			defer unsubscribe()

			if err := feedSync.Refresh(ctx); err != nil {
				log.WarnContext(ctx, "Initial refresh failed",
					"error", err)
			}

			sched := scheduler.New(ctx, feedSync, a.cfg.RefreshSpec, log)
			if err := sched.Start(); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()
			log.InfoContext(ctx, "Scheduler is started",
				"spec", a.cfg.RefreshSpec)

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			sig := <-c
			log.InfoContext(ctx, "Shutdown signal is received",
				"signal", sig.String())
			cancel()

			return nil
		},
	}
}
