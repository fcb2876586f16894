package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const refreshTimeout = time.Minute

// Refresher is the feed operation the scheduler drives.
type Refresher interface {
	OnScreenFocused(ctx context.Context)
}

// Scheduler periodically triggers a silent feed refresh, the daemon-mode
// counterpart of the screen-focus reload.
type Scheduler struct {
	ctx  context.Context
	cron *cron.Cron
	feed Refresher
	spec string
	log  *slog.Logger
}

func New(ctx context.Context, feed Refresher, spec string, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	return &Scheduler{
		ctx:  ctx,
		cron: c,
		feed: feed,
		spec: spec,
		log:  log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refresh); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) refresh() {
	ctx, cancel := context.WithTimeout(s.ctx, refreshTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())

		return
	default:
	}

	s.feed.OnScreenFocused(ctx)
}
