package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/amishk599/applytrack/internal/model"
	"github.com/amishk599/applytrack/internal/poller"
)

// cleanupEvery is how often processed-email records are pruned.
const cleanupEvery = 24 * time.Hour

// Scheduler owns the watch loop: ticks on an interval and runs each inbox
// poller sequentially, pruning the processed-email ledger once a day.
type Scheduler struct {
	pollers     []*poller.InboxPoller
	interval    time.Duration
	minDelay    time.Duration
	ledger      model.EmailLedger
	retention   time.Duration
	lastCleanup time.Time
	logger      *slog.Logger
}

// NewScheduler creates a scheduler that polls all inboxes at the given interval.
// minDelay is the pause between two inboxes in the same cycle. ledger may be
// nil to disable cleanup.
func NewScheduler(pollers []*poller.InboxPoller, interval, minDelay time.Duration, ledger model.EmailLedger, retention time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		pollers:   pollers,
		interval:  interval,
		minDelay:  minDelay,
		ledger:    ledger,
		retention: retention,
		logger:    logger,
	}
}

// Run starts the polling loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"inboxes", len(s.pollers),
	)

	// Run one immediate poll cycle.
	s.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.cycle(ctx)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context) {
	s.pollAll(ctx)
	if ctx.Err() == nil {
		s.maybeCleanup(time.Now())
	}
}

// pollAll runs Poll on each poller sequentially, pausing minDelay between inboxes.
func (s *Scheduler) pollAll(ctx context.Context) {
	for i, p := range s.pollers {
		if ctx.Err() != nil {
			return
		}

		if err := p.Poll(ctx); err != nil {
			s.logger.Error("poll failed",
				"inbox", p.Name,
				"error", err,
			)
		}

		if i < len(s.pollers)-1 && s.minDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.minDelay):
			}
		}
	}
}

func (s *Scheduler) maybeCleanup(now time.Time) {
	if s.ledger == nil || s.retention <= 0 {
		return
	}
	if !s.lastCleanup.IsZero() && now.Sub(s.lastCleanup) < cleanupEvery {
		return
	}
	s.lastCleanup = now
	if err := s.ledger.Cleanup(s.retention); err != nil {
		s.logger.Error("ledger cleanup failed", "error", err)
		return
	}
	s.logger.Debug("ledger cleanup complete", "retention", s.retention.String())
}
