package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/robfig/cron/v3"

	"stockwatch/internal/notify"
)

// ScheduleConfig holds the timing knobs for the poll loop and the
// summary job.
type ScheduleConfig struct {
	PollInterval     time.Duration
	Jitter           time.Duration
	MinWait          time.Duration
	FailureThreshold int
	FailureCooldown  time.Duration
	SummaryInterval  time.Duration
}

// Scheduler drives the poll loop and the periodic summary job.
//
// Polling does not go through cron: each wait is the poll interval plus a
// random jitter, and consecutive failures push the next attempt out by a
// cooldown, neither of which a fixed cron expression can express. Cycles
// run strictly one at a time. The summary job is an independent fixed
// cadence and does use cron.
type Scheduler struct {
	engine   *Engine
	notifier notify.Notifier
	cron     *cron.Cron
	cfg      ScheduleConfig
	log      *slog.Logger
}

// NewScheduler creates a Scheduler that runs engine cycles per cfg.
func NewScheduler(
	eng *Engine,
	n notify.Notifier,
	cfg ScheduleConfig,
	log *slog.Logger,
) (*Scheduler, error) {
	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DiscardLogger),
	))

	s := &Scheduler{
		engine:   eng,
		notifier: n,
		cron:     c,
		cfg:      cfg,
		log:      log,
	}

	if cfg.SummaryInterval > 0 {
		if _, err := c.AddFunc(
			"@every "+cfg.SummaryInterval.String(),
			s.runSummary,
		); err != nil {
			return nil, fmt.Errorf("registering summary job: %w", err)
		}
	}

	return s, nil
}

// Run executes poll cycles until ctx is cancelled. It blocks.
func (s *Scheduler) Run(ctx context.Context) {
	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
		s.log.Info("scheduler stopped")
	}()

	s.log.Info("scheduler started",
		"poll_interval", s.cfg.PollInterval,
		"jitter", s.cfg.Jitter,
	)

	failures := 0
	for {
		result := s.engine.RunCycle(ctx)
		if ctx.Err() != nil {
			return
		}

		if result.Failed {
			failures++
			s.log.Warn("cycle failed", "consecutive_failures", failures)

			if failures >= s.cfg.FailureThreshold {
				s.coolDown(ctx, failures)
				if ctx.Err() != nil {
					return
				}
				failures = 0
				continue
			}
		} else {
			failures = 0
		}

		if !s.sleep(ctx, s.nextWait()) {
			return
		}
	}
}

// Entries returns the registered cron entries for inspection.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// coolDown reports persistent failure to the notifier and backs off.
func (s *Scheduler) coolDown(ctx context.Context, failures int) {
	s.log.Error("failure threshold reached, cooling down",
		"failures", failures,
		"cooldown", s.cfg.FailureCooldown,
	)

	msg := fmt.Sprintf(
		"%d consecutive poll failures, pausing for %s",
		failures, s.cfg.FailureCooldown,
	)
	if err := s.notifier.SendError(ctx, msg); err != nil {
		s.log.Error("failure notification failed", "error", err)
	}

	s.sleep(ctx, s.cfg.FailureCooldown)
}

// nextWait is the poll interval plus a uniform jitter in [-Jitter, +Jitter],
// never less than MinWait.
func (s *Scheduler) nextWait() time.Duration {
	wait := s.cfg.PollInterval
	if s.cfg.Jitter > 0 {
		wait += time.Duration(rand.Int63n(int64(2*s.cfg.Jitter))) - s.cfg.Jitter
	}
	return max(wait, s.cfg.MinWait)
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) runSummary() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, err := s.engine.Stats(ctx)
	if err != nil {
		s.log.Error("summary stats lookup failed", "error", err)
		return
	}
	if err := s.notifier.SendSummary(ctx, *stats); err != nil {
		s.log.Error("summary delivery failed", "error", err)
	}
}
