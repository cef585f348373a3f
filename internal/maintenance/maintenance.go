// Package maintenance runs the periodic cleanup of upload leftovers:
// temporary attachments no post ever claimed and idle upload sessions.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// TemporaryPurger deletes temporary attachments created before cutoff.
type TemporaryPurger interface {
	PurgeTemporary(ctx context.Context, cutoff time.Time) (int, error)
}

// SessionEvicter drops expired upload sessions.
type SessionEvicter interface {
	Evict(ctx context.Context) (int, error)
}

// Result reports one cleanup pass.
type Result struct {
	PurgedAttachments int
	EvictedSessions   int
}

// Runner schedules cleanup passes.
type Runner struct {
	attachments TemporaryPurger
	sessions    SessionEvicter
	tempTTL     time.Duration
	now         func() time.Time
	logger      *slog.Logger
	cron        *cron.Cron
}

// New returns a Runner. sessions may be nil.
func New(attachments TemporaryPurger, sessions SessionEvicter, tempTTL time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		attachments: attachments,
		sessions:    sessions,
		tempTTL:     tempTTL,
		now:         time.Now,
		logger:      logger,
	}
}

// ValidateSchedule checks a cron spec such as "0 3 * * *" or "@every 1h".
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", spec, err)
	}
	return nil
}

// RunOnce performs a single cleanup pass.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	if r.attachments != nil && r.tempTTL > 0 {
		cutoff := r.now().Add(-r.tempTTL)
		purged, err := r.attachments.PurgeTemporary(ctx, cutoff)
		if err != nil {
			return res, fmt.Errorf("purge temporary attachments: %w", err)
		}
		res.PurgedAttachments = purged
	}
	if r.sessions != nil {
		evicted, err := r.sessions.Evict(ctx)
		if err != nil {
			return res, fmt.Errorf("evict upload sessions: %w", err)
		}
		res.EvictedSessions = evicted
	}
	return res, nil
}

// Start runs RunOnce on schedule until Stop. Overlapping passes are skipped.
func (r *Runner) Start(ctx context.Context, schedule string) error {
	if r.cron != nil {
		return fmt.Errorf("maintenance already started")
	}
	logger := cronLogger{logger: r.logger}
	c := cron.New(cron.WithLogger(logger), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))
	if _, err := c.AddFunc(schedule, func() { r.run(ctx) }); err != nil {
		return fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	r.cron = c
	c.Start()
	r.logger.Info("maintenance scheduled", "schedule", schedule, "temp_ttl", r.tempTTL.String())
	return nil
}

// Stop halts the schedule and waits for a running pass to finish.
func (r *Runner) Stop() {
	if r.cron == nil {
		return
	}
	<-r.cron.Stop().Done()
	r.cron = nil
}

func (r *Runner) run(ctx context.Context) {
	start := time.Now()
	res, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("maintenance failed", "error", err)
		return
	}
	if res.PurgedAttachments > 0 || res.EvictedSessions > 0 {
		r.logger.Info("maintenance complete",
			"purged_attachments", res.PurgedAttachments,
			"evicted_sessions", res.EvictedSessions,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
