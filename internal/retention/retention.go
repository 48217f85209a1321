// Package retention purges calculation logs once they age out.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/store"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Purger is the subset of store.Store the job needs.
type Purger interface {
	PurgeCalculations(ctx context.Context, before time.Time) (int64, error)
}

var _ Purger = (store.Store)(nil)

// Job runs PurgeCalculations on a cron schedule.
type Job struct {
	purger   Purger
	maxAge   time.Duration
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
	cron     *cron.Cron
}

// NewJob purges records older than retentionDays on schedule, a standard
// five-field cron spec or a descriptor such as "@daily".
func NewJob(purger Purger, retentionDays int, schedule string, logger *zap.Logger) (*Job, error) {
	if retentionDays < 1 {
		return nil, fmt.Errorf("retention must be at least one day, got %d", retentionDays)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Job{
		purger:   purger,
		maxAge:   time.Duration(retentionDays) * 24 * time.Hour,
		schedule: schedule,
		timeout:  time.Minute,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// RunOnce purges everything older than the retention window and returns the count.
func (j *Job) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().Add(-j.maxAge)
	purged, err := j.purger.PurgeCalculations(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge calculations: %w", err)
	}
	j.logger.Info("purged calculation logs",
		zap.String("op", "retention.RunOnce"),
		zap.Int64("purged", purged),
		zap.Time("cutoff", cutoff),
	)
	return purged, nil
}

// Start schedules the job. Call Stop to end it.
func (j *Job) Start() error {
	c := cron.New()
	_, err := c.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		if _, err := j.RunOnce(ctx); err != nil {
			j.logger.Error("retention run failed",
				zap.String("op", "retention.Start"),
				zap.Error(err),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	j.cron = c
	c.Start()

	j.logger.Info("retention job scheduled",
		zap.String("op", "retention.Start"),
		zap.String("schedule", j.schedule),
		zap.Duration("maxAge", j.maxAge),
	)
	return nil
}

// Stop halts scheduling and waits for a running purge to finish or ctx to end.
func (j *Job) Stop(ctx context.Context) {
	if j.cron == nil {
		return
	}
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
}
