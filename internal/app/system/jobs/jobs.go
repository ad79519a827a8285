// internal/app/system/jobs/jobs.go
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration // per run; defaults to Interval
	Run      func(ctx context.Context) error
}

// PastDueSweeper flags overdue work items.
type PastDueSweeper interface {
	SweepPastDue(ctx context.Context, now time.Time) (int, error)
}

// OAuthStateCleaner removes expired OAuth states.
type OAuthStateCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// PastDueSweepJob flags pending tasks and projects whose current deadline
// has passed.
func PastDueSweepJob(name string, sweeper PastDueSweeper, logger *zap.Logger, interval time.Duration) Job {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := sweeper.SweepPastDue(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("flagged past-due items", zap.String("job", name), zap.Int("count", n))
			}
			return nil
		},
	}
}

// OAuthStateCleanupJob removes expired OAuth states. The TTL index does the
// same eventually; this bounds the delay.
func OAuthStateCleanupJob(cleaner OAuthStateCleaner, logger *zap.Logger) Job {
	return Job{
		Name:     "oauth-state-cleanup",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			count, err := cleaner.CleanupExpired(ctx)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("cleaned up expired OAuth states", zap.Int64("count", count))
			}
			return nil
		},
	}
}

// Sweepable is an in-memory structure with expiring entries.
type Sweepable interface {
	Sweep() int
}

// SweepJob periodically drops expired in-memory entries (rate-limit
// windows).
func SweepJob(name string, s Sweepable, interval time.Duration) Job {
	return Job{
		Name:     name,
		Interval: interval,
		Run: func(context.Context) error {
			s.Sweep()
			return nil
		},
	}
}
