package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job is a named unit of background work run by the Scheduler
type Job struct {
	name    string
	timeout time.Duration
	run     func(ctx context.Context, logger *zap.Logger) error
}

func NewJob(name string, run func(ctx context.Context, logger *zap.Logger) error, timeout time.Duration) Job {
	return Job{name: name, run: run, timeout: timeout}
}

func (j Job) Name() string {
	return j.name
}

// Sweeper drops recovery records that are past their retention window
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// NewOTPSweepJob removes stale recovery codes from sweeper
func NewOTPSweepJob(sweeper Sweeper) Job {
	return NewJob("otp-sweep", func(ctx context.Context, logger *zap.Logger) error {
		removed, err := sweeper.Sweep(ctx)
		if removed > 0 {
			logger.Info("swept stale recovery codes", zap.Int("removed", removed))
		}
		return err
	}, time.Minute)
}
