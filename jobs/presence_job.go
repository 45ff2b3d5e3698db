package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper reconciles stored presence with the live registry.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type PresenceSweepJob struct {
	sweeper Sweeper
	timeout time.Duration
	log     *slog.Logger
}

func NewPresenceSweepJob(sweeper Sweeper, timeout time.Duration, log *slog.Logger) *PresenceSweepJob {
	return &PresenceSweepJob{sweeper: sweeper, timeout: timeout, log: log}
}

// Run flags stale online users offline. It satisfies cron.Job.
func (j *PresenceSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.log.Debug("Running job: PresenceSweep")
	flagged, err := j.sweeper.Sweep(ctx)
	if err != nil {
		j.log.Error("Presence sweep failed", "error", err)
		return
	}
	if flagged > 0 {
		j.log.Info("Marked stale users offline", "count", flagged)
	}
}

// Schedule registers the job on c with the given cron spec.
func (j *PresenceSweepJob) Schedule(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddJob(spec, j)
}
