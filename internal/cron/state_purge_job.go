package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
)

const statePurgeJobName = "state_purge"

// Purger removes session state whose TTL elapsed.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StatePurgeJob drops expired persisted carts and inventory adjustments.
// Redis expires keys itself; this job is for the SQL storage backend.
type StatePurgeJob struct {
	purger  Purger
	logg    *logger.Logger
	metrics *metrics.JobMetrics
}

func NewStatePurgeJob(purger Purger, logg *logger.Logger, m *metrics.JobMetrics) (*StatePurgeJob, error) {
	if purger == nil {
		return nil, fmt.Errorf("purger required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &StatePurgeJob{purger: purger, logg: logg, metrics: m}, nil
}

func (j *StatePurgeJob) Name() string { return statePurgeJobName }

func (j *StatePurgeJob) Run(ctx context.Context) error {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		return fmt.Errorf("purge expired state: %w", err)
	}
	j.metrics.AddPurged(statePurgeJobName, n)
	if n > 0 {
		j.logg.Info(j.logg.WithField(ctx, "purged", n), "expired session state removed")
	}
	return nil
}
