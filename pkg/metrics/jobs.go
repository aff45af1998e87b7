package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// JobMetrics records scheduled maintenance job runs.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	purged   *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "job_duration_seconds",
		Help:      "Duration of maintenance jobs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "job_runs_total",
		Help:      "Maintenance job runs by result.",
	}, []string{"job", "result"})
	purged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "state_purged_total",
		Help:      "Expired session state records removed.",
	}, []string{"job"})
	reg.MustRegister(duration, runs, purged)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		purged:   purged,
	}
}

// ObserveRun records the duration and result of one job run.
func (j *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if j == nil || j.duration == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	j.duration.WithLabelValues(normalizeLabel(job)).Observe(duration.Seconds())
	j.runs.WithLabelValues(normalizeLabel(job), result).Inc()
}

func (j *JobMetrics) AddPurged(job string, n int64) {
	if j == nil || j.purged == nil || n <= 0 {
		return
	}
	j.purged.WithLabelValues(normalizeLabel(job)).Add(float64(n))
}
