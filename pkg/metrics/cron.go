package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics records executions of scheduled jobs.
type CronJobMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	lastRun  *prometheus.GaugeVec
}

// NewCronJobMetrics registers the cron metrics on reg. A nil reg yields a no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return &CronJobMetrics{}
	}
	m := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Duration of cron jobs in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		success: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_success",
			Help: "Successful cron job executions.",
		}, []string{"job"}),
		failure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "job_failure",
			Help: "Failed cron job executions.",
		}, []string{"job"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "job_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run per job.",
		}, []string{"job"}),
	}
	reg.MustRegister(m.duration, m.success, m.failure, m.lastRun)
	return m
}

// Observe records one finished run.
func (c *CronJobMetrics) Observe(job string, started time.Time, err error) {
	if c == nil || c.duration == nil {
		return
	}
	label := normalizeLabel(job)
	c.duration.WithLabelValues(label).Observe(time.Since(started).Seconds())
	c.lastRun.WithLabelValues(label).SetToCurrentTime()
	if err != nil {
		c.failure.WithLabelValues(label).Inc()
		return
	}
	c.success.WithLabelValues(label).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
