package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobRunsTotal, jobDurationSeconds)
}

var (
	jobRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Scheduler job executions, labeled by job name and outcome.",
		},
		[]string{"job", "outcome"}, // 'ok', 'error', 'skipped'
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheduler_job_duration_seconds",
			Help:    "Wall time of scheduler job executions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func IncJobRun(job, outcome string)             { jobRunsTotal.WithLabelValues(job, outcome).Inc() }
func ObserveJobDuration(job string, sec float64) { jobDurationSeconds.WithLabelValues(job).Observe(sec) }
