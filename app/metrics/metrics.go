package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpull_runs_total",
		Help: "Pipeline runs by outcome (completed, push_failed).",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ytpull_run_duration_seconds",
		Help:    "Wall clock duration of one full pipeline run.",
		Buckets: prometheus.DefBuckets,
	})

	RecordsForwardedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytpull_records_forwarded_total",
		Help: "Records accepted by the engine ingestion endpoint.",
	})

	ChannelFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytpull_channel_failures_total",
		Help: "Per-channel failures by error kind.",
	}, []string{"kind"})

	PushAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytpull_push_attempts_total",
		Help: "HTTP attempts made against the engine ingestion endpoint.",
	})

	DuplicatesSuppressedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytpull_duplicates_suppressed_total",
		Help: "Records dropped by intra-run or durable deduplication.",
	})
)

func RecordRun(outcome string, duration time.Duration) {
	RunsTotal.WithLabelValues(outcome).Inc()
	RunDuration.Observe(duration.Seconds())
}

func RecordChannelFailure(kind string) {
	ChannelFailuresTotal.WithLabelValues(kind).Inc()
}
