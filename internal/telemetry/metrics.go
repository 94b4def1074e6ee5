package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quiz"

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rooms_created_total",
		Help:      "Rooms created.",
	})

	ProgressReports = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "room_progress_reports_total",
		Help:      "Student progress reports accepted.",
	})

	// QuestionBatches counts question sets by source: generator or fallback.
	QuestionBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "question_batches_total",
		Help:      "Question sets served, by source.",
	}, []string{"source"})

	SessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_completed_total",
		Help:      "Solo sessions finalized, by difficulty.",
	}, []string{"difficulty"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)
