// Package metrics holds the process's Prometheus collectors as
// package-level variables, plus helpers for the labelled counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typing_sessions_started_total",
		Help: "Total number of typing sessions started.",
	})

	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typing_sessions_finished_total",
		Help: "Total number of typing sessions finished, by terminal status.",
	}, []string{"status"})

	ReviewJobsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typing_review_jobs_resolved_total",
		Help: "Total number of anti-cheat review jobs resolved, by outcome.",
	}, []string{"status"})

	LeaderboardReadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "typing_leaderboard_read_duration_seconds",
		Help:    "Latency of leaderboard reads, including the underlying session scan.",
		Buckets: prometheus.DefBuckets,
	})

	LeaderboardPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typing_leaderboard_publish_failures_total",
		Help: "Total number of failed best-effort leaderboard snapshot publishes.",
	})
)

// ObserveSessionFinished records a terminal session status as a string
// label so callers never need to import model.SessionStatus here.
func ObserveSessionFinished(status string) {
	SessionsFinished.WithLabelValues(status).Inc()
}

// ObserveReviewJobResolved records a review job's terminal status.
func ObserveReviewJobResolved(status string) {
	ReviewJobsResolved.WithLabelValues(status).Inc()
}
