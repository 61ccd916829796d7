// Package metrics holds Prometheus instruments for the contact pipeline.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for SubmissionsTotal.
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid"
	OutcomeOffline    = "offline"
	OutcomeDuplicate  = "duplicate"
	OutcomePermission = "permission"
	OutcomeError      = "error"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact submissions by terminal outcome.",
		}, []string{"outcome"})

	ProbeFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_probe_failures_total",
			Help: "Cumulative number of failed connectivity probes.",
		})

	SubmitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "contact_submit_duration_seconds",
			Help:    "Latency of store inserts, successful or not.",
			Buckets: prometheus.DefBuckets,
		})

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "contact_active_sessions",
			Help: "Number of form sessions currently held in memory.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_session_evict_total",
			Help: "Cumulative number of form sessions evicted (idle or capacity).",
		})

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_notifications_total",
			Help: "Post-submission notifications by channel and result.",
		}, []string{"channel", "result"})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		ProbeFailuresTotal,
		SubmitDuration,
		ActiveSessions,
		SessionEvictTotal,
		NotificationsTotal,
	)
}
