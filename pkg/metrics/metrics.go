// Package metrics defines the prometheus instrumentation for boardroom.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus collectors are registered once at init.
var (
	// GenerationsTotal counts structured-output generation calls by
	// implementation (stub, openai) and outcome (ok, error).
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardroom_generations_total",
		Help: "Structured-output generation calls by implementation and outcome.",
	}, []string{"impl", "outcome"})

	// CompatRetriesTotal counts compatibility retries by offending parameter.
	CompatRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardroom_compat_retries_total",
		Help: "Requests retried after an unsupported-parameter rejection.",
	}, []string{"param"})

	// TruncationRetriesTotal counts token-budget escalation retries.
	TruncationRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boardroom_truncation_retries_total",
		Help: "Requests retried with an escalated token budget after truncation.",
	})

	// RunsTotal counts review runs by final thread status.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardroom_runs_total",
		Help: "Review runs by final thread status.",
	}, []string{"status"})

	// RunDuration observes end-to-end review run duration.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boardroom_run_duration_seconds",
		Help:    "End-to-end review run duration.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)
