// Package metrics holds the Prometheus collectors for the moderation pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for ModerationRequestsTotal, one per terminal state of a request.
const (
	OutcomeBlocked               = "blocked"
	OutcomeNotBlocked            = "not_blocked"
	OutcomeAlreadyBlocked        = "already_blocked"
	OutcomeNoEvidence            = "no_evidence"
	OutcomeClassifierUnavailable = "classifier_unavailable"
	OutcomeConfigError           = "config_error"
	OutcomePersistenceError      = "persistence_error"
)

var (
	ModerationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_requests_total",
		Help: "Total number of moderation requests by terminal outcome",
	}, []string{"outcome"})

	// parse = "ok", "unparseable" or "unknown"
	ClassifierVerdictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "moderation_classifier_verdicts_total",
		Help: "Classifier verdicts by value and parse result",
	}, []string{"verdict", "parse"})

	ClassifierDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "moderation_classifier_duration_seconds",
		Help:    "Latency of the external classification call",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
	})

	EnforcementFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_enforcement_failures_total",
		Help: "Block enforcements that failed after retries and were left for reconciliation",
	})

	ReconciledBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_reconciled_blocks_total",
		Help: "Blocks re-applied by the reconciler",
	})

	BlockEventsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "moderation_block_events_failed_total",
		Help: "user_blocked events that could not be published",
	})
)
