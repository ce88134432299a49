// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "reelmeta"

var (
	// Extractions counts finished extractions by platform and whether a
	// media URL was found.
	Extractions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Finished extractions by platform and result.",
	}, []string{"platform", "result"})

	// ExtractionDuration observes end-to-end extraction latency.
	ExtractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "End-to-end extraction latency.",
		Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
	}, []string{"platform"})

	// StrategyOutcomes counts strategy runs by platform, strategy and outcome.
	StrategyOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "strategy_outcomes_total",
		Help:      "Strategy runs by platform, strategy and outcome.",
	}, []string{"platform", "strategy", "outcome"})

	// BrowserAttempts counts browser attempts by result.
	BrowserAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "browser_attempts_total",
		Help:      "Browser capture attempts by result.",
	}, []string{"result"})

	// CacheLookups counts result cache lookups by result.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Result cache lookups by result.",
	}, []string{"result"})
)
