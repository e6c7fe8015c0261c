// Package metrics exposes the Prometheus instrumentation for query
// execution. Shape reconstructed from the metrics.RecordClickHouseQuery
// call sites throughout api/handlers (the metrics package itself wasn't
// present in the retrieved pack).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facet_query_duration_seconds",
		Help:    "Query execution duration by dialect and outcome.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect", "outcome"})

	queryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facet_query_total",
		Help: "Total queries executed by dialect and outcome.",
	}, []string{"dialect", "outcome"})
)

// RecordQuery records the outcome and duration of a single query execution
// against a given dialect.
func RecordQuery(dialect string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	queryDuration.WithLabelValues(dialect, outcome).Observe(duration.Seconds())
	queryTotal.WithLabelValues(dialect, outcome).Inc()
}
