// Package metrics exposes Prometheus instrumentation for the ledger.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Mutation results.
const (
	ResultOK         = "ok"
	ResultRejected   = "rejected"
	ResultNotFound   = "not_found"
	ResultSaveFailed = "save_failed"
)

var Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "mutations_total",
	Help:      "Ledger mutations by operation and result.",
}, []string{"operation", "result"})

var SaveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "ledger",
	Name:      "save_duration_seconds",
	Help:      "Time spent writing the full ledger document.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
})

var SaveFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "save_failures_total",
	Help:      "Ledger saves that returned an error.",
})

var Transactions = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "ledger",
	Name:      "transactions",
	Help:      "Stored transactions per group.",
}, []string{"group"})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "ledger",
	Name:      "http_requests_total",
	Help:      "HTTP requests by method, route pattern and status.",
}, []string{"method", "route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "ledger",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// RecordMutation counts one mutation attempt.
func RecordMutation(operation, result string) {
	Mutations.WithLabelValues(operation, result).Inc()
}

// ObserveSave records the duration and outcome of one save.
func ObserveSave(start time.Time, err error) {
	SaveDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		SaveFailures.Inc()
	}
}

// ObserveHTTP records one finished request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(route).Observe(d.Seconds())
}
