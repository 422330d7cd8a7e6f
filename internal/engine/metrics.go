// Prometheus metrics for the Trading Engine, in the teacher pack's
// registration style (grounded on chidi150c-coinbase/metrics.go's
// NewCounterVec + init()-time MustRegister).
package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_kline_events_total",
			Help: "Kline events processed, by symbol.",
		},
		[]string{"symbol"},
	)

	tradesExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_trades_total",
			Help: "Paper trades executed, by side.",
		},
		[]string{"side"},
	)

	mtmPersists = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_mtm_snapshots_total",
			Help: "Equity snapshots persisted from mark-to-market updates.",
		},
	)
)

func init() {
	prometheus.MustRegister(eventsProcessed, tradesExecuted, mtmPersists)
}
