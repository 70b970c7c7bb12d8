package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tracks quote requests by outcome (ok, no_route, invalid_amount).
	QuotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_quotes_total",
			Help: "Total number of swap quotations computed, by outcome.",
		},
		[]string{"outcome"},
	)

	// Tracks swap executions by outcome (settled, rejected reason, infrastructure, replay).
	SwapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swap_executions_total",
			Help: "Total number of swap execution attempts, by outcome.",
		},
		[]string{"outcome"},
	)

	// Measures the validate-and-settle window.
	SettleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swap_settle_duration_seconds",
			Help:    "Duration of the validate-and-settle window in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	// Gauges the last successful price poll (seconds since epoch).
	LastPricePoll = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "price_feed_last_poll_timestamp",
			Help: "Timestamp (unix seconds) of the last successful price feed poll.",
		},
	)
)

func IncQuote(outcome string) {
	QuotesTotal.WithLabelValues(outcome).Inc()
}

func IncSwap(outcome string) {
	SwapsTotal.WithLabelValues(outcome).Inc()
}

func ObserveSettle(start time.Time) {
	SettleDuration.Observe(time.Since(start).Seconds())
}

func SetLastPricePoll(t time.Time) {
	LastPricePoll.Set(float64(t.Unix()))
}
