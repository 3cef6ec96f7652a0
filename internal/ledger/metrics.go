package ledger

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	transactions *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	height       prometheus.Gauge
}

// newMetrics registers the ledger collectors with reg. A nil reg leaves them
// unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agora_ledger_transactions_total",
				Help: "Submitted transactions by operation and result",
			},
			[]string{"op", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agora_ledger_apply_duration_seconds",
				Help:    "Time to apply and journal a transaction",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
		height: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agora_ledger_height",
				Help: "Sequence number of the last committed transaction",
			},
		),
	}
}

func (m *metrics) observe(op Op, elapsed time.Duration, result string) {
	m.transactions.WithLabelValues(string(op), result).Inc()
	m.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}
