package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EvaluatedTransactions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mev_evaluated_transactions_total",
		Help: "Transactions that passed the interest predicate and were evaluated",
	})

	Opportunities = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mev_opportunities_total",
		Help: "Opportunities that cleared their minimum-profit threshold",
	})

	DecodeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mev_decode_failures_total",
		Help: "Snapshot captures abandoned because a monitored account failed to decode",
	})

	SubmittedTransactions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mev_submitted_transactions_total",
		Help: "Arbitrage transactions handed to an RPC node",
	})

	LogQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mev_log_queue_depth",
		Help: "Records waiting in the async log queue",
	})

	EvaluationLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mev_evaluation_latency_seconds",
		Help:    "Time spent evaluating all configured paths for one transaction",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
)

func init() {
	prometheus.MustRegister(
		EvaluatedTransactions,
		Opportunities,
		DecodeFailures,
		SubmittedTransactions,
		LogQueueDepth,
		EvaluationLatency,
	)
}
