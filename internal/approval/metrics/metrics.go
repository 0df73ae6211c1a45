package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the approval module.
type Metrics struct {
	// Transactions entering the log
	TransactionsProposed prometheus.Counter

	// Confirmations by outcome
	Confirmations *prometheus.CounterVec

	// Transactions that reached quorum and executed
	TransactionsExecuted prometheus.Counter

	// Transfer attempts rejected by the ledger
	TransferFailures prometheus.Counter

	// Confirm request latency including a possible execution attempt
	ConfirmLatency prometheus.Histogram
}

// New creates a new Metrics instance with all approval module metrics registered.
func New() *Metrics {
	return &Metrics{
		TransactionsProposed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorumpay_transactions_proposed_total",
			Help: "Total transactions submitted to the log",
		}),

		Confirmations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "quorumpay_confirmations_total",
			Help: "Total confirmation attempts by outcome",
		}, []string{"outcome"}), // outcome: "recorded", "duplicate", "already_executed", "rejected"

		TransactionsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorumpay_transactions_executed_total",
			Help: "Total transactions that reached quorum and transferred funds",
		}),

		TransferFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "quorumpay_transfer_failures_total",
			Help: "Total ledger transfer attempts that failed after quorum",
		}),

		ConfirmLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "quorumpay_confirm_duration_seconds",
			Help:    "Duration of confirmation handling including execution when quorum is reached",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementProposed records a newly submitted transaction.
func (m *Metrics) IncrementProposed() {
	if m != nil {
		m.TransactionsProposed.Inc()
	}
}

// IncrementConfirmation records a confirmation attempt outcome.
func (m *Metrics) IncrementConfirmation(outcome string) {
	if m != nil {
		m.Confirmations.WithLabelValues(outcome).Inc()
	}
}

// IncrementExecuted records a successful execution.
func (m *Metrics) IncrementExecuted() {
	if m != nil {
		m.TransactionsExecuted.Inc()
	}
}

// IncrementTransferFailure records a ledger rejection after quorum.
func (m *Metrics) IncrementTransferFailure() {
	if m != nil {
		m.TransferFailures.Inc()
	}
}

// ObserveConfirmLatency records the duration of a confirmation request.
func (m *Metrics) ObserveConfirmLatency(d time.Duration) {
	if m != nil {
		m.ConfirmLatency.Observe(d.Seconds())
	}
}
