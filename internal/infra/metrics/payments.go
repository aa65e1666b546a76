package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsCreatedTotal,
		paymentsResolvedTotal,
		proofsSubmittedTotal,
	)
}

var (
	paymentsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_created_total",
			Help: "Payments created, labeled by method.",
		},
		[]string{"method"}, // 'card', 'stars', 'crypto'
	)

	paymentsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_resolved_total",
			Help: "Payments that reached a terminal status.",
		},
		[]string{"status"}, // 'confirmed', 'failed'
	)

	proofsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_proofs_submitted_total",
			Help: "Accepted payment proofs, labeled by kind.",
		},
		[]string{"kind"}, // 'screenshot', 'txid'
	)
)

func IncPaymentCreated(method string)  { paymentsCreatedTotal.WithLabelValues(method).Inc() }
func IncPaymentResolved(status string) { paymentsResolvedTotal.WithLabelValues(status).Inc() }
func IncProofSubmitted(kind string)    { proofsSubmittedTotal.WithLabelValues(kind).Inc() }
