package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivatedTotal,
		subscriptionsExtendedTotal,
		subscriptionsExpiredTotal,
		subscriptionsActive,
	)
}

var (
	subscriptionsActivatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_activated_total",
			Help: "Subscriptions created from a first confirmed membership payment.",
		},
	)

	subscriptionsExtendedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_extended_total",
			Help: "Renewals applied to an existing subscription.",
		},
	)

	subscriptionsExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "subscriptions_expired_total",
			Help: "Subscriptions processed by the expiry-enforcement job.",
		},
	)

	subscriptionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "subscriptions_active",
			Help: "Current number of active subscriptions.",
		},
	)
)

func IncSubscriptionActivated()      { subscriptionsActivatedTotal.Inc() }
func IncSubscriptionExtended()       { subscriptionsExtendedTotal.Inc() }
func IncSubscriptionsExpired(n int)  { subscriptionsExpiredTotal.Add(float64(n)) }
func SetSubscriptionsActive(n int)   { subscriptionsActive.Set(float64(n)) }
