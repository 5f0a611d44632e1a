package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentsTotal,
		notificationsTotal,
	)
}

var (
	paymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_total",
			Help: "Payments by normalized status (initiated/approved/declined/refunded/...).",
		},
		[]string{"status"},
	)

	// outcome: processed|duplicate|rejected|failed
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_notifications_total",
			Help: "Gateway notifications handled, by outcome.",
		},
		[]string{"outcome"},
	)
)

func IncPayment(status string) {
	paymentsTotal.WithLabelValues(norm(status)).Inc()
}

func IncNotification(outcome string) {
	notificationsTotal.WithLabelValues(norm(outcome)).Inc()
}
