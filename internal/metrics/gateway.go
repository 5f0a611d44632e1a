package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		gatewayRequests,
		gatewayDuration,
		callbackVerifications,
	)
}

var (
	// operation: initiate|query|refund
	// result: ok|transport_error|http_error|decode_error
	gatewayRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sslcommerz_requests_total",
			Help: "Calls to the SSLCommerz API by operation and result.",
		},
		[]string{"operation", "result"},
	)

	gatewayDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sslcommerz_request_duration_seconds",
			Help:    "Latency of SSLCommerz API calls in seconds.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"operation"},
	)

	// result: ok|fail
	// reason (fail only): missing_signature|mismatch|malformed
	callbackVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sslcommerz_callback_verifications_total",
			Help: "Callback signature checks by result and bounded reason.",
		},
		[]string{"result", "reason"},
	)
)

func ObserveGatewayCall(operation, result string, d time.Duration) {
	gatewayRequests.WithLabelValues(norm(operation), norm(result)).Inc()
	gatewayDuration.WithLabelValues(norm(operation)).Observe(d.Seconds())
}

// ObserveVerification counts one callback check; reason is ignored on success.
func ObserveVerification(ok bool, reason string) {
	if ok {
		callbackVerifications.WithLabelValues("ok", "").Inc()
		return
	}
	callbackVerifications.WithLabelValues("fail", norm(reason)).Inc()
}
