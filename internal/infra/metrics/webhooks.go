package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		webhookNotificationsTotal,
		webhookIntakeLatencyMs,
	)
}

var (
	webhookNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_notifications_total",
			Help: "Gateway notifications by outcome (ok/already_processed/no_matchable_order/amount_mismatch/invalid_credential/error).",
		},
		[]string{"outcome"},
	)

	webhookIntakeLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webhook_intake_latency_ms",
			Help:    "End-to-end intake processing latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
	)
)

func IncWebhookNotification(outcome string) {
	webhookNotificationsTotal.WithLabelValues(norm(outcome)).Inc()
}

func ObserveWebhookIntakeLatency(ms float64) {
	webhookIntakeLatencyMs.Observe(ms)
}
