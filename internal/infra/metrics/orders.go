package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ordersTotal,
		ordersRevenueTotal,
		ordersExpiredTotal,
	)
}

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_total",
			Help: "Payment orders by status transition (created/paid/expired/cancelled).",
		},
		[]string{"status"},
	)

	ordersRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_orders_revenue_total",
			Help: "The total monetary value of paid orders in VND.",
		},
	)

	ordersExpiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_orders_expiry_sweeps_total",
			Help: "Orders moved to EXPIRED by the sweep worker.",
		},
	)
)

func IncOrder(status string) {
	ordersTotal.WithLabelValues(norm(status)).Inc()
}

func AddOrderRevenue(amount int64) {
	ordersRevenueTotal.Add(float64(amount))
}

func AddExpiredOrders(n int) {
	ordersExpiredTotal.Add(float64(n))
}
