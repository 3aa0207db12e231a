package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		ledgerCreditsTotal,
		ledgerXPTotal,
		ledgerLevelUpsTotal,
		ledgerInsufficientTotal,
	)
}

var (
	ledgerCreditsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_credits_total",
			Help: "Credits moved through the ledger, labeled by cause and direction.",
		},
		[]string{"cause", "direction"}, // direction: 'credit', 'debit'
	)

	ledgerXPTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_xp_total",
			Help: "XP granted, labeled by cause.",
		},
		[]string{"cause"},
	)

	ledgerLevelUpsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_level_ups_total",
			Help: "Level transitions observed while granting XP.",
		},
	)

	ledgerInsufficientTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_insufficient_balance_total",
			Help: "Debits refused by the balance guard.",
		},
	)
)

func AddLedgerCredits(cause, direction string, amount int64) {
	ledgerCreditsTotal.WithLabelValues(norm(cause), norm(direction)).Add(float64(amount))
}

func AddLedgerXP(cause string, amount int64) {
	ledgerXPTotal.WithLabelValues(norm(cause)).Add(float64(amount))
}

func IncLevelUp() {
	ledgerLevelUpsTotal.Inc()
}

func IncInsufficientBalance() {
	ledgerInsufficientTotal.Inc()
}
