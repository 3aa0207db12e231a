package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/infra/metrics"
	"wallet-ledger-service/internal/infra/redis"
	"wallet-ledger-service/internal/usecase"
)

const sweepLockKey = "sweep:order_expiry"

// ExpiryWorker periodically moves overdue pending orders to EXPIRED.
// A distributed lock keeps concurrent instances from sweeping at once; the
// sweep itself is idempotent either way.
type ExpiryWorker struct {
	interval time.Duration
	orders   usecase.OrderManager
	locker   redis.Locker
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, orders usecase.OrderManager, locker redis.Locker, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		orders:   orders,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
	if err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			w.log.Warn().Err(err).Msg("sweep lock error")
		}
		return
	}
	defer func() {
		if err := w.locker.Unlock(ctx, sweepLockKey, token); err != nil {
			w.log.Warn().Err(err).Msg("sweep unlock error")
		}
	}()

	n, err := w.orders.CancelExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry sweep error")
		return
	}
	if n > 0 {
		metrics.AddExpiredOrders(n)
		w.log.Info().Int("count", n).Msg("expired orders swept")
	}
}
