package repository

import (
	"context"
	"time"

	"wallet-ledger-service/internal/domain/model"
)

// LedgerLogRepository is the append-only audit trail of balance mutations.
// Rows are write-once; there is deliberately no update or delete operation.
type LedgerLogRepository interface {
	Append(ctx context.Context, tx Tx, t *model.LedgerTransaction) error
	ListByUser(ctx context.Context, tx Tx, userID string, f model.LedgerFilter) ([]*model.LedgerTransaction, int, error)
	// SumCreditsSince / SumXPSince total the deltas in [since, until) for
	// "earned today" style views.
	SumCreditsSince(ctx context.Context, tx Tx, userID string, since, until time.Time) (int64, error)
	SumXPSince(ctx context.Context, tx Tx, userID string, since, until time.Time) (int64, error)
}
