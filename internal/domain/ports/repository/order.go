package repository

import (
	"context"
	"time"

	"wallet-ledger-service/internal/domain/model"
)

// OrderRepository persists payment orders. Orders are keyed by a unique
// human-typeable code and, once paid, by a unique gateway transaction id.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.PaymentOrder) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentOrder, error)
	// FindPendingByCode matches a memo code against PENDING orders only. When
	// called inside a transaction it takes a row lock (FOR UPDATE), so a racing
	// delivery for the same order waits here and then finds no PENDING match.
	FindPendingByCode(ctx context.Context, tx Tx, code string) (*model.PaymentOrder, error)
	FindByGatewayTxID(ctx context.Context, tx Tx, gatewayTxID string) (*model.PaymentOrder, error)
	FindPendingByUser(ctx context.Context, tx Tx, userID string) (*model.PaymentOrder, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.PaymentOrder, error)
	// CancelPendingByUser transitions every PENDING order of the user to
	// CANCELLED in a single statement and reports how many rows changed.
	CancelPendingByUser(ctx context.Context, tx Tx, userID string) (int, error)
	// MarkPaid transitions PENDING -> PAID and records the gateway transaction
	// id. Returns domain.ErrOrderNotPending when the row already left PENDING
	// and domain.ErrAlreadyExists when the gateway id is already taken (the
	// uniqueness backstop for racing deliveries).
	MarkPaid(ctx context.Context, tx Tx, id, gatewayTxID, bankRef string, paidAt time.Time) error
	// ExpireOlderThan batch-transitions PENDING orders past their expiry to
	// EXPIRED. Idempotent; already-transitioned rows are untouched.
	ExpireOlderThan(ctx context.Context, tx Tx, now time.Time) (int, error)
}
