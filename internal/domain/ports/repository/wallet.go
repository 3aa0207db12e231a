package repository

import (
	"context"
	"time"

	"wallet-ledger-service/internal/domain/model"
)

// WalletRepository owns the per-user ledger rows. All arithmetic is expressed
// as explicit atomic store operations so the atomicity contract lives at this
// boundary instead of inside query-builder usage.
type WalletRepository interface {
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.WalletLedger, error)
	// CreditAtomic adds to the balance in one statement (upsert increment);
	// a missing row is created with the delta as its starting balance. No
	// read-modify-write window exists relative to concurrent mutations.
	CreditAtomic(ctx context.Context, tx Tx, userID string, delta int64) error
	// DebitIfSufficient decrements only when balance >= amount, as a single
	// conditional statement. Zero affected rows means insufficient balance
	// (a missing wallet counts as zero) and maps to ErrInsufficientBalance.
	DebitIfSufficient(ctx context.Context, tx Tx, userID string, amount int64) error
	// AddXPAtomic increments xp_total (upsert) and returns the new total so the
	// caller can derive old/new levels without a second read.
	AddXPAtomic(ctx context.Context, tx Tx, userID string, delta int64) (int64, error)
	// SyncLevel stores the recomputed level hint. A no-op when already correct.
	SyncLevel(ctx context.Context, tx Tx, userID string, level int) error
	// UpdateStreak persists streak state guarded by the row version. The bool
	// reports whether the guarded update won; false means a lost race and the
	// caller should re-read.
	UpdateStreak(ctx context.Context, tx Tx, userID string, streak int, activeAt time.Time, version int64) (bool, error)
}
