package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

var _ repository.WalletRepository = (*walletRepo)(nil)

type walletRepo struct{ pool *pgxpool.Pool }

func NewWalletRepo(pool *pgxpool.Pool) *walletRepo {
	return &walletRepo{pool: pool}
}

func (r *walletRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.WalletLedger, error) {
	const q = `SELECT user_id, balance, xp_total, level, version, current_streak, last_active_at, created_at, updated_at FROM wallet_ledgers WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}

	w := &model.WalletLedger{}
	if err := row.Scan(&w.UserID, &w.Balance, &w.XPTotal, &w.Level, &w.Version, &w.CurrentStreak, &w.LastActiveAt, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return w, nil
}

// CreditAtomic is the only way balance goes up: a single upsert increment, so
// there is no read-modify-write window under concurrent deliveries.
func (r *walletRepo) CreditAtomic(ctx context.Context, tx repository.Tx, userID string, delta int64) error {
	const q = `
INSERT INTO wallet_ledgers (user_id, balance, xp_total, level, version, current_streak, created_at, updated_at)
VALUES ($1, $2, 0, 1, 1, 0, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
  balance = wallet_ledgers.balance + $2,
  version = wallet_ledgers.version + 1,
  updated_at = NOW();`
	_, err := execSQL(ctx, r.pool, tx, q, userID, delta)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// DebitIfSufficient decrements in one conditional statement; zero affected
// rows means the guard failed (or no wallet exists, which counts as zero).
func (r *walletRepo) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, amount int64) error {
	const q = `UPDATE wallet_ledgers SET balance = balance - $2, version = version + 1, updated_at = NOW() WHERE user_id=$1 AND balance >= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, amount)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientBalance
	}
	return nil
}

func (r *walletRepo) AddXPAtomic(ctx context.Context, tx repository.Tx, userID string, delta int64) (int64, error) {
	const q = `
INSERT INTO wallet_ledgers (user_id, balance, xp_total, level, version, current_streak, created_at, updated_at)
VALUES ($1, 0, $2, 1, 1, 0, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
  xp_total = wallet_ledgers.xp_total + $2,
  version = wallet_ledgers.version + 1,
  updated_at = NOW()
RETURNING xp_total;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, delta)
	if err != nil {
		return 0, err
	}
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return total, nil
}

func (r *walletRepo) SyncLevel(ctx context.Context, tx repository.Tx, userID string, level int) error {
	const q = `UPDATE wallet_ledgers SET level=$2, updated_at=NOW() WHERE user_id=$1 AND level <> $2;`
	_, err := execSQL(ctx, r.pool, tx, q, userID, level)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *walletRepo) UpdateStreak(ctx context.Context, tx repository.Tx, userID string, streak int, activeAt time.Time, version int64) (bool, error) {
	const q = `UPDATE wallet_ledgers SET current_streak=$2, last_active_at=$3, version=version+1, updated_at=NOW() WHERE user_id=$1 AND version=$4;`
	tag, err := execSQL(ctx, r.pool, tx, q, userID, streak, activeAt, version)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return tag.RowsAffected() == 1, nil
}
