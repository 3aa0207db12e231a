package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

var _ repository.LedgerLogRepository = (*ledgerLogRepo)(nil)

// ledgerLogRepo only ever inserts and selects; the audit trail has no update
// or delete path on purpose.
type ledgerLogRepo struct{ pool *pgxpool.Pool }

func NewLedgerLogRepo(pool *pgxpool.Pool) *ledgerLogRepo {
	return &ledgerLogRepo{pool: pool}
}

func (r *ledgerLogRepo) Append(ctx context.Context, tx repository.Tx, t *model.LedgerTransaction) error {
	const q = `
INSERT INTO ledger_transactions (id, user_id, cause, cause_ref, cause_label, credit_delta, xp_delta, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.Cause, t.CauseRef, t.CauseLabel, t.CreditDelta, t.XPDelta, t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerLogRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f model.LedgerFilter) ([]*model.LedgerTransaction, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := `WHERE user_id=$1`
	args := []interface{}{userID}
	if f.Cause != "" {
		args = append(args, f.Cause)
		where += ` AND cause=$2`
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		where += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if f.Until != nil {
		args = append(args, *f.Until)
		where += ` AND created_at < $` + strconv.Itoa(len(args))
	}

	countQ := `SELECT COUNT(*) FROM ledger_transactions ` + where + `;`
	row, err := pickRow(ctx, r.pool, tx, countQ, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, domain.ErrReadDatabaseRow
	}

	args = append(args, f.Offset, f.Limit)
	listQ := `SELECT id, user_id, cause, cause_ref, cause_label, credit_delta, xp_delta, created_at FROM ledger_transactions ` +
		where + ` ORDER BY created_at DESC OFFSET $` + strconv.Itoa(len(args)-1) + ` LIMIT $` + strconv.Itoa(len(args)) + `;`
	rows, err := queryRows(ctx, r.pool, tx, listQ, args...)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, 0, err
		}
		return nil, 0, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.LedgerTransaction
	for rows.Next() {
		t := &model.LedgerTransaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Cause, &t.CauseRef, &t.CauseLabel, &t.CreditDelta, &t.XPDelta, &t.CreatedAt); err != nil {
			return nil, 0, domain.ErrReadDatabaseRow
		}
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, 0, domain.ErrOperationFailed
	}
	return out, total, nil
}

func (r *ledgerLogRepo) SumCreditsSince(ctx context.Context, tx repository.Tx, userID string, since, until time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(credit_delta),0) FROM ledger_transactions WHERE user_id=$1 AND created_at >= $2 AND created_at < $3;`
	return r.sum(ctx, tx, q, userID, since, until)
}

func (r *ledgerLogRepo) SumXPSince(ctx context.Context, tx repository.Tx, userID string, since, until time.Time) (int64, error) {
	const q = `SELECT COALESCE(SUM(xp_delta),0) FROM ledger_transactions WHERE user_id=$1 AND created_at >= $2 AND created_at < $3;`
	return r.sum(ctx, tx, q, userID, since, until)
}

func (r *ledgerLogRepo) sum(ctx context.Context, tx repository.Tx, q, userID string, since, until time.Time) (int64, error) {
	row, err := pickRow(ctx, r.pool, tx, q, userID, since, until)
	if err != nil {
		return 0, err
	}
	var sum int64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}
