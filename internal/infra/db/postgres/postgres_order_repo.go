package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

var _ repository.OrderRepository = (*orderRepo)(nil)

const orderColumns = `id, user_id, code, package_id, amount, credit_amount, status, gateway_tx_id, bank_ref, created_at, updated_at, paid_at, expires_at`

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

func scanOrder(row pgx.Row) (*model.PaymentOrder, error) {
	o := &model.PaymentOrder{}
	err := row.Scan(&o.ID, &o.UserID, &o.Code, &o.PackageID, &o.Amount, &o.CreditAmount, &o.Status, &o.GatewayTxID, &o.BankRef, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	const q = `
INSERT INTO payment_orders (
  id, user_id, code, package_id, amount, credit_amount, status, gateway_tx_id, bank_ref, created_at, updated_at, paid_at, expires_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  status=$7, gateway_tx_id=$8, bank_ref=$9, updated_at=$11, paid_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.UserID, o.Code, o.PackageID, o.Amount, o.CreditAmount, o.Status, o.GatewayTxID, o.BankRef, o.CreatedAt, o.UpdatedAt, o.PaidAt, o.ExpiresAt)
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

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindPendingByCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentOrder, error) {
	q := `SELECT ` + orderColumns + ` FROM payment_orders WHERE code=$1 AND status='pending'`
	// Inside a transaction the row is locked, so a racing delivery for the
	// same order blocks here until the winner commits.
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByGatewayTxID(ctx context.Context, tx repository.Tx, gatewayTxID string) (*model.PaymentOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE gateway_tx_id=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, gatewayTxID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindPendingByUser(ctx context.Context, tx repository.Tx, userID string) (*model.PaymentOrder, error) {
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE user_id=$1 AND status='pending' ORDER BY created_at DESC LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.PaymentOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + orderColumns + ` FROM payment_orders WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.PaymentOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if rows.Err() != nil {
		return nil, domain.ErrOperationFailed
	}
	return out, nil
}

func (r *orderRepo) CancelPendingByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `UPDATE payment_orders SET status='cancelled', updated_at=NOW() WHERE user_id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}

func (r *orderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id, gatewayTxID, bankRef string, paidAt time.Time) error {
	const q = `UPDATE payment_orders SET status='paid', gateway_tx_id=$2, bank_ref=$3, paid_at=$4, updated_at=$4 WHERE id=$1 AND status='pending';`
	tag, err := execSQL(ctx, r.pool, tx, q, id, gatewayTxID, bankRef, paidAt)
	if err != nil {
		// The UNIQUE index on gateway_tx_id is the idempotency backstop; a
		// racing delivery that slipped past the row lock dies here.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotPending
	}
	return nil
}

func (r *orderRepo) ExpireOlderThan(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE payment_orders SET status='expired', updated_at=$1 WHERE status='pending' AND expires_at < $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(tag.RowsAffected()), nil
}
