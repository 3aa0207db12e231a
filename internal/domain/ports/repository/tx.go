package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

type Tx interface{}

var NoTX Tx

// TransactionManager executes a function within a database transaction, passing
// the underlying transaction handle via `tx`.
//
// RATIONALE
// - Keeps use-case interfaces clean (no transaction types leaking out).
// - Repository methods accept a Tx and detect it implementation-side to run
//   SELECT ... FOR UPDATE / tx-bound Exec/Query as needed.
// - Repositories MUST gracefully accept a nil Tx (non-transactional path).
//
// The concrete type of `tx` is infra-defined (pgx.Tx for Postgres).
// Keep this interface small and stable.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
