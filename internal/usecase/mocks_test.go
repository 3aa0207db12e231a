//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// memTxManager serializes transactions with a mutex, which is how row locks
// behave for the single-order contention these tests exercise.
type memTxManager struct {
	mu sync.Mutex
}

func newMemTxManager() *memTxManager { return &memTxManager{} }

func (m *memTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, struct{}{})
}

// passTxManager runs the callback with no cross-transaction exclusion at all:
// only per-statement atomicity remains, which is the guarantee a
// read-committed database gives the cancel-then-insert statement pattern.
type passTxManager struct{}

func (passTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, struct{}{})
}

// txState carries the aborted flag a real transaction enters after a failed
// statement.
type txState struct{ aborted bool }

func markAborted(tx repository.Tx) {
	if st, ok := tx.(*txState); ok {
		st.aborted = true
	}
}

// abortTxManager emulates commit-time behavior after a unique violation: if a
// statement inside the transaction hit one and the callback still returns
// nil, the commit itself fails.
type abortTxManager struct {
	mu sync.Mutex
}

func newAbortTxManager() *abortTxManager { return &abortTxManager{} }

func (m *abortTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &txState{}
	if err := fn(ctx, st); err != nil {
		return err
	}
	if st.aborted {
		return errors.New("commit unexpectedly resulted in rollback")
	}
	return nil
}

// --- orders ---

type memOrderRepo struct {
	mu          sync.Mutex
	byID        map[string]*model.PaymentOrder
	findErr     error // simulates a transient store failure on pending-code lookups
	markPaidErr error // forces the MarkPaid unique-violation path
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{byID: map[string]*model.PaymentOrder{}}
}

func (m *memOrderRepo) Save(ctx context.Context, tx repository.Tx, o *model.PaymentOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.byID {
		if other.Code == o.Code && other.ID != o.ID {
			markAborted(tx)
			return domain.ErrAlreadyExists
		}
		// Partial unique index on (user_id) WHERE pending.
		if o.Status == model.OrderStatusPending && other.Status == model.OrderStatusPending &&
			other.UserID == o.UserID && other.ID != o.ID {
			markAborted(tx)
			return domain.ErrAlreadyExists
		}
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *memOrderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrderRepo) FindPendingByCode(ctx context.Context, tx repository.Tx, code string) (*model.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, o := range m.byID {
		if o.Code == code && o.Status == model.OrderStatusPending {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) FindByGatewayTxID(ctx context.Context, tx repository.Tx, gatewayTxID string) (*model.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.GatewayTxID != nil && *o.GatewayTxID == gatewayTxID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) FindPendingByUser(ctx context.Context, tx repository.Tx, userID string) (*model.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.byID {
		if o.UserID == userID && o.Status == model.OrderStatusPending {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memOrderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.PaymentOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PaymentOrder
	for _, o := range m.byID {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memOrderRepo) CancelPendingByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.byID {
		if o.UserID == userID && o.Status == model.OrderStatusPending {
			o.Status = model.OrderStatusCancelled
			o.UpdatedAt = time.Now()
			n++
		}
	}
	return n, nil
}

func (m *memOrderRepo) MarkPaid(ctx context.Context, tx repository.Tx, id, gatewayTxID, bankRef string, paidAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markPaidErr != nil {
		if errors.Is(m.markPaidErr, domain.ErrAlreadyExists) {
			markAborted(tx)
		}
		return m.markPaidErr
	}
	for _, o := range m.byID {
		if o.GatewayTxID != nil && *o.GatewayTxID == gatewayTxID {
			markAborted(tx)
			return domain.ErrAlreadyExists
		}
	}
	o, ok := m.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != model.OrderStatusPending {
		return domain.ErrOrderNotPending
	}
	o.Status = model.OrderStatusPaid
	o.GatewayTxID = &gatewayTxID
	o.BankRef = bankRef
	o.PaidAt = &paidAt
	o.UpdatedAt = paidAt
	return nil
}

func (m *memOrderRepo) ExpireOlderThan(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.byID {
		if o.Status == model.OrderStatusPending && o.ExpiresAt.Before(now) {
			o.Status = model.OrderStatusExpired
			o.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// pendingCount is a test helper, not part of the repository contract.
func (m *memOrderRepo) pendingCount(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, o := range m.byID {
		if o.UserID == userID && o.Status == model.OrderStatusPending {
			n++
		}
	}
	return n
}

// --- wallets ---

type memWalletRepo struct {
	mu        sync.Mutex
	byUser    map[string]*model.WalletLedger
	creditErr error
}

func newMemWalletRepo() *memWalletRepo {
	return &memWalletRepo{byUser: map[string]*model.WalletLedger{}}
}

func (m *memWalletRepo) getOrCreateLocked(userID string) *model.WalletLedger {
	w, ok := m.byUser[userID]
	if !ok {
		w = &model.WalletLedger{UserID: userID, Level: 1, Version: 1, CreatedAt: time.Now()}
		m.byUser[userID] = w
	}
	return w
}

func (m *memWalletRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.WalletLedger, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byUser[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memWalletRepo) CreditAtomic(ctx context.Context, tx repository.Tx, userID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.creditErr != nil {
		return m.creditErr
	}
	w := m.getOrCreateLocked(userID)
	w.Balance += delta
	w.Version++
	w.UpdatedAt = time.Now()
	return nil
}

func (m *memWalletRepo) DebitIfSufficient(ctx context.Context, tx repository.Tx, userID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byUser[userID]
	if !ok || w.Balance < amount {
		return domain.ErrInsufficientBalance
	}
	w.Balance -= amount
	w.Version++
	w.UpdatedAt = time.Now()
	return nil
}

func (m *memWalletRepo) AddXPAtomic(ctx context.Context, tx repository.Tx, userID string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.getOrCreateLocked(userID)
	w.XPTotal += delta
	w.Version++
	w.UpdatedAt = time.Now()
	return w.XPTotal, nil
}

func (m *memWalletRepo) SyncLevel(ctx context.Context, tx repository.Tx, userID string, level int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.getOrCreateLocked(userID)
	w.Level = level
	return nil
}

func (m *memWalletRepo) UpdateStreak(ctx context.Context, tx repository.Tx, userID string, streak int, activeAt time.Time, version int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byUser[userID]
	if !ok || w.Version != version {
		return false, nil
	}
	w.CurrentStreak = streak
	w.LastActiveAt = &activeAt
	w.Version++
	return true, nil
}

func (m *memWalletRepo) balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.byUser[userID]; ok {
		return w.Balance
	}
	return 0
}

// --- ledger log ---

type memLogRepo struct {
	mu      sync.Mutex
	entries []*model.LedgerTransaction
}

func newMemLogRepo() *memLogRepo { return &memLogRepo{} }

func (m *memLogRepo) Append(ctx context.Context, tx repository.Tx, t *model.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memLogRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, f model.LedgerFilter) ([]*model.LedgerTransaction, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.LedgerTransaction
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if f.Cause != "" && e.Cause != f.Cause {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memLogRepo) SumCreditsSince(ctx context.Context, tx repository.Tx, userID string, since, until time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) && e.CreatedAt.Before(until) {
			sum += e.CreditDelta
		}
	}
	return sum, nil
}

func (m *memLogRepo) SumXPSince(ctx context.Context, tx repository.Tx, userID string, since, until time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sum int64
	for _, e := range m.entries {
		if e.UserID == userID && !e.CreatedAt.Before(since) && e.CreatedAt.Before(until) {
			sum += e.XPDelta
		}
	}
	return sum, nil
}

// countByCauseRef is a test helper for idempotency assertions.
func (m *memLogRepo) countByCauseRef(ref string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.CauseRef == ref {
			n++
		}
	}
	return n
}

// --- dedup cache ---

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDedup() *memDedup { return &memDedup{seen: map[string]bool{}} }

func (m *memDedup) Seen(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id], nil
}

func (m *memDedup) Mark(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[id] = true
	return nil
}
