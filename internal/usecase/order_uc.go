package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

// Compile-time check
var _ OrderManager = (*orderUC)(nil)

// BankAccount is the receiving account rendered into payment references.
type BankAccount struct {
	BankName      string `json:"bank_name"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
}

// PaymentReference is everything a client needs to render the transfer screen:
// the receiving account, the exact amount, the memo code, and a VietQR-style
// image URL that encodes all three.
type PaymentReference struct {
	Bank      BankAccount `json:"bank"`
	Amount    int64       `json:"amount"`
	Memo      string      `json:"memo"`
	QRContent string      `json:"qr_content"`
}

// OrderTicket is the order-creation response.
type OrderTicket struct {
	Order     *model.PaymentOrder `json:"order"`
	Package   model.CreditPackage `json:"package"`
	Reference PaymentReference    `json:"reference"`
}

// OrderManager creates and supersedes payment orders. It enforces the
// "at most one pending order per user" invariant.
type OrderManager interface {
	// Create cancels any pending order of the user and opens a new one in one
	// transaction. Concurrent calls are resolved by the partial unique index
	// on pending orders: the loser retries and supersedes the winner.
	Create(ctx context.Context, userID, packageID string) (*OrderTicket, error)
	Get(ctx context.Context, userID, orderID string) (*model.PaymentOrder, error)
	PendingByUser(ctx context.Context, userID string) (*OrderTicket, error)
	History(ctx context.Context, userID string, offset, limit int) ([]*model.PaymentOrder, error)
	// CancelExpired sweeps PENDING orders past their expiry. Idempotent.
	CancelExpired(ctx context.Context) (int, error)
}

type orderUC struct {
	orders repository.OrderRepository
	tm     repository.TransactionManager
	bank   BankAccount
	ttl    time.Duration
	log    *zerolog.Logger
}

func NewOrderManager(orders repository.OrderRepository, tm repository.TransactionManager, bank BankAccount, ttl time.Duration, logger *zerolog.Logger) *orderUC {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	l := logger.With().Str("component", "OrderManager").Logger()
	return &orderUC{orders: orders, tm: tm, bank: bank, ttl: ttl, log: &l}
}

func (u *orderUC) Create(ctx context.Context, userID, packageID string) (*OrderTicket, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	pkg, err := model.FindPackage(packageID)
	if err != nil {
		return nil, err
	}

	// The partial unique index on (user_id) WHERE pending is what actually
	// holds the one-pending-per-user invariant: a racing create that inserts
	// second aborts on 23505 and retries, cancelling the winner's order. The
	// same retry covers a memo-code collision.
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := generateOrderCode()
		if err != nil {
			return nil, err
		}
		order, err := model.NewPaymentOrder(uuid.NewString(), userID, code, pkg, u.ttl)
		if err != nil {
			return nil, err
		}

		err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			cancelled, err := u.orders.CancelPendingByUser(ctx, tx, userID)
			if err != nil {
				return err
			}
			if cancelled > 0 {
				u.log.Info().Str("user_id", userID).Int("cancelled", cancelled).Msg("superseded pending order")
			}
			return u.orders.Save(ctx, tx, order)
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return nil, err
		}

		u.log.Info().Str("order_id", order.ID).Str("code", order.Code).Str("package", pkg.ID).Msg("order created")
		return u.ticket(order, pkg), nil
	}
	return nil, domain.ErrOperationFailed
}

func (u *orderUC) Get(ctx context.Context, userID, orderID string) (*model.PaymentOrder, error) {
	o, err := u.orders.FindByID(ctx, repository.NoTX, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (u *orderUC) PendingByUser(ctx context.Context, userID string) (*OrderTicket, error) {
	o, err := u.orders.FindPendingByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	pkg, err := model.FindPackage(o.PackageID)
	if err != nil {
		// Catalog entries can be retired while an order is still open; the
		// order itself carries the amounts that matter.
		pkg = &model.CreditPackage{ID: o.PackageID, Price: o.Amount, Credits: o.CreditAmount}
	}
	return u.ticket(o, pkg), nil
}

func (u *orderUC) History(ctx context.Context, userID string, offset, limit int) ([]*model.PaymentOrder, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return u.orders.ListByUser(ctx, repository.NoTX, userID, offset, limit)
}

func (u *orderUC) CancelExpired(ctx context.Context) (int, error) {
	return u.orders.ExpireOlderThan(ctx, repository.NoTX, time.Now())
}

func (u *orderUC) ticket(o *model.PaymentOrder, pkg *model.CreditPackage) *OrderTicket {
	return &OrderTicket{
		Order:   o,
		Package: *pkg,
		Reference: PaymentReference{
			Bank:      u.bank,
			Amount:    o.Amount,
			Memo:      o.Code,
			QRContent: u.qrContent(o.Amount, o.Code),
		},
	}
}

// qrContent builds the VietQR image URL the client renders as-is.
func (u *orderUC) qrContent(amount int64, memo string) string {
	return fmt.Sprintf(
		"https://img.vietqr.io/image/%s-%s-compact2.png?amount=%d&addInfo=%s&accountName=%s",
		u.bank.BankCode, u.bank.AccountNumber, amount,
		url.QueryEscape(memo), url.QueryEscape(u.bank.AccountName),
	)
}
