package model

import (
	"time"

	"wallet-ledger-service/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"   // awaiting a matching bank transfer
	OrderStatusPaid      OrderStatus = "paid"      // webhook matched and credited
	OrderStatusExpired   OrderStatus = "expired"   // expiry sweep caught it first
	OrderStatusCancelled OrderStatus = "cancelled" // superseded by a newer order
)

// PaymentOrder is a single intended purchase awaiting a matching bank transfer.
// The Code is embedded in the transfer memo so the gateway notification can be
// matched back. GatewayTxID is set exactly once, when the order is paid; a
// UNIQUE constraint on it is the last line of idempotency defense.
type PaymentOrder struct {
	ID           string // UUID
	UserID       string
	Code         string // unique, human-typeable, scanned out of the memo
	PackageID    string
	Amount       int64 // required transfer amount, VND
	CreditAmount int64 // credits granted when paid
	Status       OrderStatus
	GatewayTxID  *string // gateway transaction id, unique once set
	BankRef      string  // gateway reference code, stored for audit only
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PaidAt       *time.Time
	ExpiresAt    time.Time
}

// NewPaymentOrder validates and constructs a pending order for a catalog package.
func NewPaymentOrder(id, userID, code string, pkg *CreditPackage, ttl time.Duration) (*PaymentOrder, error) {
	if id == "" || userID == "" || code == "" || pkg == nil || ttl <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &PaymentOrder{
		ID:           id,
		UserID:       userID,
		Code:         code,
		PackageID:    pkg.ID,
		Amount:       pkg.Price,
		CreditAmount: pkg.TotalCredits(),
		Status:       OrderStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}, nil
}

// Terminal reports whether the order left the pending state. Terminal orders
// are immutable.
func (o *PaymentOrder) Terminal() bool { return o.Status != OrderStatusPending }
