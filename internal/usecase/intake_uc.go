package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

// Compile-time check
var _ WebhookIntake = (*intakeUC)(nil)

// DedupCache is a best-effort fast path in front of the durable idempotency
// checks. A miss or a cache error never changes the outcome, only the cost.
type DedupCache interface {
	Seen(ctx context.Context, gatewayTxID string) (bool, error)
	Mark(ctx context.Context, gatewayTxID string) error
}

// WebhookIntake turns at-least-once gateway deliveries into exactly-once
// ledger credits.
type WebhookIntake interface {
	// Handle classifies one delivery. The returned error is non-nil only for
	// transient store failures, where nothing has been committed and the
	// gateway should redeliver. Every other outcome is a final IntakeResult.
	Handle(ctx context.Context, p *model.GatewayNotification, credential string) (*model.IntakeResult, error)
}

type intakeUC struct {
	orders repository.OrderRepository
	ledger LedgerService
	tm     repository.TransactionManager
	dedup  DedupCache // optional
	secret string
	log    *zerolog.Logger
}

func NewWebhookIntake(orders repository.OrderRepository, ledger LedgerService, tm repository.TransactionManager, dedup DedupCache, secret string, logger *zerolog.Logger) *intakeUC {
	l := logger.With().Str("component", "WebhookIntake").Logger()
	return &intakeUC{orders: orders, ledger: ledger, tm: tm, dedup: dedup, secret: secret, log: &l}
}

func (u *intakeUC) Handle(ctx context.Context, p *model.GatewayNotification, credential string) (*model.IntakeResult, error) {
	if !u.credentialOK(credential) {
		u.log.Warn().Msg("webhook rejected: bad credential")
		return &model.IntakeResult{Accepted: false, Reason: model.ReasonInvalidCredential}, nil
	}

	code, ok := extractOrderCode(p.Content)
	if !ok {
		u.log.Info().Str("memo", p.Content).Msg("webhook rejected: no order code in memo")
		return &model.IntakeResult{Accepted: false, Reason: model.ReasonNoMatchableOrder}, nil
	}
	gatewayTxID := strconv.FormatInt(p.ID, 10)

	// Idempotency pre-check, cheap and lock-free. Retry storms stop here.
	if u.dedup != nil {
		if seen, err := u.dedup.Seen(ctx, gatewayTxID); err == nil && seen {
			return &model.IntakeResult{Accepted: true, Reason: model.ReasonAlreadyProcessed}, nil
		}
	}
	if prev, err := u.orders.FindByGatewayTxID(ctx, repository.NoTX, gatewayTxID); err == nil && prev != nil {
		return &model.IntakeResult{Accepted: true, Reason: model.ReasonAlreadyProcessed}, nil
	} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	var res *model.IntakeResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(ctx context.Context, tx repository.Tx) error {
		order, err := u.orders.FindPendingByCode(ctx, tx, code)
		if errors.Is(err, domain.ErrNotFound) {
			// The row lock re-evaluates the PENDING match: a racing delivery
			// that lost the lock lands here after the winner committed.
			if prev, err2 := u.orders.FindByGatewayTxID(ctx, tx, gatewayTxID); err2 == nil && prev != nil {
				res = &model.IntakeResult{Accepted: true, Reason: model.ReasonAlreadyProcessed}
				return nil
			}
			res = &model.IntakeResult{Accepted: false, Reason: model.ReasonNoMatchableOrder}
			return nil
		}
		if err != nil {
			return err
		}

		if p.TransferAmount < order.Amount {
			// Never credit a partial payment; the order stays PENDING for the
			// support path.
			u.log.Warn().Str("order_id", order.ID).Int64("got", p.TransferAmount).Int64("want", order.Amount).Msg("amount mismatch")
			res = &model.IntakeResult{Accepted: false, Reason: model.ReasonAmountMismatch}
			return nil
		}

		now := time.Now()
		if err := u.orders.MarkPaid(ctx, tx, order.ID, gatewayTxID, p.ReferenceCode, now); err != nil {
			// A unique violation leaves the transaction aborted, so the
			// backstop must surface the error and classify after rollback.
			return err
		}

		label := fmt.Sprintf("Purchase of %d credits (order %s)", order.CreditAmount, order.Code)
		if err := u.ledger.Credit(ctx, tx, order.UserID, order.CreditAmount, model.CausePurchase, order.ID, label); err != nil {
			return err
		}

		u.log.Info().Str("order_id", order.ID).Str("user_id", order.UserID).Int64("credits", order.CreditAmount).Msg("order paid and credited")
		res = &model.IntakeResult{Accepted: true, Reason: model.ReasonOK}
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Uniqueness backstop: a delivery with the same gateway id won the
		// race between the pre-check and MarkPaid. This transaction rolled
		// back whole; the winner's commit carries the credit.
		return &model.IntakeResult{Accepted: true, Reason: model.ReasonAlreadyProcessed}, nil
	}
	if err != nil {
		// Transaction rolled back whole: order still PENDING, ledger and log
		// untouched. Safe for the gateway to redeliver.
		u.log.Error().Err(err).Str("code", code).Msg("intake transaction failed")
		return nil, err
	}

	if res.Accepted && u.dedup != nil {
		if err := u.dedup.Mark(ctx, gatewayTxID); err != nil {
			u.log.Debug().Err(err).Msg("dedup mark failed")
		}
	}
	return res, nil
}

func (u *intakeUC) credentialOK(credential string) bool {
	if u.secret == "" {
		return false
	}
	want := "Apikey " + u.secret
	return subtle.ConstantTimeCompare([]byte(credential), []byte(want)) == 1
}
