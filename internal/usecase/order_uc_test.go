//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/usecase"
)

var testBank = usecase.BankAccount{
	BankName:      "MB Bank",
	BankCode:      "MB",
	AccountNumber: "0000111122",
	AccountName:   "ACME EDU",
}

func newOrderManager(orders *memOrderRepo) usecase.OrderManager {
	return usecase.NewOrderManager(orders, newMemTxManager(), testBank, 24*time.Hour, newTestLogger())
}

func TestOrderManager_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("should create a pending order with a payment reference", func(t *testing.T) {
		orders := newMemOrderRepo()
		uc := newOrderManager(orders)

		ticket, err := uc.Create(ctx, "user-1", "credits_popular")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if ticket.Order.Status != model.OrderStatusPending {
			t.Errorf("expected status pending, got %s", ticket.Order.Status)
		}
		if ticket.Order.Amount != 79000 || ticket.Order.CreditAmount != 1000 {
			t.Errorf("unexpected amounts: %d / %d", ticket.Order.Amount, ticket.Order.CreditAmount)
		}
		if !strings.HasPrefix(ticket.Order.Code, "WL") {
			t.Errorf("expected code with WL prefix, got %s", ticket.Order.Code)
		}
		if ticket.Reference.Memo != ticket.Order.Code {
			t.Error("reference memo must carry the order code")
		}
		if !strings.Contains(ticket.Reference.QRContent, ticket.Order.Code) {
			t.Error("QR content must embed the memo code")
		}
		if ticket.Reference.Bank.AccountNumber != testBank.AccountNumber {
			t.Error("reference must carry the receiving account")
		}
	})

	t.Run("should fail for an unknown package", func(t *testing.T) {
		uc := newOrderManager(newMemOrderRepo())
		_, err := uc.Create(ctx, "user-1", "credits_nope")
		if !errors.Is(err, domain.ErrInvalidPackage) {
			t.Fatalf("expected ErrInvalidPackage, got %v", err)
		}
	})

	t.Run("should cancel the previous pending order", func(t *testing.T) {
		orders := newMemOrderRepo()
		uc := newOrderManager(orders)

		first, err := uc.Create(ctx, "user-1", "credits_starter")
		if err != nil {
			t.Fatalf("first create failed: %v", err)
		}
		second, err := uc.Create(ctx, "user-1", "credits_pro")
		if err != nil {
			t.Fatalf("second create failed: %v", err)
		}

		if got := orders.pendingCount("user-1"); got != 1 {
			t.Fatalf("expected exactly 1 pending order, got %d", got)
		}
		old, _ := orders.FindByID(ctx, nil, first.Order.ID)
		if old.Status != model.OrderStatusCancelled {
			t.Errorf("expected first order cancelled, got %s", old.Status)
		}
		cur, _ := orders.FindByID(ctx, nil, second.Order.ID)
		if cur.Status != model.OrderStatusPending {
			t.Errorf("expected second order pending, got %s", cur.Status)
		}
	})

	t.Run("should never leave two pending orders under concurrency", func(t *testing.T) {
		orders := newMemOrderRepo()
		uc := newOrderManager(orders)

		const n = 16
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func() {
				defer wg.Done()
				if _, err := uc.Create(ctx, "user-1", "credits_starter"); err != nil {
					t.Errorf("create failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := orders.pendingCount("user-1"); got != 1 {
			t.Fatalf("expected exactly 1 pending order after %d concurrent creates, got %d", n, got)
		}
	})

	t.Run("should hold one-pending-per-user without transaction serialization", func(t *testing.T) {
		// No cross-transaction exclusion here: both creates interleave freely
		// and only the pending unique constraint plus the retry stand between
		// them and a double PENDING.
		orders := newMemOrderRepo()
		uc := usecase.NewOrderManager(orders, passTxManager{}, testBank, 24*time.Hour, newTestLogger())

		var wg sync.WaitGroup
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				if _, err := uc.Create(ctx, "user-1", "credits_starter"); err != nil {
					t.Errorf("create failed: %v", err)
				}
			}()
		}
		wg.Wait()

		if got := orders.pendingCount("user-1"); got != 1 {
			t.Fatalf("expected exactly 1 pending order after concurrent creates, got %d", got)
		}

		// A later create still supersedes cleanly.
		if _, err := uc.Create(ctx, "user-1", "credits_pro"); err != nil {
			t.Fatalf("follow-up create failed: %v", err)
		}
		if got := orders.pendingCount("user-1"); got != 1 {
			t.Fatalf("expected exactly 1 pending order after supersede, got %d", got)
		}
	})
}

func TestOrderManager_CancelExpired(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrderRepo()
	uc := newOrderManager(orders)

	ticket, err := uc.Create(ctx, "user-1", "credits_starter")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	// Backdate the expiry so the sweep catches it.
	orders.mu.Lock()
	orders.byID[ticket.Order.ID].ExpiresAt = time.Now().Add(-time.Minute)
	orders.mu.Unlock()

	n, err := uc.CancelExpired(ctx)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired order, got %d", n)
	}

	o, _ := orders.FindByID(ctx, nil, ticket.Order.ID)
	if o.Status != model.OrderStatusExpired {
		t.Errorf("expected expired, got %s", o.Status)
	}

	// Re-running is a no-op.
	n, err = uc.CancelExpired(ctx)
	if err != nil || n != 0 {
		t.Errorf("expected idempotent sweep (0, nil), got (%d, %v)", n, err)
	}
}

func TestOrderManager_PendingByUser(t *testing.T) {
	ctx := context.Background()
	orders := newMemOrderRepo()
	uc := newOrderManager(orders)

	if _, err := uc.PendingByUser(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no orders, got %v", err)
	}

	created, err := uc.Create(ctx, "user-1", "credits_premium")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	pending, err := uc.PendingByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("pending lookup failed: %v", err)
	}
	if pending.Order.ID != created.Order.ID {
		t.Error("pending lookup returned a different order")
	}
	if pending.Package.ID != "credits_premium" {
		t.Errorf("expected package resolved from catalog, got %s", pending.Package.ID)
	}
}
