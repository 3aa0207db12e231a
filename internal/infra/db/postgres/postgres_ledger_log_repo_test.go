//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"

	"wallet-ledger-service/internal/domain/model"
)

func appendEntry(t *testing.T, repo *ledgerLogRepo, userID string, cause model.RewardCause, credits, xp int64, at time.Time) {
	t.Helper()
	err := repo.Append(context.Background(), nil, &model.LedgerTransaction{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Cause:       cause,
		CauseRef:    "ref",
		CauseLabel:  "label",
		CreditDelta: credits,
		XPDelta:     xp,
		CreatedAt:   at,
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
}

func TestLedgerLogRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewLedgerLogRepo(testPool)
	now := time.Now()

	t.Run("should list newest first with a total count", func(t *testing.T) {
		cleanup(t)
		appendEntry(t, repo, "user-1", model.CausePurchase, 200, 0, now.Add(-2*time.Hour))
		appendEntry(t, repo, "user-1", model.CauseQuest, 25, 10, now.Add(-time.Hour))
		appendEntry(t, repo, "user-2", model.CauseBonus, 5, 0, now)

		entries, total, err := repo.ListByUser(ctx, nil, "user-1", model.LedgerFilter{Limit: 10})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 2 || len(entries) != 2 {
			t.Fatalf("expected 2 rows, got %d (total %d)", len(entries), total)
		}
		if entries[0].Cause != model.CauseQuest {
			t.Errorf("expected newest first, got %s", entries[0].Cause)
		}
	})

	t.Run("should filter by cause and window", func(t *testing.T) {
		cleanup(t)
		appendEntry(t, repo, "user-1", model.CausePurchase, 200, 0, now.Add(-48*time.Hour))
		appendEntry(t, repo, "user-1", model.CausePurchase, 1000, 0, now)
		appendEntry(t, repo, "user-1", model.CauseSpend, -30, 0, now)

		since := now.Add(-time.Hour)
		entries, total, err := repo.ListByUser(ctx, nil, "user-1", model.LedgerFilter{Cause: model.CausePurchase, Since: &since, Limit: 10})
		if err != nil {
			t.Fatalf("list failed: %v", err)
		}
		if total != 1 || len(entries) != 1 || entries[0].CreditDelta != 1000 {
			t.Fatalf("expected the one recent purchase, got %+v (total %d)", entries, total)
		}
	})

	t.Run("should sum deltas in a half-open window", func(t *testing.T) {
		cleanup(t)
		appendEntry(t, repo, "user-1", model.CauseQuest, 40, 10, now)
		appendEntry(t, repo, "user-1", model.CauseSpend, -15, 0, now)
		appendEntry(t, repo, "user-1", model.CauseQuest, 100, 50, now.Add(-72*time.Hour))

		start := now.Add(-time.Hour)
		end := now.Add(time.Hour)
		credits, err := repo.SumCreditsSince(ctx, nil, "user-1", start, end)
		if err != nil || credits != 25 {
			t.Fatalf("expected credit sum 25, got %d (%v)", credits, err)
		}
		xp, err := repo.SumXPSince(ctx, nil, "user-1", start, end)
		if err != nil || xp != 10 {
			t.Fatalf("expected xp sum 10, got %d (%v)", xp, err)
		}
	})
}
