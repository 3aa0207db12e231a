package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"wallet-ledger-service/internal/domain"
	"wallet-ledger-service/internal/domain/model"
	"wallet-ledger-service/internal/domain/ports/repository"
)

// Compile-time check
var _ LedgerService = (*ledgerUC)(nil)

// WalletSnapshot is the read view of a user's wallet with the level always
// recomputed from the XP total.
type WalletSnapshot struct {
	UserID        string          `json:"user_id"`
	Balance       int64           `json:"balance"`
	XPTotal       int64           `json:"xp_total"`
	Level         model.LevelInfo `json:"level"`
	CurrentStreak int             `json:"current_streak"`
}

// LedgerService is the single owner of wallet mutation. Webhook intake calls
// Credit with the intake transaction handle; reward-granting callers (quests,
// achievements) and the spend path open their own transactions here.
type LedgerService interface {
	// Credit performs the atomic balance increment plus audit row inside the
	// caller's transaction. Used by webhook intake so the order transition and
	// the credit commit or roll back together.
	Credit(ctx context.Context, tx repository.Tx, userID string, credits int64, cause model.RewardCause, causeRef, causeLabel string) error
	// GrantReward credits and/or adds XP in one transaction of its own and
	// reports any level transition.
	GrantReward(ctx context.Context, userID string, cause model.RewardCause, causeRef, causeLabel string, credits, xp int64) (*model.LevelUpResult, error)
	// Spend debits with the balance >= amount guard; ErrInsufficientBalance is
	// terminal and leaves no trace.
	Spend(ctx context.Context, userID string, amount int64, causeRef, causeLabel string) error
	Snapshot(ctx context.Context, userID string) (*WalletSnapshot, error)
	History(ctx context.Context, userID string, f model.LedgerFilter) ([]*model.LedgerTransaction, int, error)
	EarnedToday(ctx context.Context, userID string, now time.Time) (credits int64, xp int64, err error)
	// TouchStreak bumps the daily activity streak and returns its new value.
	TouchStreak(ctx context.Context, userID string) (int, error)
}

type ledgerUC struct {
	wallets repository.WalletRepository
	logs    repository.LedgerLogRepository
	tm      repository.TransactionManager
	log     *zerolog.Logger
}

func NewLedgerService(wallets repository.WalletRepository, logs repository.LedgerLogRepository, tm repository.TransactionManager, logger *zerolog.Logger) *ledgerUC {
	l := logger.With().Str("component", "LedgerService").Logger()
	return &ledgerUC{wallets: wallets, logs: logs, tm: tm, log: &l}
}

func (u *ledgerUC) Credit(ctx context.Context, tx repository.Tx, userID string, credits int64, cause model.RewardCause, causeRef, causeLabel string) error {
	if userID == "" || credits <= 0 {
		return domain.ErrInvalidArgument
	}
	if err := u.wallets.CreditAtomic(ctx, tx, userID, credits); err != nil {
		return err
	}
	return u.logs.Append(ctx, tx, &model.LedgerTransaction{
		ID:          ulid.Make().String(),
		UserID:      userID,
		Cause:       cause,
		CauseRef:    causeRef,
		CauseLabel:  causeLabel,
		CreditDelta: credits,
		CreatedAt:   time.Now(),
	})
}

func (u *ledgerUC) GrantReward(ctx context.Context, userID string, cause model.RewardCause, causeRef, causeLabel string, credits, xp int64) (*model.LevelUpResult, error) {
	if userID == "" || credits < 0 || xp < 0 || (credits == 0 && xp == 0) {
		return nil, domain.ErrInvalidArgument
	}

	res := &model.LevelUpResult{}
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if credits > 0 {
			if err := u.wallets.CreditAtomic(ctx, tx, userID, credits); err != nil {
				return err
			}
		}
		if xp > 0 {
			newTotal, err := u.wallets.AddXPAtomic(ctx, tx, userID, xp)
			if err != nil {
				return err
			}
			res.OldLevel = model.LevelFromXP(newTotal - xp)
			res.NewLevel = model.LevelFromXP(newTotal)
			res.LeveledUp = res.NewLevel > res.OldLevel
			if err := u.wallets.SyncLevel(ctx, tx, userID, res.NewLevel); err != nil {
				return err
			}
		}
		return u.logs.Append(ctx, tx, &model.LedgerTransaction{
			ID:          ulid.Make().String(),
			UserID:      userID,
			Cause:       cause,
			CauseRef:    causeRef,
			CauseLabel:  causeLabel,
			CreditDelta: credits,
			XPDelta:     xp,
			CreatedAt:   time.Now(),
		})
	})
	if err != nil {
		return nil, err
	}
	if res.LeveledUp {
		u.log.Info().Str("user_id", userID).Int("old_level", res.OldLevel).Int("new_level", res.NewLevel).Msg("level up")
	}
	return res, nil
}

func (u *ledgerUC) Spend(ctx context.Context, userID string, amount int64, causeRef, causeLabel string) error {
	if userID == "" || amount <= 0 {
		return domain.ErrInvalidArgument
	}
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := u.wallets.DebitIfSufficient(ctx, tx, userID, amount); err != nil {
			return err
		}
		return u.logs.Append(ctx, tx, &model.LedgerTransaction{
			ID:          ulid.Make().String(),
			UserID:      userID,
			Cause:       model.CauseSpend,
			CauseRef:    causeRef,
			CauseLabel:  causeLabel,
			CreditDelta: -amount,
			CreatedAt:   time.Now(),
		})
	})
}

func (u *ledgerUC) Snapshot(ctx context.Context, userID string) (*WalletSnapshot, error) {
	w, err := u.wallets.FindByUser(ctx, repository.NoTX, userID)
	if errors.Is(err, domain.ErrNotFound) {
		// A user without a wallet row has an empty wallet; the row is created
		// lazily by the first mutation.
		return &WalletSnapshot{UserID: userID, Level: model.LevelInfoFromXP(0)}, nil
	}
	if err != nil {
		return nil, err
	}

	info := model.LevelInfoFromXP(w.XPTotal)
	if w.Level != info.Level {
		// Stored level drifted; heal it on the read path.
		if err := u.wallets.SyncLevel(ctx, repository.NoTX, userID, info.Level); err != nil {
			u.log.Warn().Err(err).Str("user_id", userID).Msg("level resync failed")
		}
	}
	return &WalletSnapshot{
		UserID:        w.UserID,
		Balance:       w.Balance,
		XPTotal:       w.XPTotal,
		Level:         info,
		CurrentStreak: w.CurrentStreak,
	}, nil
}

func (u *ledgerUC) History(ctx context.Context, userID string, f model.LedgerFilter) ([]*model.LedgerTransaction, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return u.logs.ListByUser(ctx, repository.NoTX, userID, f)
}

func (u *ledgerUC) EarnedToday(ctx context.Context, userID string, now time.Time) (int64, int64, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(24 * time.Hour)
	credits, err := u.logs.SumCreditsSince(ctx, repository.NoTX, userID, start, end)
	if err != nil {
		return 0, 0, err
	}
	xp, err := u.logs.SumXPSince(ctx, repository.NoTX, userID, start, end)
	if err != nil {
		return 0, 0, err
	}
	return credits, xp, nil
}

func (u *ledgerUC) TouchStreak(ctx context.Context, userID string) (int, error) {
	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		w, err := u.wallets.FindByUser(ctx, repository.NoTX, userID)
		if errors.Is(err, domain.ErrNotFound) {
			// Materialize the row first, then retry the guarded update.
			if err := u.wallets.CreditAtomic(ctx, repository.NoTX, userID, 0); err != nil {
				return 0, err
			}
			continue
		}
		if err != nil {
			return 0, err
		}

		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		streak := 1
		if w.LastActiveAt != nil {
			last := time.Date(w.LastActiveAt.Year(), w.LastActiveAt.Month(), w.LastActiveAt.Day(), 0, 0, 0, 0, now.Location())
			switch {
			case last.Equal(today):
				return w.CurrentStreak, nil // already counted today
			case last.Equal(today.AddDate(0, 0, -1)):
				streak = w.CurrentStreak + 1
			}
		}

		ok, err := u.wallets.UpdateStreak(ctx, repository.NoTX, userID, streak, today, w.Version)
		if err != nil {
			return 0, err
		}
		if ok {
			return streak, nil
		}
		// Lost the version race; re-read and try again.
	}
	return 0, domain.ErrOperationFailed
}
