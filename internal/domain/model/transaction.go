package model

import "time"

// RewardCause classifies why a ledger mutation happened.
type RewardCause string

const (
	CausePurchase    RewardCause = "purchase" // paid order credited by webhook intake
	CauseQuest       RewardCause = "quest"
	CauseAchievement RewardCause = "achievement"
	CauseDailyStreak RewardCause = "daily_streak"
	CauseBonus       RewardCause = "bonus"
	CauseSpend       RewardCause = "spend" // user-initiated debit
)

// LedgerTransaction is one append-only audit row per balance mutation.
// Rows are never updated or deleted; they are the reconciliation trail.
// IDs are ULIDs so the log stays time-sortable without a sequence.
type LedgerTransaction struct {
	ID          string
	UserID      string
	Cause       RewardCause
	CauseRef    string // id of the originating order/quest/event
	CauseLabel  string // human-readable, e.g. "Popular bundle purchase"
	CreditDelta int64  // negative for spends
	XPDelta     int64
	CreatedAt   time.Time
}

// LedgerFilter narrows history queries.
type LedgerFilter struct {
	Cause  RewardCause // empty means all causes
	Since  *time.Time
	Until  *time.Time
	Offset int
	Limit  int
}
