package model

import (
	"math"
	"time"
)

// WalletLedger is the per-user durable record of credit balance and experience
// points. Balance never goes negative; the mutation boundary (a conditional
// single-statement decrement) enforces that, not this struct.
//
// Level is derived from XPTotal and recomputed on every read/write path; the
// stored column is only a denormalized hint, so any historical drift self-heals.
type WalletLedger struct {
	UserID        string
	Balance       int64
	XPTotal       int64
	Level         int
	Version       int64 // bumped on every mutation; used for optimistic streak updates
	CurrentStreak int
	LastActiveAt  *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	baseLevelXP     = 100  // XP required to reach level 2
	levelMultiplier = 1.30 // each level requires 30% more XP than the last
)

// XPRequiredForLevel returns the XP needed to go from level-1 to level.
// Level 1 requires nothing; level 2 requires baseLevelXP; requirements grow
// geometrically after that.
func XPRequiredForLevel(level int) int64 {
	if level <= 1 {
		return 0
	}
	return int64(math.Round(baseLevelXP * math.Pow(levelMultiplier, float64(level-2))))
}

// TotalXPForLevel returns the cumulative XP needed to reach level.
func TotalXPForLevel(level int) int64 {
	var total int64
	for l := 2; l <= level; l++ {
		total += XPRequiredForLevel(l)
	}
	return total
}

// LevelFromXP computes the level for a cumulative XP total. Pure, monotonic,
// deterministic; O(level) walk over the requirement series.
func LevelFromXP(totalXP int64) int {
	level := 1
	var spent int64
	for {
		next := XPRequiredForLevel(level + 1)
		if spent+next > totalXP {
			return level
		}
		spent += next
		level++
	}
}

// LevelInfo describes progress within the current level, for display.
type LevelInfo struct {
	Level          int   `json:"level"`
	XPIntoLevel    int64 `json:"xp_into_level"`
	XPForNextLevel int64 `json:"xp_for_next_level"`
	ProgressPct    int   `json:"progress_pct"`
}

// LevelInfoFromXP derives the full level progress view from a cumulative total.
func LevelInfoFromXP(totalXP int64) LevelInfo {
	level := LevelFromXP(totalXP)
	into := totalXP - TotalXPForLevel(level)
	next := XPRequiredForLevel(level + 1)
	pct := 100
	if next > 0 {
		pct = int(into * 100 / next)
		if pct > 100 {
			pct = 100
		}
	}
	return LevelInfo{Level: level, XPIntoLevel: into, XPForNextLevel: next, ProgressPct: pct}
}

// LevelUpResult reports a level transition caused by an XP grant.
type LevelUpResult struct {
	LeveledUp bool `json:"leveled_up"`
	OldLevel  int  `json:"old_level"`
	NewLevel  int  `json:"new_level"`
}
