package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/models"
)

// Ledger moves funds. Debit fails with an InsufficientBalance error when the
// balance would go negative. Debit and Credit return the balance after the
// change.
type Ledger interface {
	CheckBalance(ctx context.Context, userID int64, amount decimal.Decimal, currency string) error
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error)
	Credit(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error)
	Balance(ctx context.Context, userID int64, currency string) (decimal.Decimal, error)
}

// SeedStore owns each player's active seed pair. Seeds creates a pair on
// first access.
type SeedStore interface {
	Seeds(ctx context.Context, userID int64) (*models.SeedState, error)
	IncrementNonce(ctx context.Context, userID int64) (int64, error)
	// Rotate retires the active pair and activates a new one with nonce 0. An
	// empty clientSeed keeps the current client seed.
	Rotate(ctx context.Context, userID int64, clientSeed string) (*models.RevealedSeed, *models.SeedState, error)
}

// RoundStore persists settled rounds. DeleteRound exists only to compensate a
// failed settlement.
type RoundStore interface {
	RecordRound(ctx context.Context, round *models.RoundRecord) (string, error)
	DeleteRound(ctx context.Context, roundID string) error
	Round(ctx context.Context, roundID string) (*models.RoundRecord, error)
	UserRounds(ctx context.Context, userID int64, limit int) ([]*models.RoundRecord, error)
}

// Locker serialises work on a single player.
type Locker interface {
	Lock(ctx context.Context, userID int64) (unlock func(), err error)
}

// RateLimiter reports whether an action is still within its window budget.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error)
}

const (
	DefaultRoundsLimit = 50
	MaxRoundsLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRoundsLimit
	}
	if limit > MaxRoundsLimit {
		return MaxRoundsLimit
	}
	return limit
}
