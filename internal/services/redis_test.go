package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/config"
	"fair-casino-backend/internal/services"
)

const redisTestUser = int64(999999)

func newRedisService(t *testing.T) *services.RedisService {
	t.Helper()
	cfg := &config.Config{
		RedisURL:        "localhost:6379",
		RedisPass:       "",
		RedisDB:         0,
		StartingBalance: decimal.NewFromInt(10000),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	redisService, err := services.NewRedisService(ctx, cfg)
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	cleanup := func() {
		ctx := context.Background()
		redisService.DeleteWallet(ctx, redisTestUser)
		redisService.DeleteSeeds(ctx, redisTestUser)
		redisService.ClearRateLimit(ctx, redisTestUser, "bet")
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		redisService.Close()
	})
	return redisService
}

func TestRedisLedger(t *testing.T) {
	s := newRedisService(t)
	ctx := context.Background()

	balance, err := s.Balance(ctx, redisTestUser, "USD")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(10000)), "default balance, got %s", balance)

	balance, err = s.Debit(ctx, redisTestUser, decimal.RequireFromString("1000.5"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "8999.5", balance.String())

	balance, err = s.Credit(ctx, redisTestUser, decimal.RequireFromString("0.5"), "USD")
	require.NoError(t, err)
	assert.Equal(t, "9000", balance.String())

	_, err = s.Debit(ctx, redisTestUser, decimal.NewFromInt(20000), "USD")
	assert.Equal(t, apperrors.KindInsufficientBalance, apperrors.KindOf(err))

	err = s.CheckBalance(ctx, redisTestUser, decimal.NewFromInt(9001), "USD")
	assert.Equal(t, apperrors.KindInsufficientBalance, apperrors.KindOf(err))
}

func TestRedisSeeds(t *testing.T) {
	s := newRedisService(t)
	ctx := context.Background()

	first, err := s.Seeds(ctx, redisTestUser)
	require.NoError(t, err)
	again, err := s.Seeds(ctx, redisTestUser)
	require.NoError(t, err)
	assert.Equal(t, first.ServerSeed, again.ServerSeed, "seeds are created once")

	n, err := s.IncrementNonce(ctx, redisTestUser)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revealed, active, err := s.Rotate(ctx, redisTestUser, "mine")
	require.NoError(t, err)
	assert.Equal(t, first.ServerSeed, revealed.ServerSeed)
	assert.Equal(t, int64(1), revealed.Nonce)
	assert.Equal(t, "mine", active.ClientSeed)

	current, err := s.Seeds(ctx, redisTestUser)
	require.NoError(t, err)
	assert.Equal(t, active.ServerSeedHash, current.ServerSeedHash)
	assert.Equal(t, int64(0), current.Nonce)

	history, err := s.RevealedSeeds(ctx, redisTestUser)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, first.ServerSeedHash, history[0].ServerSeedHash)
}

func TestRedisRounds(t *testing.T) {
	s := newRedisService(t)
	ctx := context.Background()

	round := newRound(redisTestUser, time.Now().UTC())
	id, err := s.RecordRound(ctx, round)
	require.NoError(t, err)
	t.Cleanup(func() { s.DeleteRound(context.Background(), id) })

	_, err = s.RecordRound(ctx, round)
	assert.Error(t, err, "round ids are write-once")

	got, err := s.Round(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Payout.Equal(round.Payout))

	rounds, err := s.UserRounds(ctx, redisTestUser, 10)
	require.NoError(t, err)
	require.NotEmpty(t, rounds)
	assert.Equal(t, id, rounds[0].RoundID)

	require.NoError(t, s.DeleteRound(ctx, id))
	_, err = s.Round(ctx, id)
	assert.Equal(t, apperrors.KindRoundNotFound, apperrors.KindOf(err))
}

func TestRedisLockAndRateLimit(t *testing.T) {
	s := newRedisService(t)
	ctx := context.Background()

	unlock, err := s.Lock(ctx, redisTestUser)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = s.Lock(short, redisTestUser)
	assert.Error(t, err, "lock is held")

	unlock()
	again, err := s.Lock(ctx, redisTestUser)
	require.NoError(t, err)
	again()

	for i := 0; i < 5; i++ {
		allowed, err := s.CheckRateLimit(ctx, redisTestUser, "bet", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := s.CheckRateLimit(ctx, redisTestUser, "bet", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed, "sixth call in the window is refused")
}
