package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/config"
	"fair-casino-backend/internal/fairness"
	"fair-casino-backend/internal/models"
)

const (
	maxTxRetries     = 10
	lockPollInterval = 10 * time.Millisecond
	lockWaitTimeout  = 5 * time.Second
)

// RedisService implements Ledger, SeedStore, RoundStore, Locker and
// RateLimiter on top of Redis.
type RedisService struct {
	client          *redis.Client
	startingBalance decimal.Decimal
	lockTTL         time.Duration
}

func NewRedisService(ctx context.Context, cfg *config.Config) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisService{
		client:          client,
		startingBalance: cfg.StartingBalance,
		lockTTL:         TTLUserLock,
	}, nil
}

func (s *RedisService) Close() error {
	return s.client.Close()
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// readBalance returns the stored balance, or the starting balance for a
// wallet that has never been touched.
func (s *RedisService) readBalance(ctx context.Context, c hashGetter, key, currency string) (decimal.Decimal, error) {
	raw, err := c.HGet(ctx, key, currency).Result()
	if errors.Is(err, redis.Nil) {
		return s.startingBalance, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get wallet: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt balance in %s[%s]: %w", key, currency, err)
	}
	return balance, nil
}

// adjustBalance applies delta with optimistic locking on the wallet hash.
func (s *RedisService) adjustBalance(ctx context.Context, userID int64, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	key := fmt.Sprintf(KeyWallet, userID)
	var updated decimal.Decimal

	txf := func(tx *redis.Tx) error {
		current, err := s.readBalance(ctx, tx, key, currency)
		if err != nil {
			return err
		}
		updated = current.Add(delta)
		if updated.IsNegative() {
			return insufficientBalance(current, delta.Neg(), currency)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, currency, updated.String())
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return decimal.Zero, err
	}
	return decimal.Zero, fmt.Errorf("wallet %s: too much contention", key)
}

func (s *RedisService) CheckBalance(ctx context.Context, userID int64, amount decimal.Decimal, currency string) error {
	balance, err := s.Balance(ctx, userID, currency)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return insufficientBalance(balance, amount, currency)
	}
	return nil
}

func (s *RedisService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return s.adjustBalance(ctx, userID, currency, amount.Neg())
}

func (s *RedisService) Credit(ctx context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	return s.adjustBalance(ctx, userID, currency, amount)
}

func (s *RedisService) Balance(ctx context.Context, userID int64, currency string) (decimal.Decimal, error) {
	return s.readBalance(ctx, s.client, fmt.Sprintf(KeyWallet, userID), currency)
}

func (s *RedisService) DeleteWallet(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyWallet, userID)).Err()
}

var initSeedsScript = redis.NewScript(`
	if redis.call("EXISTS", KEYS[1]) == 1 then
		return 0
	end
	redis.call("HSET", KEYS[1],
		"server_seed", ARGV[1],
		"server_seed_hash", ARGV[2],
		"client_seed", ARGV[3],
		"nonce", 0)
	return 1
`)

func (s *RedisService) Seeds(ctx context.Context, userID int64) (*models.SeedState, error) {
	key := fmt.Sprintf(KeySeeds, userID)

	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get seeds: %w", err)
	}
	if len(fields) > 0 {
		return parseSeedState(fields)
	}

	clientSeed, err := fairness.GenerateClientSeed()
	if err != nil {
		return nil, err
	}
	fresh, err := newSeedState(clientSeed)
	if err != nil {
		return nil, err
	}
	if err := initSeedsScript.Run(ctx, s.client, []string{key},
		fresh.ServerSeed, fresh.ServerSeedHash, fresh.ClientSeed).Err(); err != nil {
		return nil, fmt.Errorf("failed to create seeds: %w", err)
	}

	// Another request may have created the pair first.
	fields, err = s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get seeds: %w", err)
	}
	return parseSeedState(fields)
}

func parseSeedState(fields map[string]string) (*models.SeedState, error) {
	nonce, err := strconv.ParseInt(fields[FieldNonce], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt nonce %q: %w", fields[FieldNonce], err)
	}
	return &models.SeedState{
		ServerSeed:     fields[FieldServerSeed],
		ServerSeedHash: fields[FieldServerSeedHash],
		ClientSeed:     fields[FieldClientSeed],
		Nonce:          nonce,
	}, nil
}

func (s *RedisService) IncrementNonce(ctx context.Context, userID int64) (int64, error) {
	key := fmt.Sprintf(KeySeeds, userID)
	if _, err := s.Seeds(ctx, userID); err != nil {
		return 0, err
	}
	return s.client.HIncrBy(ctx, key, FieldNonce, 1).Result()
}

func (s *RedisService) Rotate(ctx context.Context, userID int64, clientSeed string) (*models.RevealedSeed, *models.SeedState, error) {
	current, err := s.Seeds(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if clientSeed == "" {
		clientSeed = current.ClientSeed
	}
	next, err := newSeedState(clientSeed)
	if err != nil {
		return nil, nil, err
	}

	revealed := reveal(current)
	data, err := json.Marshal(revealed)
	if err != nil {
		return nil, nil, err
	}

	seedsKey := fmt.Sprintf(KeySeeds, userID)
	revealedKey := fmt.Sprintf(KeyRevealedSeeds, userID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, seedsKey,
			FieldServerSeed, next.ServerSeed,
			FieldServerSeedHash, next.ServerSeedHash,
			FieldClientSeed, next.ClientSeed,
			FieldNonce, 0,
		)
		pipe.LPush(ctx, revealedKey, data)
		pipe.LTrim(ctx, revealedKey, 0, MaxRevealedSeeds-1)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rotate seeds: %w", err)
	}
	return &revealed, next, nil
}

// RevealedSeeds lists retired seed pairs, newest first.
func (s *RedisService) RevealedSeeds(ctx context.Context, userID int64) ([]models.RevealedSeed, error) {
	items, err := s.client.LRange(ctx, fmt.Sprintf(KeyRevealedSeeds, userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	seeds := make([]models.RevealedSeed, 0, len(items))
	for _, item := range items {
		var rs models.RevealedSeed
		if err := json.Unmarshal([]byte(item), &rs); err != nil {
			continue
		}
		seeds = append(seeds, rs)
	}
	return seeds, nil
}

func (s *RedisService) DeleteSeeds(ctx context.Context, userID int64) error {
	return s.client.Del(ctx, fmt.Sprintf(KeySeeds, userID), fmt.Sprintf(KeyRevealedSeeds, userID)).Err()
}

func (s *RedisService) RecordRound(ctx context.Context, round *models.RoundRecord) (string, error) {
	if round.RoundID == "" {
		round.RoundID = models.GenerateRoundID()
	}
	data, err := json.Marshal(round)
	if err != nil {
		return "", fmt.Errorf("failed to marshal round: %w", err)
	}

	roundKey := fmt.Sprintf(KeyRound, round.RoundID)
	created, err := s.client.SetNX(ctx, roundKey, data, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to save round: %w", err)
	}
	if !created {
		return "", fmt.Errorf("round %s already recorded", round.RoundID)
	}

	userKey := fmt.Sprintf(KeyUserRounds, round.UserID)
	if err := s.client.ZAdd(ctx, userKey, redis.Z{
		Score:  float64(round.CreatedAt.UnixNano()),
		Member: round.RoundID,
	}).Err(); err != nil {
		if delErr := s.client.Del(ctx, roundKey).Err(); delErr != nil {
			slog.Error("Failed to remove unindexed round", "round_id", round.RoundID, "err", delErr)
		}
		return "", fmt.Errorf("failed to index round: %w", err)
	}

	// The round itself is kept; only the per-user index is capped.
	if err := s.client.ZRemRangeByRank(ctx, userKey, 0, -MaxUserRounds-1).Err(); err != nil {
		slog.Warn("Failed to trim round index", "user_id", round.UserID, "err", err)
	}

	return round.RoundID, nil
}

func (s *RedisService) DeleteRound(ctx context.Context, roundID string) error {
	round, err := s.Round(ctx, roundID)
	if apperrors.Is(err, apperrors.KindRoundNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, fmt.Sprintf(KeyRound, roundID))
		pipe.ZRem(ctx, fmt.Sprintf(KeyUserRounds, round.UserID), roundID)
		return nil
	})
	return err
}

func (s *RedisService) Round(ctx context.Context, roundID string) (*models.RoundRecord, error) {
	data, err := s.client.Get(ctx, fmt.Sprintf(KeyRound, roundID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.New(apperrors.KindRoundNotFound, "round %s not found", roundID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	var round models.RoundRecord
	if err := json.Unmarshal([]byte(data), &round); err != nil {
		return nil, fmt.Errorf("failed to unmarshal round: %w", err)
	}
	return &round, nil
}

func (s *RedisService) UserRounds(ctx context.Context, userID int64, limit int) ([]*models.RoundRecord, error) {
	limit = clampLimit(limit)

	ids, err := s.client.ZRevRange(ctx, fmt.Sprintf(KeyUserRounds, userID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get round ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.RoundRecord{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, fmt.Sprintf(KeyRound, id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("pipeline execution failed: %w", err)
	}

	rounds := make([]*models.RoundRecord, 0, len(ids))
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if err != nil {
			slog.Warn("Round missing from index", "round_id", ids[i], "err", err)
			continue
		}
		var round models.RoundRecord
		if err := json.Unmarshal([]byte(data), &round); err != nil {
			continue
		}
		rounds = append(rounds, &round)
	}
	return rounds, nil
}

var releaseLockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

var extendLockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("PEXPIRE", KEYS[1], ARGV[2])
	end
	return 0
`)

// Lock takes the player's settlement lock, polling until it is free or ctx is
// done or lockWaitTimeout passes. While held the lock is extended every third
// of its TTL; if the holder dies it expires on its own.
func (s *RedisService) Lock(ctx context.Context, userID int64) (func(), error) {
	key := fmt.Sprintf(KeyUserLock, userID)
	token := uuid.NewString()

	ctx, cancel := context.WithTimeout(ctx, lockWaitTimeout)
	defer cancel()

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()

	for {
		ok, err := s.client.SetNX(ctx, key, token, s.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go s.keepLock(key, token, stop, stopped)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-stopped
			if err := releaseLockScript.Run(context.Background(), s.client, []string{key}, token).Err(); err != nil {
				slog.Warn("Failed to release lock", "key", key, "err", err)
			}
		})
	}, nil
}

// keepLock pushes the lock's expiry forward until stop is closed. It gives up
// once the key no longer holds token.
func (s *RedisService) keepLock(key, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.lockTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL/3)
		held, err := extendLockScript.Run(ctx, s.client, []string{key}, token, s.lockTTL.Milliseconds()).Int()
		cancel()
		switch {
		case err != nil:
			slog.Warn("Failed to extend lock", "key", key, "err", err)
		case held == 0:
			slog.Error("Lock lost while held", "key", key)
			return
		}
	}
}

func (s *RedisService) CheckRateLimit(ctx context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	key := fmt.Sprintf(KeyRateLimit, userID, action)

	pipe := s.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check rate limit: %w", err)
	}
	count := incr.Val()

	// Every window key carries a TTL; one left without it is repaired here.
	if count == 1 || ttl.Val() < 0 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			slog.Error("Failed to set rate limit window", "key", key, "err", err)
			if delErr := s.client.Del(ctx, key).Err(); delErr != nil {
				slog.Error("Failed to drop rate limit key", "key", key, "err", delErr)
			}
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count <= int64(limit), nil
}

func (s *RedisService) ClearRateLimit(ctx context.Context, userID int64, action string) error {
	return s.client.Del(ctx, fmt.Sprintf(KeyRateLimit, userID, action)).Err()
}
