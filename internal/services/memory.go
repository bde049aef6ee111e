package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/fairness"
	"fair-casino-backend/internal/models"
)

// MemoryLedger keeps balances in process. A wallet is opened with the
// starting balance on first access in each currency.
type MemoryLedger struct {
	mu              sync.Mutex
	balances        map[int64]map[string]decimal.Decimal
	startingBalance decimal.Decimal
}

func NewMemoryLedger(startingBalance decimal.Decimal) *MemoryLedger {
	return &MemoryLedger{
		balances:        make(map[int64]map[string]decimal.Decimal),
		startingBalance: startingBalance,
	}
}

// wallet must be called with mu held.
func (l *MemoryLedger) wallet(userID int64, currency string) decimal.Decimal {
	w, ok := l.balances[userID]
	if !ok {
		w = make(map[string]decimal.Decimal)
		l.balances[userID] = w
	}
	balance, ok := w[currency]
	if !ok {
		balance = l.startingBalance
		w[currency] = balance
	}
	return balance
}

func (l *MemoryLedger) CheckBalance(_ context.Context, userID int64, amount decimal.Decimal, currency string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.wallet(userID, currency)
	if balance.LessThan(amount) {
		return insufficientBalance(balance, amount, currency)
	}
	return nil
}

func (l *MemoryLedger) Debit(_ context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.wallet(userID, currency)
	if balance.LessThan(amount) {
		return balance, insufficientBalance(balance, amount, currency)
	}
	balance = balance.Sub(amount)
	l.balances[userID][currency] = balance
	return balance, nil
}

func (l *MemoryLedger) Credit(_ context.Context, userID int64, amount decimal.Decimal, currency string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.wallet(userID, currency).Add(amount)
	l.balances[userID][currency] = balance
	return balance, nil
}

func (l *MemoryLedger) Balance(_ context.Context, userID int64, currency string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wallet(userID, currency), nil
}

func insufficientBalance(balance, amount decimal.Decimal, currency string) error {
	return apperrors.New(apperrors.KindInsufficientBalance,
		"insufficient balance: have %s %s, need %s", balance, currency, amount)
}

// MemorySeedStore keeps seed pairs in process.
type MemorySeedStore struct {
	mu       sync.Mutex
	seeds    map[int64]*models.SeedState
	revealed map[int64][]models.RevealedSeed
}

func NewMemorySeedStore() *MemorySeedStore {
	return &MemorySeedStore{
		seeds:    make(map[int64]*models.SeedState),
		revealed: make(map[int64][]models.RevealedSeed),
	}
}

// active must be called with mu held.
func (s *MemorySeedStore) active(userID int64) (*models.SeedState, error) {
	if state, ok := s.seeds[userID]; ok {
		return state, nil
	}
	clientSeed, err := fairness.GenerateClientSeed()
	if err != nil {
		return nil, err
	}
	state, err := newSeedState(clientSeed)
	if err != nil {
		return nil, err
	}
	s.seeds[userID] = state
	return state, nil
}

func (s *MemorySeedStore) Seeds(_ context.Context, userID int64) (*models.SeedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.active(userID)
	if err != nil {
		return nil, err
	}
	cp := *state
	return &cp, nil
}

func (s *MemorySeedStore) IncrementNonce(_ context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.active(userID)
	if err != nil {
		return 0, err
	}
	state.Nonce++
	return state.Nonce, nil
}

func (s *MemorySeedStore) Rotate(_ context.Context, userID int64, clientSeed string) (*models.RevealedSeed, *models.SeedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.active(userID)
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
	s.revealed[userID] = append(s.revealed[userID], revealed)
	s.seeds[userID] = next

	cp := *next
	return &revealed, &cp, nil
}

// Revealed lists retired seed pairs, oldest first.
func (s *MemorySeedStore) Revealed(userID int64) []models.RevealedSeed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RevealedSeed(nil), s.revealed[userID]...)
}

func newSeedState(clientSeed string) (*models.SeedState, error) {
	serverSeed, err := fairness.GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	return &models.SeedState{
		ServerSeed:     serverSeed,
		ServerSeedHash: fairness.HashServerSeed(serverSeed),
		ClientSeed:     clientSeed,
	}, nil
}

func reveal(state *models.SeedState) models.RevealedSeed {
	return models.RevealedSeed{
		ServerSeed:     state.ServerSeed,
		ServerSeedHash: state.ServerSeedHash,
		ClientSeed:     state.ClientSeed,
		Nonce:          state.Nonce,
	}
}

// MemoryRoundStore keeps rounds in process.
type MemoryRoundStore struct {
	mu     sync.RWMutex
	rounds map[string]*models.RoundRecord
	byUser map[int64][]string
}

func NewMemoryRoundStore() *MemoryRoundStore {
	return &MemoryRoundStore{
		rounds: make(map[string]*models.RoundRecord),
		byUser: make(map[int64][]string),
	}
}

func (s *MemoryRoundStore) RecordRound(_ context.Context, round *models.RoundRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if round.RoundID == "" {
		round.RoundID = models.GenerateRoundID()
	}
	if _, ok := s.rounds[round.RoundID]; ok {
		return "", apperrors.New(apperrors.KindInternal, "round %s already recorded", round.RoundID)
	}
	cp := *round
	s.rounds[round.RoundID] = &cp
	s.byUser[round.UserID] = append(s.byUser[round.UserID], round.RoundID)
	return round.RoundID, nil
}

func (s *MemoryRoundStore) DeleteRound(_ context.Context, roundID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil
	}
	delete(s.rounds, roundID)
	ids := s.byUser[round.UserID]
	for i, id := range ids {
		if id == roundID {
			s.byUser[round.UserID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryRoundStore) Round(_ context.Context, roundID string) (*models.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil, apperrors.New(apperrors.KindRoundNotFound, "round %s not found", roundID)
	}
	cp := *round
	return &cp, nil
}

func (s *MemoryRoundStore) UserRounds(_ context.Context, userID int64, limit int) ([]*models.RoundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	rounds := make([]*models.RoundRecord, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		cp := *s.rounds[ids[i]]
		rounds = append(rounds, &cp)
	}
	sort.SliceStable(rounds, func(i, j int) bool {
		return rounds[i].CreatedAt.After(rounds[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(rounds) > limit {
		rounds = rounds[:limit]
	}
	return rounds, nil
}

// Count returns the number of stored rounds.
func (s *MemoryRoundStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rounds)
}

// KeyedMutex is an in-process Locker with one mutex per player.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[int64]*keyedLock)}
}

func (k *KeyedMutex) Lock(ctx context.Context, userID int64) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k.mu.Lock()
	l, ok := k.locks[userID]
	if !ok {
		l = &keyedLock{ch: make(chan struct{}, 1)}
		k.locks[userID] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(userID, l, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { k.release(userID, l, true) })
	}, nil
}

func (k *KeyedMutex) release(userID int64, l *keyedLock, held bool) {
	if held {
		<-l.ch
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, userID)
	}
}

// MemoryRateLimiter is a fixed-window counter per player and action.
type MemoryRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*rateWindow
	now     func() time.Time
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		windows: make(map[string]*rateWindow),
		now:     time.Now,
	}
}

func (r *MemoryRateLimiter) CheckRateLimit(_ context.Context, userID int64, action string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := fmt.Sprintf(KeyRateLimit, userID, action)
	w, ok := r.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{resetAt: now.Add(window)}
		r.windows[key] = w
	}
	w.count++
	return w.count <= limit, nil
}
