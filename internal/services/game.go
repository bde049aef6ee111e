package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/fairness"
	"fair-casino-backend/internal/games"
	"fair-casino-backend/internal/models"
)

// Collaborators are the services a round settles against.
type Collaborators struct {
	Ledger    Ledger
	Seeds     SeedStore
	Rounds    RoundStore
	Locker    Locker
	Publisher RoundPublisher
	Logger    *slog.Logger
	Now       func() time.Time
}

func (c *Collaborators) withDefaults() {
	if c.Locker == nil {
		c.Locker = NewKeyedMutex()
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Bet is a play request whose options have already been decoded for the
// target game.
type Bet struct {
	UserID     int64
	Currency   string
	Precision  int32
	Amount     decimal.Decimal
	Options    games.Options
	RawOptions json.RawMessage
}

// PlayRound runs the shared round lifecycle for any resolver: validate, check
// funds, load seeds, resolve, then settle. Settlement (debit, credit, record,
// nonce) is all or nothing and ignores cancellation of ctx once started.
func PlayRound(ctx context.Context, c Collaborators, r games.Resolver, bet Bet) (*models.PlayResult, error) {
	c.withDefaults()
	info := r.Info()

	stake, err := r.Validate(bet.Amount, bet.Options)
	if err != nil {
		return nil, err
	}
	if !stake.Equal(stake.Truncate(bet.Precision)) {
		return nil, apperrors.New(apperrors.KindInvalidAmount,
			"%s allows at most %d decimal places, got %s", bet.Currency, bet.Precision, stake)
	}
	if stake.LessThan(info.MinBet) {
		return nil, apperrors.New(apperrors.KindBetTooLow, "minimum bet for %s is %s", info.ID, info.MinBet)
	}
	if stake.GreaterThan(info.MaxBet) {
		return nil, apperrors.New(apperrors.KindBetTooHigh, "maximum bet for %s is %s", info.ID, info.MaxBet)
	}

	unlock, err := c.Locker.Lock(ctx, bet.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to acquire player lock")
	}
	defer unlock()

	if err := c.Ledger.CheckBalance(ctx, bet.UserID, stake, bet.Currency); err != nil {
		return nil, err
	}

	seeds, err := c.Seeds.Seeds(ctx, bet.UserID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to load seeds")
	}

	res, err := games.Replay(r, seeds.ServerSeed, seeds.ClientSeed, seeds.Nonce, stake, bet.Options)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to resolve round")
	}
	payout := res.Payout.Truncate(bet.Precision)
	if payout.IsNegative() || res.Multiplier.IsNegative() {
		return nil, apperrors.New(apperrors.KindInternal, "%s produced a negative payout", info.ID)
	}
	multiplier := settledMultiplier(stake, payout, res.Multiplier, bet.Precision)
	if !stake.Mul(multiplier).Truncate(bet.Precision).Equal(payout) {
		return nil, apperrors.New(apperrors.KindInternal,
			"%s payout %s does not match stake %s x multiplier %s", info.ID, payout, stake, multiplier)
	}

	outcome, err := json.Marshal(res.Outcome)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to encode outcome")
	}
	rawOptions := bet.RawOptions
	if len(rawOptions) == 0 {
		if rawOptions, err = json.Marshal(bet.Options); err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to encode options")
		}
	}

	round := &models.RoundRecord{
		RoundID:        models.GenerateRoundID(),
		UserID:         bet.UserID,
		GameID:         info.ID,
		Currency:       bet.Currency,
		BetAmount:      stake,
		Payout:         payout,
		Multiplier:     multiplier,
		Options:        rawOptions,
		Outcome:        outcome,
		ServerSeedHash: seeds.ServerSeedHash,
		ClientSeed:     seeds.ClientSeed,
		Nonce:          seeds.Nonce,
		CreatedAt:      c.Now().UTC(),
	}

	settleCtx := context.WithoutCancel(ctx)
	balance, err := settle(settleCtx, c, round)
	if err != nil {
		return nil, err
	}

	c.Logger.Info("Round settled",
		"user_id", round.UserID,
		"game", round.GameID,
		"round_id", round.RoundID,
		"bet", round.BetAmount.String(),
		"payout", round.Payout.String(),
	)

	if err := c.Publisher.PublishRound(settleCtx, round); err != nil {
		c.Logger.Warn("Failed to publish round", "round_id", round.RoundID, "err", err)
	}

	return &models.PlayResult{
		RoundID:    round.RoundID,
		Game:       round.GameID,
		Currency:   round.Currency,
		BetAmount:  round.BetAmount,
		Payout:     round.Payout,
		Profit:     round.Profit(),
		Multiplier: round.Multiplier,
		Outcome:    res.Outcome,
		Fairness:   seeds.Public(),
		NewBalance: balance,
	}, nil
}

// settledMultiplier returns the multiplier recorded with a round: stake times
// it, truncated to precision, is exactly payout. The resolver's multiplier is
// kept when it already agrees; otherwise the quotient is rounded up at enough
// places that the excess over payout stays below one unit of precision.
func settledMultiplier(stake, payout, multiplier decimal.Decimal, precision int32) decimal.Decimal {
	if !stake.IsPositive() || stake.Mul(multiplier).Truncate(precision).Equal(payout) {
		return multiplier
	}
	places := precision + int32(len(stake.Truncate(0).String()))
	m := payout.DivRound(stake, places)
	if stake.Mul(m).LessThan(payout) {
		m = m.Add(decimal.New(1, -places))
	}
	return m
}

// settle applies the four ledger and storage steps of a round. Each applied
// step pushes its compensation; on failure they run newest first.
func settle(ctx context.Context, c Collaborators, round *models.RoundRecord) (decimal.Decimal, error) {
	var undo []func(context.Context) error

	fail := func(step string, cause error) (decimal.Decimal, error) {
		var rollbackErrs []error
		for i := len(undo) - 1; i >= 0; i-- {
			if err := undo[i](ctx); err != nil {
				rollbackErrs = append(rollbackErrs, err)
			}
		}
		log := c.Logger.With("user_id", round.UserID, "game", round.GameID, "round_id", round.RoundID)
		if len(rollbackErrs) > 0 {
			log.Error("Settlement rollback incomplete", "step", step, "err", cause, "rollback_err", errors.Join(rollbackErrs...))
		} else {
			log.Error("Settlement failed, rolled back", "step", step, "err", cause)
		}
		return decimal.Zero, apperrors.Wrap(errors.Join(append([]error{cause}, rollbackErrs...)...),
			apperrors.KindSettlementFailed, fmt.Sprintf("settlement failed at %s", step))
	}

	balance, err := c.Ledger.Debit(ctx, round.UserID, round.BetAmount, round.Currency)
	if err != nil {
		if apperrors.Is(err, apperrors.KindInsufficientBalance) {
			return decimal.Zero, err
		}
		return fail("debit", err)
	}
	undo = append(undo, func(ctx context.Context) error {
		_, err := c.Ledger.Credit(ctx, round.UserID, round.BetAmount, round.Currency)
		return err
	})

	if round.Payout.IsPositive() {
		if balance, err = c.Ledger.Credit(ctx, round.UserID, round.Payout, round.Currency); err != nil {
			return fail("credit", err)
		}
		undo = append(undo, func(ctx context.Context) error {
			_, err := c.Ledger.Debit(ctx, round.UserID, round.Payout, round.Currency)
			return err
		})
	}

	if _, err := c.Rounds.RecordRound(ctx, round); err != nil {
		return fail("record", err)
	}
	undo = append(undo, func(ctx context.Context) error {
		return c.Rounds.DeleteRound(ctx, round.RoundID)
	})

	if _, err := c.Seeds.IncrementNonce(ctx, round.UserID); err != nil {
		return fail("nonce", err)
	}
	return balance, nil
}

// GameEngine is the entry point used by the HTTP layer.
type GameEngine struct {
	registry   *games.Registry
	currencies map[string]int32
	deps       Collaborators
}

func NewGameEngine(registry *games.Registry, currencies map[string]int32, deps Collaborators) *GameEngine {
	deps.withDefaults()
	return &GameEngine{
		registry:   registry,
		currencies: currencies,
		deps:       deps,
	}
}

// Precision returns the number of decimal places of a currency.
func (ge *GameEngine) Precision(currency string) (int32, error) {
	precision, ok := ge.currencies[currency]
	if !ok {
		return 0, apperrors.New(apperrors.KindUnsupportedCurrency, "unsupported currency %q", currency)
	}
	return precision, nil
}

func (ge *GameEngine) Play(ctx context.Context, userID int64, req *models.BetRequest) (*models.PlayResult, error) {
	req.Normalize()
	if req.Amount.IsNegative() {
		return nil, apperrors.New(apperrors.KindInvalidAmount, "amount must not be negative")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidOptions, "%v", err)
	}

	precision, err := ge.Precision(req.Currency)
	if err != nil {
		return nil, err
	}
	resolver, err := ge.registry.Lookup(req.GameID)
	if err != nil {
		return nil, err
	}
	opts, err := resolver.DecodeOptions(req.Options)
	if err != nil {
		return nil, err
	}

	return PlayRound(ctx, ge.deps, resolver, Bet{
		UserID:     userID,
		Currency:   req.Currency,
		Precision:  precision,
		Amount:     req.Amount,
		Options:    opts,
		RawOptions: req.Options,
	})
}

func (ge *GameEngine) Catalog() []models.GameInfo {
	return ge.registry.Catalog()
}

var unitStake = decimal.NewFromInt(1)

// Verify recomputes a round from revealed seeds. It touches no state. A zero
// amount verifies a unit stake for games that need a positive amount.
func (ge *GameEngine) Verify(req *models.VerifyRequest) (*models.VerifyResponse, error) {
	resolver, err := ge.registry.Lookup(req.GameID)
	if err != nil {
		return nil, err
	}
	opts, err := resolver.DecodeOptions(req.Options)
	if err != nil {
		return nil, err
	}
	stake, err := resolver.Validate(req.Amount, opts)
	if apperrors.Is(err, apperrors.KindInvalidAmount) && req.Amount.IsZero() {
		stake, err = resolver.Validate(unitStake, opts)
	}
	if err != nil {
		return nil, err
	}

	res, err := games.Replay(resolver, req.ServerSeed, req.ClientSeed, req.Nonce, stake, opts)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to resolve round")
	}
	return &models.VerifyResponse{
		GameID:         resolver.Info().ID,
		ServerSeedHash: fairness.HashServerSeed(req.ServerSeed),
		ClientSeed:     req.ClientSeed,
		Nonce:          req.Nonce,
		Outcome:        res.Outcome,
		Multiplier:     res.Multiplier,
		Payout:         res.Payout,
	}, nil
}

func (ge *GameEngine) Seeds(ctx context.Context, userID int64) (models.FairnessInfo, error) {
	seeds, err := ge.deps.Seeds.Seeds(ctx, userID)
	if err != nil {
		return models.FairnessInfo{}, err
	}
	return seeds.Public(), nil
}

// RotateSeed reveals the active server seed and activates a new pair. It
// takes the player lock so a rotation never lands mid-round.
func (ge *GameEngine) RotateSeed(ctx context.Context, userID int64, clientSeed string) (*models.RotateSeedResponse, error) {
	unlock, err := ge.deps.Locker.Lock(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindInternal, "failed to acquire player lock")
	}
	defer unlock()

	revealed, active, err := ge.deps.Seeds.Rotate(ctx, userID, clientSeed)
	if err != nil {
		return nil, err
	}
	ge.deps.Logger.Info("Seed pair rotated", "user_id", userID, "revealed_nonce", revealed.Nonce)
	return &models.RotateSeedResponse{Revealed: *revealed, Active: active.Public()}, nil
}

func (ge *GameEngine) Balance(ctx context.Context, userID int64, currency string) (*models.BalanceResponse, error) {
	if _, err := ge.Precision(currency); err != nil {
		return nil, err
	}
	balance, err := ge.deps.Ledger.Balance(ctx, userID, currency)
	if err != nil {
		return nil, err
	}
	return &models.BalanceResponse{Currency: currency, Balance: balance}, nil
}

func (ge *GameEngine) Rounds(ctx context.Context, userID int64, limit int) ([]*models.RoundRecord, error) {
	return ge.deps.Rounds.UserRounds(ctx, userID, limit)
}

// Round returns a round owned by userID. Rounds of other players are
// reported as not found.
func (ge *GameEngine) Round(ctx context.Context, userID int64, roundID string) (*models.RoundRecord, error) {
	round, err := ge.deps.Rounds.Round(ctx, roundID)
	if err != nil {
		return nil, err
	}
	if round.UserID != userID {
		return nil, apperrors.New(apperrors.KindRoundNotFound, "round %s not found", roundID)
	}
	return round, nil
}

// Summary returns balances in every configured currency plus active seeds.
func (ge *GameEngine) Summary(ctx context.Context, userID int64, currencies []string) (*models.PlayerSummary, error) {
	summary := &models.PlayerSummary{UserID: userID, Balances: make([]models.BalanceResponse, 0, len(currencies))}
	for _, currency := range currencies {
		b, err := ge.Balance(ctx, userID, currency)
		if err != nil {
			return nil, err
		}
		summary.Balances = append(summary.Balances, *b)
	}
	seeds, err := ge.Seeds(ctx, userID)
	if err != nil {
		return nil, err
	}
	summary.Seeds = seeds
	return summary, nil
}
