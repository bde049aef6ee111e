package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
)

type CoinSide string

const (
	SideHeads CoinSide = "heads"
	SideTails CoinSide = "tails"
)

var coinFlipMultiplier = decimal.RequireFromString("1.98")

type CoinFlipOptions struct {
	Side CoinSide `json:"side"`
}

func (CoinFlipOptions) game() string { return models.GameCoinFlip }

type CoinFlipOutcome struct {
	Call   CoinSide `json:"call"`
	Result CoinSide `json:"result"`
	Won    bool     `json:"won"`
}

type CoinFlip struct{}

func (CoinFlip) Info() Info {
	return Info{
		ID:        models.GameCoinFlip,
		Name:      "Coin Flip",
		Category:  CategoryInstant,
		HouseEdge: 0.01,
		MinBet:    defaultMinBet,
		MaxBet:    defaultMaxBet,
	}
}

func (CoinFlip) DecodeOptions(raw json.RawMessage) (Options, error) {
	var opts CoinFlipOptions
	if err := decodeStrict(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (CoinFlip) Validate(amount decimal.Decimal, o Options) (decimal.Decimal, error) {
	opts, err := optionsAs[CoinFlipOptions](o)
	if err != nil {
		return decimal.Zero, err
	}
	if opts.Side != SideHeads && opts.Side != SideTails {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOptions, "side must be heads or tails, got %q", opts.Side)
	}
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (CoinFlip) FloatCount(Options) int { return 1 }

func (CoinFlip) Resolve(floats []float64, stake decimal.Decimal, o Options) (*Resolution, error) {
	if err := checkFloats(models.GameCoinFlip, floats, 1); err != nil {
		return nil, err
	}
	opts, err := optionsAs[CoinFlipOptions](o)
	if err != nil {
		return nil, err
	}

	result := SideTails
	if floats[0] < 0.5 {
		result = SideHeads
	}
	outcome := CoinFlipOutcome{Call: opts.Side, Result: result, Won: result == opts.Side}

	multiplier := decimal.Zero
	if outcome.Won {
		multiplier = coinFlipMultiplier
	}
	return &Resolution{Outcome: outcome, Multiplier: multiplier, Payout: stake.Mul(multiplier)}, nil
}
