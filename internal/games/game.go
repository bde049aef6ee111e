// Package games holds the provably fair game resolvers. A resolver is pure:
// given fairness floats, a stake and typed options it returns the outcome and
// payout. Balance movement and persistence belong to the services package.
package games

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/fairness"
	"fair-casino-backend/internal/models"
)

const (
	CategoryTable   = "table"
	CategorySlots   = "slots"
	CategoryLottery = "lottery"
	CategoryInstant = "instant"
)

// multiplierPrecision is the number of decimal places kept when an aggregate
// multiplier is derived by division.
const multiplierPrecision = 8

var (
	defaultMinBet = decimal.RequireFromString("0.01")
	defaultMaxBet = decimal.NewFromInt(1000)
)

// Info is the static description of a game.
type Info struct {
	ID        string
	Name      string
	Category  string
	HouseEdge float64
	MinBet    decimal.Decimal
	MaxBet    decimal.Decimal
}

// GameInfo converts to the catalog representation.
func (i Info) GameInfo() models.GameInfo {
	return models.GameInfo{
		Name:      i.Name,
		GameID:    i.ID,
		HouseEdge: i.HouseEdge,
		MinBet:    i.MinBet,
		MaxBet:    i.MaxBet,
		Category:  i.Category,
	}
}

// Options is the typed bet payload of one game. Each game has exactly one
// implementation; the unexported method keeps the set closed.
type Options interface {
	game() string
}

// Resolution is the result of resolving one round.
type Resolution struct {
	Outcome    any
	Multiplier decimal.Decimal
	// Payout is exact; the caller truncates it to the currency precision.
	Payout decimal.Decimal
}

// Resolver is implemented by every game.
type Resolver interface {
	Info() Info
	// DecodeOptions turns the wire payload into the game's typed options.
	DecodeOptions(raw json.RawMessage) (Options, error)
	// Validate checks the options and returns the total stake of the bet.
	Validate(amount decimal.Decimal, opts Options) (decimal.Decimal, error)
	// FloatCount is the number of fairness values one round consumes.
	FloatCount(opts Options) int
	Resolve(floats []float64, stake decimal.Decimal, opts Options) (*Resolution, error)
}

// Replay recomputes a round from its seeds. Live play and third-party
// verification both go through here.
func Replay(r Resolver, serverSeed, clientSeed string, nonce int64, stake decimal.Decimal, opts Options) (*Resolution, error) {
	floats := fairness.NextValues(serverSeed, clientSeed, nonce, r.FloatCount(opts))
	return r.Resolve(floats, stake, opts)
}

// DecodeAndValidate decodes raw options and validates them against amount.
func DecodeAndValidate(r Resolver, amount decimal.Decimal, raw json.RawMessage) (Options, decimal.Decimal, error) {
	opts, err := r.DecodeOptions(raw)
	if err != nil {
		return nil, decimal.Zero, err
	}
	stake, err := r.Validate(amount, opts)
	if err != nil {
		return nil, decimal.Zero, err
	}
	return opts, stake, nil
}

func optionsAs[T Options](opts Options) (T, error) {
	typed, ok := opts.(T)
	if !ok {
		var zero T
		return zero, apperrors.New(apperrors.KindInvalidOptions, "options of type %T do not belong to %s", opts, zero.game())
	}
	return typed, nil
}

// decodeStrict unmarshals raw into dst, rejecting unknown fields. An empty
// payload leaves dst untouched.
func decodeStrict(raw json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.Wrap(err, apperrors.KindInvalidOptions, fmt.Sprintf("malformed options: %v", err))
	}
	return nil
}

// requirePositive rejects zero or negative stakes.
func requirePositive(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.New(apperrors.KindInvalidAmount, "amount must be positive")
	}
	return nil
}

func checkFloats(game string, floats []float64, want int) error {
	if len(floats) < want {
		return fmt.Errorf("%s requires %d floats, got %d", game, want, len(floats))
	}
	return nil
}
