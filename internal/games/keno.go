package games

import (
	"encoding/json"
	"math"
	"slices"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
)

type KenoOptions struct {
	Picks []int `json:"picks"`
}

func (KenoOptions) game() string { return models.GameKeno }

type KenoOutcome struct {
	Picks      []int           `json:"picks"`
	Drawn      []int           `json:"drawn"`
	Matches    []int           `json:"matches"`
	Hits       int             `json:"hits"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Keno draws 10 of 40 numbers without replacement.
type Keno struct{}

func (Keno) Info() Info {
	return Info{
		ID:        models.GameKeno,
		Name:      "Keno",
		Category:  CategoryLottery,
		HouseEdge: kenoHouseEdge,
		MinBet:    defaultMinBet,
		MaxBet:    defaultMaxBet,
	}
}

func (Keno) DecodeOptions(raw json.RawMessage) (Options, error) {
	var opts KenoOptions
	if err := decodeStrict(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (Keno) Validate(amount decimal.Decimal, o Options) (decimal.Decimal, error) {
	opts, err := optionsAs[KenoOptions](o)
	if err != nil {
		return decimal.Zero, err
	}
	if len(opts.Picks) < KenoMinPicks || len(opts.Picks) > KenoMaxPicks {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOptions,
			"pick between %d and %d numbers, got %d", KenoMinPicks, KenoMaxPicks, len(opts.Picks))
	}
	if dups := lo.FindDuplicates(opts.Picks); len(dups) > 0 {
		return decimal.Zero, apperrors.New(apperrors.KindDuplicatePicks, "number %d picked more than once", dups[0])
	}
	for _, p := range opts.Picks {
		if p < 1 || p > KenoNumbers {
			return decimal.Zero, apperrors.New(apperrors.KindOutOfRange, "pick %d is outside 1-%d", p, KenoNumbers)
		}
	}
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (Keno) FloatCount(Options) int { return KenoDrawCount }

func (Keno) Resolve(floats []float64, stake decimal.Decimal, o Options) (*Resolution, error) {
	if err := checkFloats(models.GameKeno, floats, KenoDrawCount); err != nil {
		return nil, err
	}
	opts, err := optionsAs[KenoOptions](o)
	if err != nil {
		return nil, err
	}

	drawn := drawKeno(floats[:KenoDrawCount])
	matches := lo.Intersect(opts.Picks, drawn)
	slices.Sort(matches)
	multiplier := KenoMultiplier(len(opts.Picks), len(matches))

	return &Resolution{
		Outcome: KenoOutcome{
			Picks:      opts.Picks,
			Drawn:      drawn,
			Matches:    matches,
			Hits:       len(matches),
			Multiplier: multiplier,
		},
		Multiplier: multiplier,
		Payout:     stake.Mul(multiplier),
	}, nil
}

// drawKeno selects one number per float from the shrinking pool 1..40.
// Removal keeps pool order so a verifier can reproduce it with a splice.
func drawKeno(floats []float64) []int {
	pool := make([]int, KenoNumbers)
	for i := range pool {
		pool[i] = i + 1
	}

	drawn := make([]int, 0, len(floats))
	for _, f := range floats {
		idx := int(math.Floor(f * float64(len(pool))))
		if idx >= len(pool) {
			idx = len(pool) - 1
		}
		drawn = append(drawn, pool[idx])
		pool = slices.Delete(pool, idx, idx+1)
	}
	return drawn
}
