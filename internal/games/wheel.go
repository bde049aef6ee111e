package games

import (
	"encoding/json"
	"math"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
)

type WheelRisk string

const (
	RiskLow    WheelRisk = "low"
	RiskMedium WheelRisk = "medium"
	RiskHigh   WheelRisk = "high"
)

const wheelHouseEdge = 0.01

type wheelSegmentDef struct {
	color      string
	multiplier string
	count      int
}

// Each tier has 50 segments returning 0.99 on average.
var wheelTierDefs = map[WheelRisk][]wheelSegmentDef{
	RiskLow: {
		{"red", "0", 11},
		{"green", "1.2", 30},
		{"blue", "1.5", 9},
	},
	RiskMedium: {
		{"red", "0", 24},
		{"green", "1.5", 13},
		{"blue", "2", 10},
		{"purple", "3", 2},
		{"gold", "4", 1},
	},
	RiskHigh: {
		{"red", "0", 49},
		{"gold", "49.5", 1},
	},
}

// WheelSegment is one slot of an expanded wheel.
type WheelSegment struct {
	Color      string          `json:"color"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

var wheelTiers = func() map[WheelRisk][]WheelSegment {
	tiers := make(map[WheelRisk][]WheelSegment, len(wheelTierDefs))
	for risk, defs := range wheelTierDefs {
		var segments []WheelSegment
		for _, d := range defs {
			mult := decimal.RequireFromString(d.multiplier)
			for i := 0; i < d.count; i++ {
				segments = append(segments, WheelSegment{Color: d.color, Multiplier: mult})
			}
		}
		tiers[risk] = segments
	}
	return tiers
}()

// WheelSegments returns a copy of the expanded segment list for a tier.
func WheelSegments(risk WheelRisk) ([]WheelSegment, error) {
	segments, ok := wheelTiers[risk]
	if !ok {
		return nil, apperrors.New(apperrors.KindInvalidOptions, "unknown risk %q, want low, medium or high", risk)
	}
	return append([]WheelSegment(nil), segments...), nil
}

type WheelOptions struct {
	Risk WheelRisk `json:"risk"`
}

func (WheelOptions) game() string { return models.GameWheel }

type WheelOutcome struct {
	Risk          WheelRisk       `json:"risk"`
	SegmentIndex  int             `json:"segment_index"`
	TotalSegments int             `json:"total_segments"`
	Color         string          `json:"color"`
	Multiplier    decimal.Decimal `json:"multiplier"`
}

type Wheel struct{}

func (Wheel) Info() Info {
	return Info{
		ID:        models.GameWheel,
		Name:      "Wheel",
		Category:  CategoryInstant,
		HouseEdge: wheelHouseEdge,
		MinBet:    defaultMinBet,
		MaxBet:    defaultMaxBet,
	}
}

func (Wheel) DecodeOptions(raw json.RawMessage) (Options, error) {
	var opts WheelOptions
	if err := decodeStrict(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (Wheel) Validate(amount decimal.Decimal, o Options) (decimal.Decimal, error) {
	opts, err := optionsAs[WheelOptions](o)
	if err != nil {
		return decimal.Zero, err
	}
	if _, ok := wheelTiers[opts.Risk]; !ok {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOptions, "unknown risk %q, want low, medium or high", opts.Risk)
	}
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (Wheel) FloatCount(Options) int { return 1 }

func (Wheel) Resolve(floats []float64, stake decimal.Decimal, o Options) (*Resolution, error) {
	if err := checkFloats(models.GameWheel, floats, 1); err != nil {
		return nil, err
	}
	opts, err := optionsAs[WheelOptions](o)
	if err != nil {
		return nil, err
	}
	segments, ok := wheelTiers[opts.Risk]
	if !ok {
		return nil, apperrors.New(apperrors.KindInvalidOptions, "unknown risk %q", opts.Risk)
	}

	idx := int(math.Floor(floats[0] * float64(len(segments))))
	if idx >= len(segments) {
		idx = len(segments) - 1
	}
	segment := segments[idx]

	return &Resolution{
		Outcome: WheelOutcome{
			Risk:          opts.Risk,
			SegmentIndex:  idx,
			TotalSegments: len(segments),
			Color:         segment.Color,
			Multiplier:    segment.Multiplier,
		},
		Multiplier: segment.Multiplier,
		Payout:     stake.Mul(segment.Multiplier),
	}, nil
}
