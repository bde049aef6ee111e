package games

import (
	"encoding/json"
	"math"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/apperrors"
	"fair-casino-backend/internal/models"
)

// RouletteBetType names one of the European roulette wagers.
type RouletteBetType string

const (
	BetStraight RouletteBetType = "straight"
	BetSplit    RouletteBetType = "split"
	BetStreet   RouletteBetType = "street"
	BetCorner   RouletteBetType = "corner"
	BetLine     RouletteBetType = "line"
	BetDozen    RouletteBetType = "dozen"
	BetColumn   RouletteBetType = "column"
	BetRed      RouletteBetType = "red"
	BetBlack    RouletteBetType = "black"
	BetOdd      RouletteBetType = "odd"
	BetEven     RouletteBetType = "even"
	BetHigh     RouletteBetType = "high"
	BetLow      RouletteBetType = "low"
)

const (
	roulettePockets  = 37
	rouletteMaxBets  = 64
	rouletteColorRed = "red"
	rouletteColorBlk = "black"
	rouletteColorGrn = "green"
)

type rouletteBetRule struct {
	ratio int64
	// numbers is the count of covered numbers the bet must carry; zero means
	// the bet takes no numbers.
	numbers int
}

var rouletteRules = map[RouletteBetType]rouletteBetRule{
	BetStraight: {ratio: 35, numbers: 1},
	BetSplit:    {ratio: 17, numbers: 2},
	BetStreet:   {ratio: 11, numbers: 3},
	BetCorner:   {ratio: 8, numbers: 4},
	BetLine:     {ratio: 5, numbers: 6},
	BetDozen:    {ratio: 2, numbers: 1},
	BetColumn:   {ratio: 2, numbers: 1},
	BetRed:      {ratio: 1},
	BetBlack:    {ratio: 1},
	BetOdd:      {ratio: 1},
	BetEven:     {ratio: 1},
	BetHigh:     {ratio: 1},
	BetLow:      {ratio: 1},
}

var rouletteRedNumbers = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

type RouletteBet struct {
	Type    RouletteBetType `json:"type"`
	Numbers []int           `json:"numbers,omitempty"`
	Amount  decimal.Decimal `json:"amount"`
}

type RouletteOptions struct {
	Bets []RouletteBet `json:"bets"`
}

func (RouletteOptions) game() string { return models.GameRoulette }

type RouletteBetResult struct {
	Type       RouletteBetType `json:"type"`
	Numbers    []int           `json:"numbers,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Won        bool            `json:"won"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

type RouletteOutcome struct {
	WinningNumber int                 `json:"winning_number"`
	Color         string              `json:"color"`
	Bets          []RouletteBetResult `json:"bets"`
}

// Roulette is single-zero roulette with any mix of inside and outside bets.
type Roulette struct{}

func (Roulette) Info() Info {
	return Info{
		ID:        models.GameRoulette,
		Name:      "Roulette",
		Category:  CategoryTable,
		HouseEdge: 1.0 / roulettePockets,
		MinBet:    defaultMinBet,
		MaxBet:    defaultMaxBet,
	}
}

func (Roulette) DecodeOptions(raw json.RawMessage) (Options, error) {
	var opts RouletteOptions
	if err := decodeStrict(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

// Validate returns the sum of the sub-bet amounts. A non-zero request amount
// must agree with that sum.
func (Roulette) Validate(amount decimal.Decimal, o Options) (decimal.Decimal, error) {
	opts, err := optionsAs[RouletteOptions](o)
	if err != nil {
		return decimal.Zero, err
	}
	if len(opts.Bets) == 0 {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOptions, "at least one bet is required")
	}
	if len(opts.Bets) > rouletteMaxBets {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidOptions, "at most %d bets per spin", rouletteMaxBets)
	}

	stake := decimal.Zero
	for i, bet := range opts.Bets {
		if err := validateRouletteBet(bet); err != nil {
			return decimal.Zero, err
		}
		if !bet.Amount.IsPositive() {
			return decimal.Zero, apperrors.New(apperrors.KindInvalidAmount, "bet %d: amount must be positive", i)
		}
		stake = stake.Add(bet.Amount)
	}

	if !amount.IsZero() && !amount.Equal(stake) {
		return decimal.Zero, apperrors.New(apperrors.KindInvalidAmount,
			"amount %s does not match the sum of bets %s", amount, stake)
	}
	return stake, nil
}

func validateRouletteBet(bet RouletteBet) error {
	rule, ok := rouletteRules[bet.Type]
	if !ok {
		return apperrors.New(apperrors.KindInvalidBetType, "unknown bet type %q", bet.Type)
	}
	if len(bet.Numbers) != rule.numbers {
		return apperrors.New(apperrors.KindInvalidOptions,
			"%s bet takes %d numbers, got %d", bet.Type, rule.numbers, len(bet.Numbers))
	}

	switch bet.Type {
	case BetDozen, BetColumn:
		if n := bet.Numbers[0]; n < 1 || n > 3 {
			return apperrors.New(apperrors.KindOutOfRange, "%s must be 1, 2 or 3, got %d", bet.Type, n)
		}
		return nil
	}

	for _, n := range bet.Numbers {
		if n < 0 || n >= roulettePockets {
			return apperrors.New(apperrors.KindOutOfRange, "number %d is outside 0-36", n)
		}
	}
	if dups := lo.FindDuplicates(bet.Numbers); len(dups) > 0 {
		return apperrors.New(apperrors.KindDuplicatePicks, "%s bet repeats number %d", bet.Type, dups[0])
	}
	return nil
}

func (Roulette) FloatCount(Options) int { return 1 }

func (Roulette) Resolve(floats []float64, stake decimal.Decimal, o Options) (*Resolution, error) {
	if err := checkFloats(models.GameRoulette, floats, 1); err != nil {
		return nil, err
	}
	opts, err := optionsAs[RouletteOptions](o)
	if err != nil {
		return nil, err
	}

	winning := int(math.Floor(floats[0] * roulettePockets))
	outcome := RouletteOutcome{
		WinningNumber: winning,
		Color:         RouletteColor(winning),
		Bets:          make([]RouletteBetResult, 0, len(opts.Bets)),
	}

	payout := decimal.Zero
	for _, bet := range opts.Bets {
		result := RouletteBetResult{
			Type:       bet.Type,
			Numbers:    bet.Numbers,
			Amount:     bet.Amount,
			Multiplier: decimal.Zero,
			Payout:     decimal.Zero,
		}
		if rouletteBetWins(bet, winning) {
			result.Won = true
			result.Multiplier = decimal.NewFromInt(rouletteRules[bet.Type].ratio + 1)
			result.Payout = bet.Amount.Mul(result.Multiplier)
			payout = payout.Add(result.Payout)
		}
		outcome.Bets = append(outcome.Bets, result)
	}

	multiplier := decimal.Zero
	if stake.IsPositive() {
		multiplier = payout.DivRound(stake, multiplierPrecision)
	}
	return &Resolution{Outcome: outcome, Multiplier: multiplier, Payout: payout}, nil
}

// RouletteColor returns red, black or green for a pocket.
func RouletteColor(n int) string {
	switch {
	case n == 0:
		return rouletteColorGrn
	case rouletteRedNumbers[n]:
		return rouletteColorRed
	default:
		return rouletteColorBlk
	}
}

func rouletteBetWins(bet RouletteBet, n int) bool {
	switch bet.Type {
	case BetStraight, BetSplit, BetStreet, BetCorner, BetLine:
		return lo.Contains(bet.Numbers, n)
	case BetDozen:
		return n != 0 && (n-1)/12+1 == bet.Numbers[0]
	case BetColumn:
		return n != 0 && n%3 == bet.Numbers[0]%3
	case BetRed:
		return RouletteColor(n) == rouletteColorRed
	case BetBlack:
		return RouletteColor(n) == rouletteColorBlk
	case BetOdd:
		return n != 0 && n%2 == 1
	case BetEven:
		return n != 0 && n%2 == 0
	case BetHigh:
		return n >= 19
	case BetLow:
		return n >= 1 && n <= 18
	}
	return false
}
