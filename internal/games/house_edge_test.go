package games

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertRat(t *testing.T, want *big.Rat, got *big.Rat, msg string) {
	t.Helper()
	assert.Zero(t, want.Cmp(got), "%s: want %s, got %s", msg, want.RatString(), got.RatString())
}

func assertHouseEdge(t *testing.T, r Resolver, expected *big.Rat) {
	t.Helper()
	edge, _ := new(big.Rat).Sub(big.NewRat(1, 1), expected).Float64()
	assert.InDelta(t, edge, r.Info().HouseEdge, 1e-12, r.Info().ID)
}

func TestRouletteHouseEdge(t *testing.T) {
	bets := []RouletteBet{
		{Type: BetStraight, Numbers: []int{17}},
		{Type: BetStraight, Numbers: []int{0}},
		{Type: BetSplit, Numbers: []int{1, 2}},
		{Type: BetStreet, Numbers: []int{1, 2, 3}},
		{Type: BetCorner, Numbers: []int{1, 2, 4, 5}},
		{Type: BetLine, Numbers: []int{1, 2, 3, 4, 5, 6}},
		{Type: BetDozen, Numbers: []int{1}},
		{Type: BetDozen, Numbers: []int{3}},
		{Type: BetColumn, Numbers: []int{1}},
		{Type: BetColumn, Numbers: []int{3}},
		{Type: BetRed}, {Type: BetBlack}, {Type: BetOdd},
		{Type: BetEven}, {Type: BetHigh}, {Type: BetLow},
	}
	want := big.NewRat(36, 37)

	for _, bet := range bets {
		bet.Amount = decimal.NewFromInt(1)
		opts := RouletteOptions{Bets: []RouletteBet{bet}}

		total := new(big.Rat)
		for n := 0; n < roulettePockets; n++ {
			res, err := Roulette{}.Resolve([]float64{pocket(n)}, bet.Amount, opts)
			require.NoError(t, err)
			require.Equal(t, n, res.Outcome.(RouletteOutcome).WinningNumber)
			total.Add(total, res.Multiplier.Rat())
		}
		total.Quo(total, big.NewRat(roulettePockets, 1))
		assertRat(t, want, total, string(bet.Type))
	}
	assertHouseEdge(t, Roulette{}, want)
}

func TestSlotsHouseEdge(t *testing.T) {
	total := new(big.Rat)
	for _, a := range slotSymbols {
		for _, b := range slotSymbols {
			for _, c := range slotSymbols {
				_, _, mult := evaluatePayline(a.symbol, b.symbol, c.symbol)
				weight := big.NewRat(int64(a.weight*b.weight*c.weight), 1)
				total.Add(total, new(big.Rat).Mul(weight, mult.Rat()))
			}
		}
	}
	cube := int64(slotsTotalWeight * slotsTotalWeight * slotsTotalWeight)
	total.Quo(total, big.NewRat(cube, 1))

	// Every payline sees the same distribution, so the round expectation
	// equals the line expectation.
	want := big.NewRat(24, 25)
	assertRat(t, want, total, "slots line")
	assertHouseEdge(t, Slots{}, want)
}

func TestKenoHouseEdge(t *testing.T) {
	want := big.NewRat(9, 10)
	draws := new(big.Int).Binomial(KenoNumbers, KenoDrawCount)

	for picks := KenoMinPicks; picks <= KenoMaxPicks; picks++ {
		row := kenoTable[picks]
		require.Len(t, row, picks+1, "row %d", picks)

		total := new(big.Rat)
		for hits := 0; hits <= picks; hits++ {
			ways := new(big.Int).Mul(
				new(big.Int).Binomial(int64(picks), int64(hits)),
				new(big.Int).Binomial(int64(KenoNumbers-picks), int64(KenoDrawCount-hits)),
			)
			p := new(big.Rat).SetFrac(ways, draws)
			total.Add(total, new(big.Rat).Mul(p, row[hits].Rat()))
		}
		assertRat(t, want, total, "keno row")
	}
	assertHouseEdge(t, Keno{}, want)
}

func TestKenoTableLookup(t *testing.T) {
	assertDecimal(t, "3", KenoMultiplier(5, 3))
	assertDecimal(t, "0", KenoMultiplier(5, 0))
	assertDecimal(t, "0", KenoMultiplier(11, 1))
	assertDecimal(t, "0", KenoMultiplier(3, 4))
}

func TestWheelHouseEdge(t *testing.T) {
	want := big.NewRat(99, 100)
	for _, risk := range []WheelRisk{RiskLow, RiskMedium, RiskHigh} {
		segments, err := WheelSegments(risk)
		require.NoError(t, err)

		total := new(big.Rat)
		for _, s := range segments {
			total.Add(total, s.Multiplier.Rat())
		}
		total.Quo(total, big.NewRat(int64(len(segments)), 1))
		assertRat(t, want, total, string(risk))
	}
	assertHouseEdge(t, Wheel{}, want)
}

func TestCoinFlipHouseEdge(t *testing.T) {
	want := new(big.Rat).Mul(big.NewRat(1, 2), coinFlipMultiplier.Rat())
	assertRat(t, big.NewRat(99, 100), want, "coinflip")
	assertHouseEdge(t, CoinFlip{}, want)
}
