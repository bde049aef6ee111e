package games

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fair-casino-backend/internal/apperrors"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}

// pocket returns a float that lands on roulette number n.
func pocket(n int) float64 {
	return (float64(n) + 0.5) / roulettePockets
}

// symbolFloat returns a float that draws the given slot symbol.
func symbolFloat(t *testing.T, s Symbol) float64 {
	t.Helper()
	lo := 0
	for _, sym := range slotSymbols {
		if sym.symbol == s {
			return (float64(lo) + 0.5) / float64(slotsTotalWeight)
		}
		lo += sym.weight
	}
	t.Fatalf("unknown symbol %s", s)
	return 0
}

func mustDecode(t *testing.T, r Resolver, amount string, raw string) (Options, decimal.Decimal) {
	t.Helper()
	opts, stake, err := DecodeAndValidate(r, dec(amount), json.RawMessage(raw))
	require.NoError(t, err)
	return opts, stake
}

func TestRouletteStraightWin(t *testing.T) {
	r := Roulette{}
	opts, stake := mustDecode(t, r, "10", `{"bets":[{"type":"straight","numbers":[17],"amount":"10"}]}`)
	assertDecimal(t, "10", stake)

	res, err := r.Resolve([]float64{pocket(17)}, stake, opts)
	require.NoError(t, err)

	outcome := res.Outcome.(RouletteOutcome)
	assert.Equal(t, 17, outcome.WinningNumber)
	assert.Equal(t, "black", outcome.Color)
	assertDecimal(t, "360", res.Payout)
	assertDecimal(t, "36", res.Multiplier)
	require.Len(t, outcome.Bets, 1)
	assert.True(t, outcome.Bets[0].Won)
}

func TestRouletteRedLosesOnZero(t *testing.T) {
	r := Roulette{}
	opts, stake := mustDecode(t, r, "10", `{"bets":[{"type":"red","amount":"10"}]}`)

	res, err := r.Resolve([]float64{pocket(0)}, stake, opts)
	require.NoError(t, err)

	outcome := res.Outcome.(RouletteOutcome)
	assert.Equal(t, 0, outcome.WinningNumber)
	assert.Equal(t, "green", outcome.Color)
	assertDecimal(t, "0", res.Payout)
	assertDecimal(t, "0", res.Multiplier)
}

func TestRouletteMultiBetAggregate(t *testing.T) {
	r := Roulette{}
	opts, stake := mustDecode(t, r, "0", `{"bets":[
		{"type":"straight","numbers":[14],"amount":"1"},
		{"type":"dozen","numbers":[2],"amount":"2"},
		{"type":"column","numbers":[2],"amount":"3"},
		{"type":"odd","amount":"4"}
	]}`)
	assertDecimal(t, "10", stake)

	res, err := r.Resolve([]float64{pocket(14)}, stake, opts)
	require.NoError(t, err)

	// 14: straight 36, dozen 2 pays 3x, column 2 (14 % 3 == 2) pays 3x, odd loses
	assertDecimal(t, "51", res.Payout)
	assertDecimal(t, "5.1", res.Multiplier)

	outcome := res.Outcome.(RouletteOutcome)
	won := []bool{}
	for _, b := range outcome.Bets {
		won = append(won, b.Won)
	}
	assert.Equal(t, []bool{true, true, true, false}, won)
}

func TestRouletteValidation(t *testing.T) {
	cases := []struct {
		name   string
		amount string
		raw    string
		kind   apperrors.Kind
	}{
		{"no bets", "1", `{"bets":[]}`, apperrors.KindInvalidOptions},
		{"unknown type", "1", `{"bets":[{"type":"banana","amount":"1"}]}`, apperrors.KindInvalidBetType},
		{"wrong count", "1", `{"bets":[{"type":"split","numbers":[1],"amount":"1"}]}`, apperrors.KindInvalidOptions},
		{"number out of range", "1", `{"bets":[{"type":"straight","numbers":[37],"amount":"1"}]}`, apperrors.KindOutOfRange},
		{"negative number", "1", `{"bets":[{"type":"straight","numbers":[-1],"amount":"1"}]}`, apperrors.KindOutOfRange},
		{"dozen out of range", "1", `{"bets":[{"type":"dozen","numbers":[4],"amount":"1"}]}`, apperrors.KindOutOfRange},
		{"repeated number", "1", `{"bets":[{"type":"split","numbers":[5,5],"amount":"1"}]}`, apperrors.KindDuplicatePicks},
		{"zero sub-bet", "0", `{"bets":[{"type":"red","amount":"0"}]}`, apperrors.KindInvalidAmount},
		{"amount mismatch", "5", `{"bets":[{"type":"red","amount":"1"}]}`, apperrors.KindInvalidAmount},
		{"unknown field", "1", `{"bets":[],"extra":1}`, apperrors.KindInvalidOptions},
		{"outside bet with numbers", "1", `{"bets":[{"type":"red","numbers":[1],"amount":"1"}]}`, apperrors.KindInvalidOptions},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeAndValidate(Roulette{}, dec(tc.amount), json.RawMessage(tc.raw))
			require.Error(t, err)
			assert.Equal(t, tc.kind, apperrors.KindOf(err))
		})
	}
}

func TestRouletteColor(t *testing.T) {
	assert.Equal(t, "green", RouletteColor(0))
	assert.Equal(t, "red", RouletteColor(1))
	assert.Equal(t, "black", RouletteColor(2))
	assert.Equal(t, "red", RouletteColor(36))
}

func TestSlotsAllWildTopLine(t *testing.T) {
	s := Slots{}
	opts, stake := mustDecode(t, s, "10", ``)

	floats := []float64{
		symbolFloat(t, SymbolWild), symbolFloat(t, SymbolWild), symbolFloat(t, SymbolWild),
		symbolFloat(t, SymbolCherry), symbolFloat(t, SymbolLemon), symbolFloat(t, SymbolOrange),
		symbolFloat(t, SymbolPlum), symbolFloat(t, SymbolBell), symbolFloat(t, SymbolBar),
	}
	res, err := s.Resolve(floats, stake, opts)
	require.NoError(t, err)

	outcome := res.Outcome.(SlotsOutcome)
	assert.Equal(t, [3]Symbol{SymbolWild, SymbolWild, SymbolWild}, outcome.Grid[0])
	require.Len(t, outcome.Lines, 5)

	top := outcome.Lines[0]
	assert.Equal(t, MatchThree, top.Match)
	assert.Equal(t, SymbolWild, top.Symbol)
	assertDecimal(t, "260.32", top.Multiplier)
	assertDecimal(t, "520.64", top.Payout)

	assert.Equal(t, MatchNone, outcome.Lines[1].Match)
	assert.Equal(t, MatchNone, outcome.Lines[2].Match)

	// wild, lemon, bar: best pair is bar
	assert.Equal(t, MatchTwo, outcome.Lines[3].Match)
	assert.Equal(t, SymbolBar, outcome.Lines[3].Symbol)
	assertDecimal(t, "8", outcome.Lines[3].Multiplier)

	// plum, lemon, wild: best pair is plum
	assert.Equal(t, SymbolPlum, outcome.Lines[4].Symbol)
	assertDecimal(t, "2", outcome.Lines[4].Multiplier)

	assertDecimal(t, "54.064", res.Multiplier)
	assertDecimal(t, "540.64", res.Payout)
}

func TestEvaluatePayline(t *testing.T) {
	cases := []struct {
		a, b, c Symbol
		match   string
		symbol  Symbol
		mult    string
	}{
		{SymbolSeven, SymbolSeven, SymbolSeven, MatchThree, SymbolSeven, "100"},
		{SymbolWild, SymbolWild, SymbolBell, MatchThree, SymbolBell, "15"},
		{SymbolBar, SymbolWild, SymbolBar, MatchThree, SymbolBar, "40"},
		{SymbolCherry, SymbolCherry, SymbolLemon, MatchTwo, SymbolCherry, "0.3"},
		{SymbolCherry, SymbolLemon, SymbolLemon, MatchTwo, SymbolLemon, "0.5"},
		{SymbolCherry, SymbolWild, SymbolSeven, MatchTwo, SymbolSeven, "20"},
		{SymbolCherry, SymbolLemon, SymbolOrange, MatchNone, "", "0"},
	}
	for _, tc := range cases {
		match, symbol, mult := evaluatePayline(tc.a, tc.b, tc.c)
		assert.Equal(t, tc.match, match, "%s %s %s", tc.a, tc.b, tc.c)
		assert.Equal(t, tc.symbol, symbol, "%s %s %s", tc.a, tc.b, tc.c)
		assertDecimal(t, tc.mult, mult)
	}
}

func TestSlotsRejectsOptions(t *testing.T) {
	_, _, err := DecodeAndValidate(Slots{}, dec("1"), json.RawMessage(`{"lines":3}`))
	assert.Equal(t, apperrors.KindInvalidOptions, apperrors.KindOf(err))

	_, _, err = DecodeAndValidate(Slots{}, dec("0"), nil)
	assert.Equal(t, apperrors.KindInvalidAmount, apperrors.KindOf(err))
}

func TestKenoDuplicatePicks(t *testing.T) {
	_, _, err := DecodeAndValidate(Keno{}, dec("1"), json.RawMessage(`{"picks":[3,3]}`))
	require.Error(t, err)
	assert.Equal(t, apperrors.KindDuplicatePicks, apperrors.KindOf(err))
}

func TestKenoValidation(t *testing.T) {
	cases := map[string]struct {
		raw  string
		kind apperrors.Kind
	}{
		"no picks":       {`{"picks":[]}`, apperrors.KindInvalidOptions},
		"missing picks":  {`{}`, apperrors.KindInvalidOptions},
		"too many picks": {`{"picks":[1,2,3,4,5,6,7,8,9,10,11]}`, apperrors.KindInvalidOptions},
		"zero pick":      {`{"picks":[0]}`, apperrors.KindOutOfRange},
		"pick above 40":  {`{"picks":[41]}`, apperrors.KindOutOfRange},
		"malformed":      {`{"picks":"1,2"}`, apperrors.KindInvalidOptions},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := DecodeAndValidate(Keno{}, dec("1"), json.RawMessage(tc.raw))
			assert.Equal(t, tc.kind, apperrors.KindOf(err))
		})
	}
}

func TestKenoThreeHitsOnFivePicks(t *testing.T) {
	k := Keno{}
	opts, stake := mustDecode(t, k, "2", `{"picks":[1,2,3,20,30]}`)

	// zero floats always take the head of the pool: 1..10
	res, err := k.Resolve(make([]float64, KenoDrawCount), stake, opts)
	require.NoError(t, err)

	outcome := res.Outcome.(KenoOutcome)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, outcome.Drawn)
	assert.Equal(t, []int{1, 2, 3}, outcome.Matches)
	assert.Equal(t, 3, outcome.Hits)
	assertDecimal(t, "3", res.Multiplier)
	assertDecimal(t, "6", res.Payout)
}

func TestKenoDrawSplicesPool(t *testing.T) {
	floats := make([]float64, KenoDrawCount)
	floats[0] = 0.999999 // last of 40
	floats[1] = 0.999999 // last of the remaining 39
	drawn := drawKeno(floats)
	assert.Equal(t, []int{40, 39, 1, 2, 3, 4, 5, 6, 7, 8}, drawn)
}

func TestWheelHighRiskRedSegment(t *testing.T) {
	w := Wheel{}
	opts, stake := mustDecode(t, w, "10", `{"risk":"high"}`)

	res, err := w.Resolve([]float64{0.1}, stake, opts)
	require.NoError(t, err)

	outcome := res.Outcome.(WheelOutcome)
	assert.Equal(t, 5, outcome.SegmentIndex)
	assert.Equal(t, 50, outcome.TotalSegments)
	assert.Equal(t, "red", outcome.Color)
	assertDecimal(t, "0", res.Payout)
	assertDecimal(t, "-10", res.Payout.Sub(stake))
}

func TestWheelHighRiskJackpot(t *testing.T) {
	w := Wheel{}
	opts, stake := mustDecode(t, w, "2", `{"risk":"high"}`)

	res, err := w.Resolve([]float64{0.99}, stake, opts)
	require.NoError(t, err)
	assert.Equal(t, "gold", res.Outcome.(WheelOutcome).Color)
	assertDecimal(t, "99", res.Payout)
}

func TestWheelSegments(t *testing.T) {
	for _, risk := range []WheelRisk{RiskLow, RiskMedium, RiskHigh} {
		segments, err := WheelSegments(risk)
		require.NoError(t, err)
		assert.Len(t, segments, 50, risk)
	}
	_, err := WheelSegments("extreme")
	assert.Equal(t, apperrors.KindInvalidOptions, apperrors.KindOf(err))

	_, _, err = DecodeAndValidate(Wheel{}, dec("1"), json.RawMessage(`{"risk":"extreme"}`))
	assert.Equal(t, apperrors.KindInvalidOptions, apperrors.KindOf(err))
}

func TestCoinFlip(t *testing.T) {
	c := CoinFlip{}
	opts, stake := mustDecode(t, c, "5", `{"side":"heads"}`)

	res, err := c.Resolve([]float64{0.25}, stake, opts)
	require.NoError(t, err)
	assert.True(t, res.Outcome.(CoinFlipOutcome).Won)
	assertDecimal(t, "9.9", res.Payout)

	res, err = c.Resolve([]float64{0.5}, stake, opts)
	require.NoError(t, err)
	assert.Equal(t, SideTails, res.Outcome.(CoinFlipOutcome).Result)
	assertDecimal(t, "0", res.Payout)

	_, _, err = DecodeAndValidate(c, dec("5"), json.RawMessage(`{"side":"edge"}`))
	assert.Equal(t, apperrors.KindInvalidOptions, apperrors.KindOf(err))
}

func TestResolveRejectsForeignOptions(t *testing.T) {
	_, err := Keno{}.Resolve(make([]float64, KenoDrawCount), dec("1"), WheelOptions{Risk: RiskLow})
	assert.Equal(t, apperrors.KindInvalidOptions, apperrors.KindOf(err))
}

func TestResolveRequiresEnoughFloats(t *testing.T) {
	_, err := Slots{}.Resolve([]float64{0.1}, dec("1"), SlotsOptions{})
	assert.Error(t, err)
}

var replayCases = []struct {
	resolver Resolver
	amount   string
	options  string
}{
	{Roulette{}, "3", `{"bets":[{"type":"red","amount":"1"},{"type":"corner","numbers":[1,2,4,5],"amount":"2"}]}`},
	{Slots{}, "1", `{}`},
	{Keno{}, "1", `{"picks":[5,10,15,20,25,30,35,40]}`},
	{Wheel{}, "1", `{"risk":"medium"}`},
	{CoinFlip{}, "1", `{"side":"tails"}`},
}

func TestReplayDeterministic(t *testing.T) {
	for _, tc := range replayCases {
		id := tc.resolver.Info().ID
		opts, stake := mustDecode(t, tc.resolver, tc.amount, tc.options)

		a, err := Replay(tc.resolver, "server-seed", "client-seed", 7, stake, opts)
		require.NoError(t, err, id)
		b, err := Replay(tc.resolver, "server-seed", "client-seed", 7, stake, opts)
		require.NoError(t, err, id)

		assert.Equal(t, a.Outcome, b.Outcome, id)
		assert.True(t, a.Payout.Equal(b.Payout), id)
	}
}

func TestReplayRouletteGoldenVector(t *testing.T) {
	opts, stake := mustDecode(t, Roulette{}, "1", `{"bets":[{"type":"straight","numbers":[24],"amount":"1"}]}`)
	res, err := Replay(Roulette{}, "server-seed", "client-seed", 1, stake, opts)
	require.NoError(t, err)
	assert.Equal(t, 24, res.Outcome.(RouletteOutcome).WinningNumber)
	assertDecimal(t, "36", res.Payout)
}

func TestRangeInvariants(t *testing.T) {
	kenoOpts, _ := mustDecode(t, Keno{}, "1", `{"picks":[1,2,3]}`)
	symbols := map[Symbol]bool{}
	for _, s := range slotSymbols {
		symbols[s.symbol] = true
	}

	for nonce := int64(0); nonce < 250; nonce++ {
		res, err := Replay(Roulette{}, "range", "client", nonce, dec("1"),
			RouletteOptions{Bets: []RouletteBet{{Type: BetRed, Amount: dec("1")}}})
		require.NoError(t, err)
		n := res.Outcome.(RouletteOutcome).WinningNumber
		require.True(t, n >= 0 && n <= 36, "winning number %d", n)

		res, err = Replay(Keno{}, "range", "client", nonce, dec("1"), kenoOpts)
		require.NoError(t, err)
		drawn := res.Outcome.(KenoOutcome).Drawn
		require.Len(t, drawn, KenoDrawCount)
		seen := map[int]bool{}
		for _, d := range drawn {
			require.True(t, d >= 1 && d <= KenoNumbers, "drawn %d", d)
			require.False(t, seen[d], "drawn %d twice", d)
			seen[d] = true
		}

		for _, risk := range []WheelRisk{RiskLow, RiskMedium, RiskHigh} {
			res, err = Replay(Wheel{}, "range", "client", nonce, dec("1"), WheelOptions{Risk: risk})
			require.NoError(t, err)
			outcome := res.Outcome.(WheelOutcome)
			require.True(t, outcome.SegmentIndex >= 0 && outcome.SegmentIndex < outcome.TotalSegments)
		}

		res, err = Replay(Slots{}, "range", "client", nonce, dec("1"), SlotsOptions{})
		require.NoError(t, err)
		grid := res.Outcome.(SlotsOutcome).Grid
		count := 0
		for _, row := range grid {
			for _, s := range row {
				require.True(t, symbols[s], "symbol %q", s)
				count++
			}
		}
		require.Equal(t, 9, count)
		require.False(t, res.Payout.IsNegative())
		require.True(t, res.Payout.Equal(res.Multiplier.Mul(dec("1"))))
	}
}
