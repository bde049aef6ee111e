package games

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"fair-casino-backend/internal/models"
)

type Symbol string

const (
	SymbolCherry Symbol = "cherry"
	SymbolLemon  Symbol = "lemon"
	SymbolOrange Symbol = "orange"
	SymbolPlum   Symbol = "plum"
	SymbolBell   Symbol = "bell"
	SymbolBar    Symbol = "bar"
	SymbolSeven  Symbol = "seven"
	SymbolWild   Symbol = "wild"
)

const (
	slotsRows  = 3
	slotsCols  = 3
	slotsCells = slotsRows * slotsCols
)

const (
	MatchThree = "three_of_a_kind"
	MatchTwo   = "two_of_a_kind"
	MatchNone  = "none"
)

type slotSymbol struct {
	symbol Symbol
	weight int
	// three-of-a-kind line multiplier
	multiplier decimal.Decimal
}

// The wild multiplier balances the table: it is the only entry reached solely
// by the all-wild line, so it pins the expected line multiplier to 0.96.
var slotSymbols = []slotSymbol{
	{SymbolCherry, 9, decimal.RequireFromString("1.5")},
	{SymbolLemon, 7, decimal.RequireFromString("2.5")},
	{SymbolOrange, 6, decimal.RequireFromString("5")},
	{SymbolPlum, 4, decimal.RequireFromString("10")},
	{SymbolBell, 3, decimal.RequireFromString("15")},
	{SymbolBar, 2, decimal.RequireFromString("40")},
	{SymbolSeven, 1, decimal.RequireFromString("100")},
	{SymbolWild, 1, decimal.RequireFromString("260.32")},
}

var (
	slotsTwoOfAKindRatio = decimal.RequireFromString("0.2")
	slotsHouseEdge       = 0.04
	slotsTotalWeight     = func() int {
		total := 0
		for _, s := range slotSymbols {
			total += s.weight
		}
		return total
	}()
	slotMultipliers = func() map[Symbol]decimal.Decimal {
		m := make(map[Symbol]decimal.Decimal, len(slotSymbols))
		for _, s := range slotSymbols {
			m[s.symbol] = s.multiplier
		}
		return m
	}()
)

// Paylines as (row, col) positions: three rows then both diagonals.
var slotPaylines = [][3][2]int{
	{{0, 0}, {0, 1}, {0, 2}},
	{{1, 0}, {1, 1}, {1, 2}},
	{{2, 0}, {2, 1}, {2, 2}},
	{{0, 0}, {1, 1}, {2, 2}},
	{{2, 0}, {1, 1}, {0, 2}},
}

type SlotsOptions struct{}

func (SlotsOptions) game() string { return models.GameSlots }

type PaylineResult struct {
	Line       int             `json:"line"`
	Symbols    []Symbol        `json:"symbols"`
	Match      string          `json:"match"`
	Symbol     Symbol          `json:"symbol,omitempty"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
}

type SlotsOutcome struct {
	Grid  [slotsRows][slotsCols]Symbol `json:"grid"`
	Lines []PaylineResult              `json:"lines"`
}

// Slots is a 3x3 grid with five fixed paylines and a wild symbol.
type Slots struct{}

func (Slots) Info() Info {
	return Info{
		ID:        models.GameSlots,
		Name:      "Slots",
		Category:  CategorySlots,
		HouseEdge: slotsHouseEdge,
		MinBet:    defaultMinBet,
		MaxBet:    defaultMaxBet,
	}
}

func (Slots) DecodeOptions(raw json.RawMessage) (Options, error) {
	var opts SlotsOptions
	if err := decodeStrict(raw, &opts); err != nil {
		return nil, err
	}
	return opts, nil
}

func (Slots) Validate(amount decimal.Decimal, o Options) (decimal.Decimal, error) {
	if _, err := optionsAs[SlotsOptions](o); err != nil {
		return decimal.Zero, err
	}
	if err := requirePositive(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func (Slots) FloatCount(Options) int { return slotsCells }

func (Slots) Resolve(floats []float64, stake decimal.Decimal, o Options) (*Resolution, error) {
	if err := checkFloats(models.GameSlots, floats, slotsCells); err != nil {
		return nil, err
	}
	if _, err := optionsAs[SlotsOptions](o); err != nil {
		return nil, err
	}

	var outcome SlotsOutcome
	for i := 0; i < slotsCells; i++ {
		outcome.Grid[i/slotsCols][i%slotsCols] = pickSlotSymbol(floats[i])
	}

	lines := decimal.NewFromInt(int64(len(slotPaylines)))
	lineBet := stake.Div(lines)
	sum := decimal.Zero
	for i, line := range slotPaylines {
		symbols := []Symbol{
			outcome.Grid[line[0][0]][line[0][1]],
			outcome.Grid[line[1][0]][line[1][1]],
			outcome.Grid[line[2][0]][line[2][1]],
		}
		match, symbol, mult := evaluatePayline(symbols[0], symbols[1], symbols[2])
		outcome.Lines = append(outcome.Lines, PaylineResult{
			Line:       i + 1,
			Symbols:    symbols,
			Match:      match,
			Symbol:     symbol,
			Multiplier: mult,
			Payout:     lineBet.Mul(mult),
		})
		sum = sum.Add(mult)
	}

	// The stake is split evenly, so the round multiplier is the mean line
	// multiplier and payout equals stake × multiplier exactly.
	multiplier := sum.Div(lines)
	return &Resolution{
		Outcome:    outcome,
		Multiplier: multiplier,
		Payout:     stake.Mul(multiplier),
	}, nil
}

func pickSlotSymbol(f float64) Symbol {
	threshold := f * float64(slotsTotalWeight)
	cumulative := 0
	for _, s := range slotSymbols {
		cumulative += s.weight
		if threshold < float64(cumulative) {
			return s.symbol
		}
	}
	return slotSymbols[len(slotSymbols)-1].symbol
}

// evaluatePayline scores one line. Three of a kind (with wild substitution)
// pays the symbol's multiplier; otherwise the best wild-substituted pair pays
// a fraction of its symbol's three-of-a-kind multiplier.
func evaluatePayline(a, b, c Symbol) (string, Symbol, decimal.Decimal) {
	if symbol, ok := threeOfAKind(a, b, c); ok {
		return MatchThree, symbol, slotMultipliers[symbol]
	}

	var best Symbol
	bestMult := decimal.Zero
	for _, pair := range [][2]Symbol{{a, b}, {b, c}, {a, c}} {
		symbol, ok := pairMatch(pair[0], pair[1])
		if ok && slotMultipliers[symbol].GreaterThan(bestMult) {
			best, bestMult = symbol, slotMultipliers[symbol]
		}
	}
	if best == "" {
		return MatchNone, "", decimal.Zero
	}
	return MatchTwo, best, bestMult.Mul(slotsTwoOfAKindRatio)
}

func threeOfAKind(a, b, c Symbol) (Symbol, bool) {
	if a == b && b == c {
		return a, true
	}
	var plain []Symbol
	for _, s := range []Symbol{a, b, c} {
		if s != SymbolWild {
			plain = append(plain, s)
		}
	}
	switch len(plain) {
	case 1:
		return plain[0], true
	case 2:
		if plain[0] == plain[1] {
			return plain[0], true
		}
	}
	return "", false
}

func pairMatch(a, b Symbol) (Symbol, bool) {
	switch {
	case a == b:
		return a, true
	case a == SymbolWild:
		return b, true
	case b == SymbolWild:
		return a, true
	}
	return "", false
}
