package games

import "github.com/shopspring/decimal"

const (
	KenoNumbers   = 40
	KenoDrawCount = 10
	KenoMinPicks  = 1
	KenoMaxPicks  = 10

	kenoHouseEdge = 0.10
)

// kenoPayouts[picks][hits] is the multiplier for a round. Every row returns
// exactly 0.90 under the hypergeometric distribution of 10 draws from 40.
var kenoPayouts = map[int][]string{
	1:  {"0", "3.6"},
	2:  {"0", "1.35", "6.6"},
	3:  {"0", "0", "3.48", "34.95"},
	4:  {"0", "0", "2.18", "5.84", "88.35"},
	5:  {"0", "0", "1.41", "3", "16.96", "282.35"},
	6:  {"0", "0", "0.68", "2.71", "8.14", "54.18", "678.32"},
	7:  {"0", "0", "0", "2.37", "6.33", "23.72", "126.5", "1592.73"},
	8:  {"0", "0", "0", "1.5", "4.5", "12.01", "45.56", "300.27", "2996.94"},
	9:  {"0", "0", "0", "0.71", "3.54", "8.49", "28.31", "110.55", "707.85", "7053.87"},
	10: {"0", "0", "0", "0.65", "2.58", "5.17", "12.92", "37.32", "193.76", "1291.74", "14339.16"},
}

var kenoTable = func() map[int][]decimal.Decimal {
	table := make(map[int][]decimal.Decimal, len(kenoPayouts))
	for picks, row := range kenoPayouts {
		parsed := make([]decimal.Decimal, len(row))
		for hits, v := range row {
			parsed[hits] = decimal.RequireFromString(v)
		}
		table[picks] = parsed
	}
	return table
}()

// KenoMultiplier looks up the payout multiplier for a pick count and hit
// count. Out-of-table combinations pay zero.
func KenoMultiplier(picks, hits int) decimal.Decimal {
	row, ok := kenoTable[picks]
	if !ok || hits < 0 || hits >= len(row) {
		return decimal.Zero
	}
	return row[hits]
}
