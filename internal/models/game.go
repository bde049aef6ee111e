package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	GameRoulette = "roulette"
	GameSlots    = "slots"
	GameKeno     = "keno"
	GameWheel    = "wheel"
	GameCoinFlip = "coinflip"
)

// RoundRecord is the immutable audit record of one settled bet. It carries the
// pre-reveal fairness fields only; the server seed is disclosed on rotation.
type RoundRecord struct {
	RoundID    string          `json:"round_id"`
	UserID     int64           `json:"user_id"`
	GameID     string          `json:"game_id"`
	Currency   string          `json:"currency"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	Payout     decimal.Decimal `json:"payout"`
	Multiplier decimal.Decimal `json:"multiplier"`

	Options json.RawMessage `json:"options"`
	Outcome json.RawMessage `json:"outcome"`

	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`

	CreatedAt time.Time `json:"created_at"`
}

// Profit is payout minus stake; negative on a loss.
func (r *RoundRecord) Profit() decimal.Decimal {
	return r.Payout.Sub(r.BetAmount)
}
