package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BetRequest is the wire form of a play call. Options stay raw until the
// selected game decodes them into its own typed options.
type BetRequest struct {
	GameID   string          `json:"game_id" binding:"required"`
	Currency string          `json:"currency" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Options  json.RawMessage `json:"options"`
}

type FairnessInfo struct {
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
}

type PlayResult struct {
	RoundID    string          `json:"round_id"`
	Game       string          `json:"game"`
	Currency   string          `json:"currency"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`
	Multiplier decimal.Decimal `json:"multiplier"`
	Outcome    any             `json:"outcome"`
	Fairness   FairnessInfo    `json:"fairness"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// GameInfo is one catalog entry.
type GameInfo struct {
	Name      string          `json:"name"`
	GameID    string          `json:"game_id"`
	HouseEdge float64         `json:"house_edge"`
	MinBet    decimal.Decimal `json:"min_bet"`
	MaxBet    decimal.Decimal `json:"max_bet"`
	Category  string          `json:"category"`
}

type VerifyRequest struct {
	GameID     string          `json:"game_id" binding:"required"`
	ServerSeed string          `json:"server_seed" binding:"required"`
	ClientSeed string          `json:"client_seed" binding:"required"`
	Nonce      int64           `json:"nonce" binding:"min=0"`
	Amount     decimal.Decimal `json:"amount"`
	Options    json.RawMessage `json:"options"`
}

type VerifyResponse struct {
	GameID         string          `json:"game_id"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          int64           `json:"nonce"`
	Outcome        any             `json:"outcome"`
	Multiplier     decimal.Decimal `json:"multiplier"`
	Payout         decimal.Decimal `json:"payout"`
}

type RotateSeedRequest struct {
	ClientSeed string `json:"client_seed"`
}
