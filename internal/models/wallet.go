package models

import "github.com/shopspring/decimal"

// SeedState is a player's active seed pair. ServerSeed is secret until the
// pair is rotated; ServerSeedHash is its public commitment.
type SeedState struct {
	ServerSeed     string `json:"-"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
}

// Public strips the secret half of the pair.
func (s SeedState) Public() FairnessInfo {
	return FairnessInfo{
		ServerSeedHash: s.ServerSeedHash,
		ClientSeed:     s.ClientSeed,
		Nonce:          s.Nonce,
	}
}

// RevealedSeed is a retired seed pair, disclosed so past rounds can be
// verified.
type RevealedSeed struct {
	ServerSeed     string `json:"server_seed"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
}

type RotateSeedResponse struct {
	Revealed RevealedSeed `json:"revealed"`
	Active   FairnessInfo `json:"active"`
}

type BalanceResponse struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}
