package models

// PlayerSummary is returned by the "me" endpoint.
type PlayerSummary struct {
	UserID   int64             `json:"user_id"`
	Balances []BalanceResponse `json:"balances"`
	Seeds    FairnessInfo      `json:"seeds"`
}
