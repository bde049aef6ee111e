package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

func GenerateRoundID() string {
	return uuid.NewString()
}

// Normalize trims and upper-cases the currency and lower-cases the game id.
func (br *BetRequest) Normalize() {
	br.GameID = strings.ToLower(strings.TrimSpace(br.GameID))
	br.Currency = strings.ToUpper(strings.TrimSpace(br.Currency))
}

// Validate checks the fields shared by every game. Game-specific rules live
// with each game.
func (br *BetRequest) Validate() error {
	if br.GameID == "" {
		return fmt.Errorf("game_id is required")
	}
	if br.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if br.Amount.IsNegative() {
		return fmt.Errorf("amount must not be negative")
	}
	return nil
}
