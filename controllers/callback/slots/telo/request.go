package telo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// flexibleString accepts a JSON string or number; agents send both.
type flexibleString string

func (fs *flexibleString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*fs = flexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*fs = flexibleString(n.String())
		return nil
	}

	return fmt.Errorf("unable to parse %s as string or number", string(data))
}

func (fs flexibleString) String() string {
	return strings.TrimSpace(string(fs))
}

// Decimal parses the value as an amount. Empty is zero.
func (fs flexibleString) Decimal() (decimal.Decimal, error) {
	if fs.String() == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(fs.String())
}

type GameCallbackRequest struct {
	AgentCode   string     `json:"agent_code"`
	AgentSecret string     `json:"agent_secret"`
	UserCode    string     `json:"user_code"`
	GameType    string     `json:"game_type"`
	Slot        SlotDetail `json:"slot"`
}

type SlotDetail struct {
	ProviderCode    string         `json:"provider_code"`
	GameCode        flexibleString `json:"game_code"`
	RoundID         flexibleString `json:"round_id"`
	IsRoundFinished bool           `json:"is_round_finished"`
	Type            string         `json:"type"`
	Bet             flexibleString `json:"bet"`
	Win             flexibleString `json:"win"`
	TxnID           flexibleString `json:"txn_id"`
	TxnType         string         `json:"txn_type"`
	CreatedAt       string         `json:"created_at"`
}

type UserBalanceRequest struct {
	UserCode string `json:"user_code"`
}
