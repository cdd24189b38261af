// Package wallet talks to the wallet ledger, the authoritative owner of
// player balances.
package wallet

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger status codes. Only StatusSuccess means the call was applied; the
// others are what the in-process ledgers answer with.
const (
	StatusSuccess           = 2100
	StatusInsufficientFunds = 2101
	StatusPlayerNotFound    = 2102
	StatusUnknownTx         = 2104
	StatusRejected          = 2190
	StatusInternalError     = 2199
)

// Player identifies a ledger account.
type Player struct {
	Username string
	Currency string
}

// Report is the audit record attached to every mutating call. It mirrors
// the journal row that is written in the same unit of work.
type Report struct {
	ID       string         `json:"id"`
	Provider string         `json:"provider"`
	GameCode string         `json:"gameCode,omitempty"`
	RoundID  string         `json:"roundId,omitempty"`
	BetTime  time.Time      `json:"betTime"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewReport(provider, gameCode, roundID string, betTime time.Time, metadata map[string]any) Report {
	return Report{
		ID:       uuid.NewString(),
		Provider: provider,
		GameCode: gameCode,
		RoundID:  roundID,
		BetTime:  betTime,
		Metadata: metadata,
	}
}

type Response struct {
	Status  int             `json:"status"`
	Balance decimal.Decimal `json:"balance"`
}

func (r Response) OK() bool {
	return r.Status == StatusSuccess
}

// Gateway is the ledger contract. A returned error is a transport failure;
// a Response with a non-success status is a refusal by the ledger.
type Gateway interface {
	Balance(ctx context.Context, p Player) (Response, error)
	Wager(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error)
	Payout(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error)
	WagerAndPayout(ctx context.Context, p Player, wagerID string, stake decimal.Decimal, payoutID string, win decimal.Decimal, report Report) (Response, error)
	Bonus(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error)
	// Resettle applies a signed correction to a settled bet.
	Resettle(ctx context.Context, p Player, transactionID string, delta decimal.Decimal, betID, previousSettleID string, report Report) (Response, error)
	// Cancel returns amount to the player and voids transactionIDToCancel.
	Cancel(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, transactionIDToCancel string, report Report) (Response, error)
}
