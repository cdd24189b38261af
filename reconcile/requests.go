package reconcile

import (
	"fmt"
	"strings"
	"time"

	"seamless/helpers"

	"github.com/shopspring/decimal"
)

// BetRequest places a stake on a round. Username is only used when the
// player is enrolled on first contact.
type BetRequest struct {
	PlayerID  string
	Username  string
	Currency  string
	Reference string
	RoundID   string
	GameCode  string
	Amount    decimal.Decimal
	BetTime   time.Time
	Metadata  map[string]any
}

func (r BetRequest) Validate() error {
	if err := required("playerId", r.PlayerID, "reference", r.Reference); err != nil {
		return err
	}
	return nonNegative("amount", r.Amount)
}

// ConfirmRequest turns a reserved bet into a running one.
type ConfirmRequest struct {
	PlayerID  string
	Reference string
	Metadata  map[string]any
}

func (r ConfirmRequest) Validate() error {
	return required("playerId", r.PlayerID, "reference", r.Reference)
}

// SettleRequest closes a round with its total payout. Win zero is a loss.
type SettleRequest struct {
	PlayerID  string
	Currency  string
	Reference string
	GameCode  string
	Win       decimal.Decimal
	SettledAt time.Time
	Metadata  map[string]any
}

func (r SettleRequest) Validate() error {
	if err := required("playerId", r.PlayerID, "reference", r.Reference); err != nil {
		return err
	}
	return nonNegative("win", r.Win)
}

// PlaceAndSettleRequest is a round the provider reports as stake and payout at once.
type PlaceAndSettleRequest struct {
	BetRequest
	Win decimal.Decimal
}

func (r PlaceAndSettleRequest) Validate() error {
	if err := r.BetRequest.Validate(); err != nil {
		return err
	}
	return nonNegative("win", r.Win)
}

type CancelRequest struct {
	PlayerID  string
	Reference string
	Metadata  map[string]any
}

func (r CancelRequest) Validate() error {
	return required("playerId", r.PlayerID, "reference", r.Reference)
}

// AdjustmentRequest credits or debits a player outside of a bet cycle:
// bonuses, promotions and manual adjustments.
type AdjustmentRequest struct {
	PlayerID  string
	Username  string
	Currency  string
	Reference string
	RoundID   string
	GameCode  string
	Amount    decimal.Decimal
	Metadata  map[string]any
}

func (r AdjustmentRequest) Validate() error {
	if err := required("playerId", r.PlayerID, "reference", r.Reference); err != nil {
		return err
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	return nil
}

// RefundRequest corrects the payout of a settled round. Win is the new total
// payout; the ledger receives the difference to what was paid before.
type RefundRequest struct {
	PlayerID      string
	Reference     string
	CorrectionRef string
	Win           decimal.Decimal
	Metadata      map[string]any
}

func (r RefundRequest) Validate() error {
	if err := required("playerId", r.PlayerID, "reference", r.Reference, "correctionRef", r.CorrectionRef); err != nil {
		return err
	}
	return nonNegative("win", r.Win)
}

// UnsettleRequest takes back the payout of a settled round so it can be
// settled again.
type UnsettleRequest struct {
	PlayerID      string
	Reference     string
	CorrectionRef string
	Metadata      map[string]any
}

func (r UnsettleRequest) Validate() error {
	return required("playerId", r.PlayerID, "reference", r.Reference, "correctionRef", r.CorrectionRef)
}

// EnrollRequest registers a provider-local player id.
type EnrollRequest struct {
	PlayerID string
	Username string
	Currency string
}

func (r EnrollRequest) Validate() error {
	return required("playerId", r.PlayerID, "username", r.Username, "currency", r.Currency)
}

// Result is what a successful operation hands back to the adapter.
type Result struct {
	CanonicalID string
	Balance     decimal.Decimal
	Currency    string
}

func required(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// withinPrecision fails when v carries more fraction digits than the
// ledger keeps for currency.
func withinPrecision(currency, name string, v decimal.Decimal) error {
	if v.Equal(helpers.RoundInternal(currency, v)) {
		return nil
	}
	return fmt.Errorf("%w: %w: %s %s has more than %d decimals for %s",
		ErrInvalidRequest, ErrAmountPrecision, name, v, helpers.DecimalsForCurrency(currency), currency)
}

func nonNegative(name string, v decimal.Decimal) error {
	if v.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalidRequest, name)
	}
	return nil
}
