package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"seamless/config"
	"seamless/helpers"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/sdkerrors"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ Gateway = (*Formance)(nil)

// Numscript templates. Every posting records its canonical id so that
// cancellations can find the wager they reverse.
const numscriptDebitPlayer = `vars {
  asset $asset
  number $amount
  account $player
  account $house
  string $canonical_id
  string $event_type
  string $provider
  string $game_code
  string $round_id
  string $report_id
}

send [$asset $amount] (
  source = @players:$player
  destination = @house:$house
)

set_tx_meta("canonical_id", $canonical_id)
set_tx_meta("event_type", $event_type)
set_tx_meta("provider", $provider)
set_tx_meta("game_code", $game_code)
set_tx_meta("round_id", $round_id)
set_tx_meta("report_id", $report_id)
`

const numscriptCreditPlayer = `vars {
  asset $asset
  number $amount
  account $player
  account $house
  string $canonical_id
  string $event_type
  string $provider
  string $game_code
  string $round_id
  string $report_id
}

send [$asset $amount] (
  source = @house:$house allowing unbounded overdraft
  destination = @players:$player
)

set_tx_meta("canonical_id", $canonical_id)
set_tx_meta("event_type", $event_type)
set_tx_meta("provider", $provider)
set_tx_meta("game_code", $game_code)
set_tx_meta("round_id", $round_id)
set_tx_meta("report_id", $report_id)
`

// A downward correction may leave the player negative; the ledger already
// paid out the amount being taken back.
const numscriptClawback = `vars {
  asset $asset
  number $amount
  account $player
  account $house
  string $canonical_id
  string $event_type
  string $provider
  string $game_code
  string $round_id
  string $report_id
}

send [$asset $amount] (
  source = @players:$player allowing unbounded overdraft
  destination = @house:$house
)

set_tx_meta("canonical_id", $canonical_id)
set_tx_meta("event_type", $event_type)
set_tx_meta("provider", $provider)
set_tx_meta("game_code", $game_code)
set_tx_meta("round_id", $round_id)
set_tx_meta("report_id", $report_id)
`

const numscriptWagerAndPayout = `vars {
  asset $asset
  number $stake
  number $win
  account $player
  string $canonical_id
  string $payout_id
  string $event_type
  string $provider
  string $game_code
  string $round_id
  string $report_id
}

send [$asset $stake] (
  source = @players:$player
  destination = @house:wagers
)

send [$asset $win] (
  source = @house:payouts allowing unbounded overdraft
  destination = @players:$player
)

set_tx_meta("canonical_id", $canonical_id)
set_tx_meta("payout_id", $payout_id)
set_tx_meta("event_type", $event_type)
set_tx_meta("provider", $provider)
set_tx_meta("game_code", $game_code)
set_tx_meta("round_id", $round_id)
set_tx_meta("report_id", $report_id)
`

// Formance is a Gateway backed by a Formance Stack ledger. Player balances
// live in players:<username>; the counterparties are house:* accounts.
type Formance struct {
	client *v3.Formance
	ledger string
}

func NewFormance(ctx context.Context, cfg config.FormanceConfig) (*Formance, error) {
	if cfg.StackURL == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("formance config requires StackURL, ClientID, and ClientSecret")
	}

	zap.L().Info("Connecting to Formance Stack",
		zap.String("stack_url", cfg.StackURL),
		zap.String("ledger", cfg.LedgerName))

	client := v3.New(
		v3.WithServerURL(cfg.StackURL),
		v3.WithSecurity(shared.Security{
			ClientID:     v3.Pointer(cfg.ClientID),
			ClientSecret: v3.Pointer(cfg.ClientSecret),
		}),
	)

	f := &Formance{client: client, ledger: cfg.LedgerName}
	if err := f.ensureLedger(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure ledger exists: %w", err)
	}
	return f, nil
}

func (f *Formance) ensureLedger(ctx context.Context) error {
	_, err := f.client.Ledger.V2.CreateLedger(ctx, operations.V2CreateLedgerRequest{
		Ledger: f.ledger,
		V2CreateLedgerRequest: shared.V2CreateLedgerRequest{
			Metadata: map[string]string{"application": "seamless-wallet"},
		},
	})
	if err != nil {
		if apiErrorCode(err) == shared.V2ErrorsEnumLedgerAlreadyExists {
			zap.L().Info("Ledger already exists", zap.String("ledger", f.ledger))
			return nil
		}
		return err
	}
	zap.L().Info("Ledger created", zap.String("ledger", f.ledger))
	return nil
}

func (f *Formance) Balance(ctx context.Context, p Player) (Response, error) {
	bal, err := f.balance(ctx, p)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: StatusSuccess, Balance: bal}, nil
}

func (f *Formance) Wager(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return f.send(ctx, p, numscriptDebitPlayer, "wagers", "wager", transactionID, amount, report)
}

func (f *Formance) Payout(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return f.send(ctx, p, numscriptCreditPlayer, "payouts", "payout", transactionID, amount, report)
}

func (f *Formance) Bonus(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return f.send(ctx, p, numscriptCreditPlayer, "bonus", "bonus", transactionID, amount, report)
}

func (f *Formance) Resettle(ctx context.Context, p Player, transactionID string, delta decimal.Decimal, betID, previousSettleID string, report Report) (Response, error) {
	zap.L().Debug("Posting resettlement",
		zap.String("transaction_id", transactionID),
		zap.String("bet_id", betID),
		zap.String("previous_settle_id", previousSettleID))
	if delta.IsNegative() {
		return f.send(ctx, p, numscriptClawback, "resettle", "resettle", transactionID, delta.Abs(), report)
	}
	return f.send(ctx, p, numscriptCreditPlayer, "resettle", "resettle", transactionID, delta, report)
}

func (f *Formance) Cancel(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, transactionIDToCancel string, report Report) (Response, error) {
	found, err := f.hasPosting(ctx, transactionIDToCancel)
	if err != nil {
		return Response{}, err
	}
	if !found {
		bal, err := f.balance(ctx, p)
		if err != nil {
			return Response{}, err
		}
		return Response{Status: StatusUnknownTx, Balance: bal}, nil
	}
	return f.send(ctx, p, numscriptCreditPlayer, "wagers", "cancel", transactionID, amount, report)
}

func (f *Formance) WagerAndPayout(ctx context.Context, p Player, wagerID string, stake decimal.Decimal, payoutID string, win decimal.Decimal, report Report) (Response, error) {
	script, vars, err := wagerAndPayoutPosting(p, wagerID, stake, payoutID, win, report)
	if err != nil {
		return Response{}, err
	}
	if script == "" {
		return f.Balance(ctx, p)
	}
	return f.post(ctx, p, wagerID, script, vars)
}

func (f *Formance) send(ctx context.Context, p Player, script, house, eventType, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	if amount.IsZero() {
		// the ledger rejects empty postings; nothing moves anyway
		return f.Balance(ctx, p)
	}
	vars, err := sendVars(p, house, eventType, transactionID, amount, report)
	if err != nil {
		return Response{}, err
	}
	return f.post(ctx, p, transactionID, script, vars)
}

func sendVars(p Player, house, eventType, transactionID string, amount decimal.Decimal, report Report) (map[string]string, error) {
	units, err := smallestUnits(amount, p.Currency)
	if err != nil {
		return nil, err
	}
	vars := scriptVars(p, transactionID, eventType, report)
	vars["amount"] = units
	vars["house"] = house
	return vars, nil
}

// wagerAndPayoutPosting picks the script for a combined round. A zero leg
// is left out because the ledger rejects empty postings; with both legs zero
// the script is empty and nothing is posted.
func wagerAndPayoutPosting(p Player, wagerID string, stake decimal.Decimal, payoutID string, win decimal.Decimal, report Report) (string, map[string]string, error) {
	const eventType = "wager_and_payout"
	switch {
	case stake.IsZero() && win.IsZero():
		return "", nil, nil
	case win.IsZero():
		vars, err := sendVars(p, "wagers", eventType, wagerID, stake, report)
		return numscriptDebitPlayer, vars, err
	case stake.IsZero():
		vars, err := sendVars(p, "payouts", eventType, wagerID, win, report)
		return numscriptCreditPlayer, vars, err
	}

	stakeUnits, err := smallestUnits(stake, p.Currency)
	if err != nil {
		return "", nil, err
	}
	winUnits, err := smallestUnits(win, p.Currency)
	if err != nil {
		return "", nil, err
	}
	vars := scriptVars(p, wagerID, eventType, report)
	vars["stake"] = stakeUnits
	vars["win"] = winUnits
	vars["payout_id"] = payoutID
	return numscriptWagerAndPayout, vars, nil
}

func (f *Formance) post(ctx context.Context, p Player, reference, script string, vars map[string]string) (Response, error) {
	_, err := f.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: f.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(reference),
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars:  vars,
			},
		},
	})
	if err != nil {
		code := apiErrorCode(err)
		switch code {
		case shared.V2ErrorsEnumConflict:
			// reference already posted: the ledger applied this id before
			zap.L().Info("Posting already exists in Formance", zap.String("reference", reference))
		case shared.V2ErrorsEnumInsufficientFund:
			return f.refusal(ctx, p, StatusInsufficientFunds)
		case shared.V2ErrorsEnumValidation, shared.V2ErrorsEnumNotFound:
			zap.L().Warn("Formance refused posting", zap.String("reference", reference), zap.Error(err))
			return f.refusal(ctx, p, StatusRejected)
		default:
			return Response{}, fmt.Errorf("formance posting %s: %w", reference, err)
		}
	}

	bal, err := f.balance(ctx, p)
	if err != nil {
		return Response{}, err
	}
	return Response{Status: StatusSuccess, Balance: bal}, nil
}

func (f *Formance) refusal(ctx context.Context, p Player, status int) (Response, error) {
	bal, err := f.balance(ctx, p)
	if err != nil {
		return Response{Status: status}, nil
	}
	return Response{Status: status, Balance: bal}, nil
}

func (f *Formance) balance(ctx context.Context, p Player) (decimal.Decimal, error) {
	resp, err := f.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  f.ledger,
		Address: playerAccount(p.Username),
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		if apiErrorCode(err) == shared.V2ErrorsEnumNotFound {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("formance balance of %s: %w", p.Username, err)
	}
	raw := volumeBalance(resp.V2AccountResponse.Data.Volumes, formanceAsset(p.Currency))
	return fromSmallestUnits(raw, p.Currency), nil
}

func (f *Formance) hasPosting(ctx context.Context, canonicalID string) (bool, error) {
	pageSize := int64(1)
	resp, err := f.client.Ledger.V2.ListTransactions(ctx, operations.V2ListTransactionsRequest{
		Ledger:   f.ledger,
		PageSize: &pageSize,
		RequestBody: map[string]any{
			"$match": map[string]any{
				"metadata[canonical_id]": canonicalID,
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("formance lookup of %s: %w", canonicalID, err)
	}
	return len(resp.V2TransactionsCursorResponse.Cursor.Data) > 0, nil
}

// ---------- helpers ----------

func scriptVars(p Player, canonicalID, eventType string, report Report) map[string]string {
	return map[string]string{
		"asset":        formanceAsset(p.Currency),
		"player":       accountSegment(p.Username),
		"canonical_id": canonicalID,
		"event_type":   eventType,
		"provider":     report.Provider,
		"game_code":    report.GameCode,
		"round_id":     report.RoundID,
		"report_id":    report.ID,
	}
}

func playerAccount(username string) string {
	return "players:" + accountSegment(username)
}

// accountSegment maps a username onto the characters allowed in a Formance
// address segment.
func accountSegment(username string) string {
	var b strings.Builder
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// formanceAsset returns the Formance UMN notation, e.g. "IDR/0".
func formanceAsset(currency string) string {
	return fmt.Sprintf("%s/%d", helpers.NormalizeCurrency(currency), helpers.DecimalsForCurrency(currency))
}

// smallestUnits refuses amounts the asset cannot represent instead of
// truncating them.
func smallestUnits(amount decimal.Decimal, currency string) (string, error) {
	units := amount.Shift(helpers.DecimalsForCurrency(currency))
	if !units.IsInteger() {
		return "", fmt.Errorf("%s %s is finer than %s allows", amount, helpers.NormalizeCurrency(currency), formanceAsset(currency))
	}
	return units.BigInt().String(), nil
}

func fromSmallestUnits(raw *big.Int, currency string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -helpers.DecimalsForCurrency(currency))
}

func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

func apiErrorCode(err error) shared.V2ErrorsEnum {
	var apiErr *sdkerrors.V2ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode
	}
	return ""
}

func strPtr(s string) *string { return &s }
