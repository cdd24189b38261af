package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"seamless/config"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var _ Gateway = (*HTTP)(nil)

// CredentialProvider is the credential table key used for the wallet ledger itself.
const CredentialProvider = "LEDGER"

// HTTP is the Gateway of a remote wallet service speaking JSON over HTTP.
// Each call is signed with the credential registered for the player's currency.
type HTTP struct {
	baseURL string
	client  *http.Client
	creds   *config.CredentialTable
}

func NewHTTP(baseURL string, timeout time.Duration, creds *config.CredentialTable) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		creds:   creds,
	}
}

type ledgerRequest struct {
	TransactionID         string           `json:"transactionId,omitempty"`
	Username              string           `json:"username"`
	Currency              string           `json:"currency"`
	Amount                *decimal.Decimal `json:"amount,omitempty"`
	WagerID               string           `json:"wagerId,omitempty"`
	Stake                 *decimal.Decimal `json:"stake,omitempty"`
	PayoutID              string           `json:"payoutId,omitempty"`
	Win                   *decimal.Decimal `json:"win,omitempty"`
	BetID                 string           `json:"betId,omitempty"`
	PreviousSettleID      string           `json:"previousSettleId,omitempty"`
	TransactionIDToCancel string           `json:"transactionIdToCancel,omitempty"`
	Report                *Report          `json:"report,omitempty"`
}

func (h *HTTP) Balance(ctx context.Context, p Player) (Response, error) {
	return h.post(ctx, "balance", p, ledgerRequest{})
}

func (h *HTTP) Wager(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return h.post(ctx, "wager", p, ledgerRequest{TransactionID: transactionID, Amount: &amount, Report: &report})
}

func (h *HTTP) Payout(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return h.post(ctx, "payout", p, ledgerRequest{TransactionID: transactionID, Amount: &amount, Report: &report})
}

func (h *HTTP) WagerAndPayout(ctx context.Context, p Player, wagerID string, stake decimal.Decimal, payoutID string, win decimal.Decimal, report Report) (Response, error) {
	return h.post(ctx, "wager-and-payout", p, ledgerRequest{
		WagerID:  wagerID,
		Stake:    &stake,
		PayoutID: payoutID,
		Win:      &win,
		Report:   &report,
	})
}

func (h *HTTP) Bonus(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, report Report) (Response, error) {
	return h.post(ctx, "bonus", p, ledgerRequest{TransactionID: transactionID, Amount: &amount, Report: &report})
}

func (h *HTTP) Resettle(ctx context.Context, p Player, transactionID string, delta decimal.Decimal, betID, previousSettleID string, report Report) (Response, error) {
	return h.post(ctx, "resettle", p, ledgerRequest{
		TransactionID:    transactionID,
		Amount:           &delta,
		BetID:            betID,
		PreviousSettleID: previousSettleID,
		Report:           &report,
	})
}

func (h *HTTP) Cancel(ctx context.Context, p Player, transactionID string, amount decimal.Decimal, transactionIDToCancel string, report Report) (Response, error) {
	return h.post(ctx, "cancel", p, ledgerRequest{
		TransactionID:         transactionID,
		Amount:                &amount,
		TransactionIDToCancel: transactionIDToCancel,
		Report:                &report,
	})
}

func (h *HTTP) post(ctx context.Context, path string, p Player, body ledgerRequest) (Response, error) {
	cred, ok := h.creds.Lookup(CredentialProvider, p.Currency)
	if !ok {
		return Response{}, fmt.Errorf("no ledger credential for currency %s", p.Currency)
	}

	body.Username = p.Username
	body.Currency = p.Currency
	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/"+path, bytes.NewReader(payload))
	if err != nil {
		return Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", cred.Key)
	req.Header.Set("Authorization", "Bearer "+cred.Secret)
	if cred.Operator != "" {
		req.Header.Set("X-Operator", cred.Operator)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("ledger %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("ledger %s: read body: %w", path, err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil || out.Status == 0 {
		return Response{}, fmt.Errorf("ledger %s: unexpected response (http %d): %s", path, resp.StatusCode, truncate(raw, 256))
	}

	zap.L().Debug("Ledger call completed",
		zap.String("op", path),
		zap.String("transaction_id", body.TransactionID),
		zap.Int("status", out.Status),
		zap.Duration("took", time.Since(start)))
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
