package telo

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"seamless/config"
	"seamless/middlewares"
	"seamless/reconcile"
	"seamless/store"
	"seamless/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func newApp(t *testing.T) (*fiber.App, *wallet.Memory, *store.Memory) {
	t.Helper()
	st := store.NewMemory(Provider)
	led := wallet.NewMemory()
	led.Fund("bob", decimal.NewFromInt(1000))

	creds, err := config.NewCredentialTable("test", []config.Credential{
		{Provider: Provider, Currency: "IDR", Key: "agent1", Secret: "agent-secret"},
	})
	if err != nil {
		t.Fatalf("NewCredentialTable: %v", err)
	}

	h := NewHandler(reconcile.New(Provider, st, led, nil, reconcile.Options{AutoEnroll: true}))
	app := fiber.New()
	group := app.Group("/", middlewares.TeloAgentAuth(creds, Provider))
	group.Post("/user_balance", h.UserBalance)
	group.Post("/game_callback", h.GameCallback)
	return app, led, st
}

func call(t *testing.T, app *fiber.App, path string, payload map[string]any) (int, map[string]any) {
	t.Helper()
	if _, ok := payload["agent_code"]; !ok {
		payload["agent_code"] = "agent1"
		payload["agent_secret"] = "agent-secret"
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, body
}

func slot(txnType string, txnID any, bet, win any) map[string]any {
	return map[string]any{
		"user_code": "bob",
		"game_type": "slot",
		"slot": map[string]any{
			"provider_code": "PGSOFT",
			"game_code":     1543462,
			"round_id":      "1759300000001",
			"txn_id":        txnID,
			"txn_type":      txnType,
			"bet":           bet,
			"win":           win,
			"created_at":    "2026-10-15 09:30:00",
		},
	}
}

func expect(t *testing.T, body map[string]any, status int, balance float64, msg string) {
	t.Helper()
	if body["status"] != float64(status) || body["user_balance"] != balance {
		t.Fatalf("got %v, want status %d balance %v", body, status, balance)
	}
	if msg != "" && body["msg"] != msg {
		t.Fatalf("msg = %v, want %s", body["msg"], msg)
	}
}

func TestDebitThenCredit(t *testing.T) {
	app, led, st := newApp(t)

	_, body := call(t, app, "/game_callback", slot(txnDebit, 9001, 100, 0))
	expect(t, body, 1, 900, "")

	p, err := st.GetPlayer(t.Context(), "bob")
	if err != nil || p.Currency != "IDR" {
		t.Fatalf("player not enrolled in agent currency: %+v, %v", p, err)
	}

	_, body = call(t, app, "/game_callback", slot(txnCredit, "9001", 0, "300"))
	expect(t, body, 1, 1200, "")

	_, body = call(t, app, "/game_callback", slot(txnCredit, "9001", 0, "300"))
	expect(t, body, 1, 1200, "")
	if n := led.Calls("payout"); n != 1 {
		t.Fatalf("payout calls = %d, want 1", n)
	}
}

func TestDebitCredit(t *testing.T) {
	app, led, _ := newApp(t)

	_, body := call(t, app, "/game_callback", slot(txnDebitCredit, "9002", "100", "50"))
	expect(t, body, 1, 950, "")

	_, body = call(t, app, "/game_callback", slot(txnDebitCredit, "9002", "100", "50"))
	expect(t, body, 1, 950, "")
	if n := led.Calls("wagerAndPayout"); n != 1 {
		t.Fatalf("wagerAndPayout calls = %d, want 1", n)
	}
}

func TestGameCallbackRejections(t *testing.T) {
	app, _, _ := newApp(t)

	_, body := call(t, app, "/game_callback", slot(txnDebit, "9003", 5000, 0))
	expect(t, body, 0, 1000, "INSUFFICIENT_USER_FUNDS")

	_, body = call(t, app, "/game_callback", slot("jackpot", "9004", 1, 0))
	expect(t, body, 0, 0, "INVALID_TXN_TYPE")

	_, body = call(t, app, "/game_callback", slot(txnDebit, "9005", "abc", 0))
	expect(t, body, 0, 0, "INVALID_BET_AMOUNT")

	_, body = call(t, app, "/game_callback", slot(txnDebit, "9007", "100.5", 0))
	expect(t, body, 0, 0, "INVALID_AMOUNT")

	_, body = call(t, app, "/game_callback", slot(txnCredit, "never-debited", 0, 10))
	expect(t, body, 0, 0, "TXN_NOT_FOUND")
}

func TestUserBalance(t *testing.T) {
	app, _, _ := newApp(t)

	_, body := call(t, app, "/user_balance", map[string]any{"user_code": "bob"})
	expect(t, body, 0, 0, "USER_NOT_FOUND")

	call(t, app, "/game_callback", slot(txnDebit, "9006", 10, 0))
	_, body = call(t, app, "/user_balance", map[string]any{"user_code": "bob"})
	expect(t, body, 1, 990, "")
}

func TestAgentCredentialsAreChecked(t *testing.T) {
	app, _, _ := newApp(t)

	status, body := call(t, app, "/user_balance", map[string]any{
		"user_code":    "bob",
		"agent_code":   "agent1",
		"agent_secret": "wrong",
	})
	if status != fiber.StatusUnauthorized || body["msg"] != "INVALID_AGENT_CREDENTIALS" {
		t.Fatalf("got %d %v", status, body)
	}
}
