package pragmatic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"seamless/config"
	"seamless/middlewares"
	"seamless/models"
	"seamless/reconcile"
	"seamless/store"
	"seamless/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const secret = "s3cret"

func newApp(t *testing.T) (*fiber.App, *wallet.Memory) {
	t.Helper()
	st := store.NewMemory(Provider)
	led := wallet.NewMemory()
	if _, err := st.CreatePlayer(context.Background(), models.Player{PlayerID: "u1", Username: "alice", Currency: "IDR"}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	led.Fund("alice", decimal.NewFromInt(1000))

	creds, err := config.NewCredentialTable("test", []config.Credential{
		{Provider: Provider, Currency: "IDR", Key: "key", Secret: secret, Operator: "pragmaticplay"},
	})
	if err != nil {
		t.Fatalf("NewCredentialTable: %v", err)
	}

	h := NewHandler(reconcile.New(Provider, st, led, nil, reconcile.Options{}))
	app := fiber.New()
	group := app.Group("/", middlewares.PragmaticAuth(creds, Provider))
	group.Post("/authenticate", h.Authenticate)
	group.Post("/balance", h.Balance)
	group.Post("/bet", h.Bet)
	group.Post("/result", h.Result)
	group.Post("/refund", h.Refund)
	group.Post("/promoWin", h.PromoWin)
	group.Post("/adjustment", h.Adjustment)
	return app, led
}

func post(t *testing.T, app *fiber.App, path string, form url.Values) map[string]any {
	t.Helper()
	params := map[string]string{}
	for k := range form {
		params[k] = form.Get(k)
	}
	form.Set("hash", middlewares.PragmaticHash(params, secret))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return body
}

func form(kv ...string) url.Values {
	v := url.Values{"providerId": {"pragmaticplay"}, "timestamp": {"1760500000000"}}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v
}

func expect(t *testing.T, body map[string]any, code int, cash float64) {
	t.Helper()
	if got := body["error"]; got != float64(code) {
		t.Fatalf("error = %v, want %d (%v)", got, code, body["description"])
	}
	if got := body["cash"]; got != cash {
		t.Fatalf("cash = %v, want %v", got, cash)
	}
}

func TestBetAndResult(t *testing.T) {
	app, led := newApp(t)

	bet := form("userId", "u1", "gameId", "vs20olympgate", "roundId", "r1", "reference", "ref1", "amount", "100")
	expect(t, post(t, app, "/bet", bet), codeSuccess, 900)

	body := post(t, app, "/bet", form("userId", "u1", "gameId", "vs20olympgate", "roundId", "r1", "reference", "ref1", "amount", "100"))
	expect(t, body, codeSuccess, 900)
	if body["description"] != "Success (idempotent)" {
		t.Fatalf("description = %v", body["description"])
	}
	if n := led.Calls("wager"); n != 1 {
		t.Fatalf("wager calls = %d, want 1", n)
	}

	result := form("userId", "u1", "gameId", "vs20olympgate", "roundId", "r1", "reference", "ref1", "amount", "250", "promoWinAmount", "50")
	expect(t, post(t, app, "/result", result), codeSuccess, 1200)
}

func TestBetRejections(t *testing.T) {
	app, _ := newApp(t)

	tests := []struct {
		name string
		form url.Values
		code int
		cash float64
	}{
		{"insufficient funds", form("userId", "u1", "reference", "big", "amount", "5000"), codeInsufficientFunds, 1000},
		{"unknown player", form("userId", "nobody", "reference", "x", "amount", "10"), codePlayerNotFound, 0},
		{"bad amount", form("userId", "u1", "reference", "x", "amount", "ten"), codeInvalidAmount, 0},
		{"fractional IDR amount", form("userId", "u1", "reference", "frac", "amount", "100.5"), codeInvalidAmount, 0},
		{"missing reference", form("userId", "u1", "amount", "10"), codeMissingParameters, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expect(t, post(t, app, "/bet", tt.form), tt.code, tt.cash)
		})
	}
}

func TestResultForUnknownBet(t *testing.T) {
	app, _ := newApp(t)
	expect(t, post(t, app, "/result", form("userId", "u1", "reference", "ghost", "amount", "10")), codeBetNotFound, 0)
}

func TestRefund(t *testing.T) {
	app, _ := newApp(t)

	expect(t, post(t, app, "/refund", form("userId", "u1", "reference", "ghost")), codeSuccess, 1000)

	expect(t, post(t, app, "/bet", form("userId", "u1", "reference", "r2", "amount", "50")), codeSuccess, 950)
	expect(t, post(t, app, "/refund", form("userId", "u1", "reference", "r2")), codeSuccess, 1000)
	expect(t, post(t, app, "/refund", form("userId", "u1", "reference", "r2")), codeSuccess, 1000)
}

func TestAdjustmentAndPromo(t *testing.T) {
	app, _ := newApp(t)

	expect(t, post(t, app, "/adjustment", form("userId", "u1", "reference", "adj1", "amount", "-100")), codeSuccess, 900)
	expect(t, post(t, app, "/adjustment", form("userId", "u1", "reference", "adj2", "amount", "40")), codeSuccess, 940)
	expect(t, post(t, app, "/adjustment", form("userId", "u1", "reference", "adj3", "amount", "0")), codeInvalidAmount, 0)
	expect(t, post(t, app, "/promoWin", form("userId", "u1", "reference", "promo1", "amount", "60", "campaignId", "c1")), codeSuccess, 1000)
}

func TestAuthenticateEnrollsInCredentialCurrency(t *testing.T) {
	app, _ := newApp(t)

	body := post(t, app, "/authenticate", form("token", "newbie"))
	expect(t, body, codeSuccess, 0)
	if body["currency"] != "IDR" || body["userId"] != "newbie" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestHashIsChecked(t *testing.T) {
	app, _ := newApp(t)

	v := form("userId", "u1")
	v.Set("hash", "deadbeef")
	req := httptest.NewRequest(http.MethodPost, "/balance", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != float64(5) {
		t.Fatalf("error = %v, want 5", body["error"])
	}
}
