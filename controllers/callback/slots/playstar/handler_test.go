package playstar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"seamless/models"
	"seamless/reconcile"
	"seamless/store"
	"seamless/wallet"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func newApp(t *testing.T) (*fiber.App, *wallet.Memory) {
	t.Helper()
	st := store.NewMemory(Provider)
	led := wallet.NewMemory()
	if _, err := st.CreatePlayer(context.Background(), models.Player{PlayerID: "m1", Username: "carol", Currency: "IDR"}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	led.Fund("carol", decimal.NewFromInt(1000))

	h := NewHandler(reconcile.New(Provider, st, led, nil, reconcile.Options{}))
	app := fiber.New()
	app.Get("/balance", h.Balance)
	app.Get("/bet", h.Bet)
	app.Get("/result", h.Result)
	app.Get("/refund", h.Refund)
	app.Get("/bonus", h.Bonus)
	return app, led
}

func get(t *testing.T, app *fiber.App, path string, kv ...string) Response {
	t.Helper()
	q := url.Values{"access_token": {"tok"}, "member_id": {"m1"}, "game_id": {"PSS-ON-00001"}}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			q.Del(kv[i])
			continue
		}
		q.Set(kv[i], kv[i+1])
	}
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path+"?"+q.Encode(), nil), -1)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()

	var body Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return body
}

func TestBetResultRefund(t *testing.T) {
	app, led := newApp(t)

	tests := []struct {
		name    string
		path    string
		args    []string
		status  int
		balance uint64
	}{
		{"balance", "/balance", nil, statusSuccess, 1000},
		{"bet", "/bet", []string{"txn_id", "101", "total_bet", "100"}, statusSuccess, 900},
		{"duplicate bet", "/bet", []string{"txn_id", "101", "total_bet", "100"}, statusSuccess, 900},
		{"result with bonus win", "/result", []string{"txn_id", "101", "total_win", "250", "bonus_win", "50"}, statusSuccess, 1200},
		{"refund after result", "/refund", []string{"txn_id", "101"}, statusInvalidTxn, 0},
		{"second bet", "/bet", []string{"txn_id", "102", "total_bet", "200"}, statusSuccess, 1000},
		{"refund", "/refund", []string{"txn_id", "102"}, statusSuccess, 1200},
		{"refund again", "/refund", []string{"txn_id", "102"}, statusSuccess, 1200},
	}
	for _, tt := range tests {
		got := get(t, app, tt.path, tt.args...)
		if got.StatusCode != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.name, got.StatusCode, tt.status)
		}
		if tt.balance != 0 && got.Balance != tt.balance {
			t.Fatalf("%s: balance = %d, want %d", tt.name, got.Balance, tt.balance)
		}
	}
	if n := led.Calls("wager"); n != 2 {
		t.Fatalf("wager calls = %d, want 2", n)
	}
}

func TestRejections(t *testing.T) {
	app, _ := newApp(t)

	tests := []struct {
		name   string
		path   string
		args   []string
		status int
	}{
		{"missing token", "/balance", []string{"access_token", ""}, statusInvalidMember},
		{"unknown member", "/balance", []string{"member_id", "ghost"}, statusInvalidMember},
		{"non numeric txn", "/bet", []string{"txn_id", "abc", "total_bet", "1"}, statusInvalidTxn},
		{"insufficient funds", "/bet", []string{"txn_id", "201", "total_bet", "5000"}, statusInsufficientFunds},
		{"zero bet", "/bet", []string{"txn_id", "202", "total_bet", "0"}, statusError},
		{"result without bet", "/result", []string{"txn_id", "203", "total_win", "10"}, statusInvalidTxn},
		{"long bonus type", "/bonus", []string{"bonus_id", "9", "bonus_reward", "5", "bonus_type", "thirteen-char"}, statusError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := get(t, app, tt.path, tt.args...); got.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", got.StatusCode, tt.status)
			}
		})
	}
}

func TestBonus(t *testing.T) {
	app, _ := newApp(t)

	got := get(t, app, "/bonus", "bonus_id", "77", "bonus_reward", "30", "bonus_type", "freespin")
	if got.StatusCode != statusSuccess || got.Balance != 1030 {
		t.Fatalf("got %+v", got)
	}
	got = get(t, app, "/bonus", "bonus_id", "77", "bonus_reward", "30", "bonus_type", "freespin")
	if got.StatusCode != statusSuccess || got.Balance != 1030 {
		t.Fatalf("duplicate bonus: %+v", got)
	}
}
