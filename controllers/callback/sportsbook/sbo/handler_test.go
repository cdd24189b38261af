package sbo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

const companyKey = "C0MPANY"

func newApp(t *testing.T) (*fiber.App, *wallet.Memory) {
	t.Helper()
	st := store.NewMemory(Provider)
	led := wallet.NewMemory()
	if _, err := st.CreatePlayer(context.Background(), models.Player{PlayerID: "member1", Username: "alice", Currency: "IDR"}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	// 1,000 in display units
	led.Fund("alice", decimal.NewFromInt(1_000_000))

	creds, err := config.NewCredentialTable("test", []config.Credential{
		{Provider: Provider, Currency: "IDR", Key: companyKey},
	})
	if err != nil {
		t.Fatalf("NewCredentialTable: %v", err)
	}

	h := NewHandler(reconcile.New(Provider, st, led, nil, reconcile.Options{}))
	app := fiber.New()
	group := app.Group("/", middlewares.SboAuth(creds, Provider))
	group.Post("/GetBalance", h.GetBalance)
	group.Post("/GetBetStatus", h.GetBetStatus)
	group.Post("/Deduct", h.Deduct)
	group.Post("/Settle", h.Settle)
	group.Post("/Cancel", h.Cancel)
	group.Post("/Rollback", h.Rollback)
	group.Post("/Bonus", h.Bonus)
	return app, led
}

func call(t *testing.T, app *fiber.App, path string, payload map[string]any) map[string]any {
	t.Helper()
	if _, ok := payload["CompanyKey"]; !ok {
		payload["CompanyKey"] = companyKey
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
	return body
}

func expect(t *testing.T, body map[string]any, code int, balance float64) {
	t.Helper()
	if got := body["ErrorCode"]; got != float64(code) {
		t.Fatalf("ErrorCode = %v, want %d (%v)", got, code, body["ErrorMessage"])
	}
	if got := body["Balance"]; got != balance {
		t.Fatalf("Balance = %v, want %v", got, balance)
	}
}

func deduct(ref string, amount float64) map[string]any {
	return map[string]any{"Username": "member1", "TransferCode": ref, "Amount": amount, "Gpid": 1, "GameId": 0}
}

func TestDeductSettleInDisplayUnits(t *testing.T) {
	app, led := newApp(t)

	expect(t, call(t, app, "/Deduct", deduct("T1", 100)), codeSuccess, 900)
	if got := led.BalanceOf("alice"); !got.Equal(decimal.NewFromInt(900_000)) {
		t.Fatalf("ledger balance = %s, want 900000", got)
	}

	expect(t, call(t, app, "/Deduct", deduct("T1", 100)), codeDuplicate, 900)

	settle := map[string]any{"Username": "member1", "TransferCode": "T1", "WinLoss": 300.0, "ResultType": 0}
	expect(t, call(t, app, "/Settle", settle), codeSuccess, 1200)
	expect(t, call(t, app, "/Settle", map[string]any{"Username": "member1", "TransferCode": "T1", "WinLoss": 300.0}), codeAlreadySettled, 1200)

	status := call(t, app, "/GetBetStatus", map[string]any{"Username": "member1", "TransferCode": "T1"})
	if status["Status"] != "settled" || status["WinLoss"] != 300.0 || status["Stake"] != 100.0 {
		t.Fatalf("unexpected status %v", status)
	}
}

func TestDeductRejections(t *testing.T) {
	app, _ := newApp(t)

	expect(t, call(t, app, "/Deduct", deduct("BIG", 5000)), codeInsufficientFunds, 1000)
	expect(t, call(t, app, "/Deduct", map[string]any{"Username": "ghost", "TransferCode": "X", "Amount": 1.0}), codePlayerNotFound, 0)

	body := call(t, app, "/Deduct", map[string]any{"Username": "member1", "TransferCode": "X", "Amount": 0})
	if body["ErrorCode"] != float64(codeValidation) {
		t.Fatalf("ErrorCode = %v, want %d", body["ErrorCode"], codeValidation)
	}
}

func TestDeductRefusesFractionalRupiah(t *testing.T) {
	app, led := newApp(t)

	// 100.0005 thousand is 100000.5 rupiah
	body := call(t, app, "/Deduct", deduct("FRAC", 100.0005))
	if body["ErrorCode"] != float64(codeInvalidRequest) {
		t.Fatalf("ErrorCode = %v, want %d", body["ErrorCode"], codeInvalidRequest)
	}
	if n := led.Calls("wager"); n != 0 {
		t.Fatalf("wager calls = %d, want 0", n)
	}
	if got := led.BalanceOf("alice"); !got.Equal(decimal.NewFromInt(1_000_000)) {
		t.Fatalf("ledger balance = %s, want 1000000", got)
	}
}

func TestCancel(t *testing.T) {
	app, _ := newApp(t)

	expect(t, call(t, app, "/Deduct", deduct("T2", 50)), codeSuccess, 950)
	cancel := map[string]any{"Username": "member1", "TransferCode": "T2"}
	expect(t, call(t, app, "/Cancel", cancel), codeSuccess, 1000)
	expect(t, call(t, app, "/Cancel", map[string]any{"Username": "member1", "TransferCode": "T2"}), codeAlreadyCanceled, 1000)
	expect(t, call(t, app, "/Cancel", map[string]any{"Username": "member1", "TransferCode": "NOPE"}), codeBetNotFound, 0)

	expect(t, call(t, app, "/Deduct", deduct("T3", 50)), codeSuccess, 950)
	expect(t, call(t, app, "/Settle", map[string]any{"Username": "member1", "TransferCode": "T3", "WinLoss": 0.0}), codeSuccess, 950)
	expect(t, call(t, app, "/Cancel", map[string]any{"Username": "member1", "TransferCode": "T3"}), codeAlreadySettled, 950)
}

func TestRollbackAndSettleAgain(t *testing.T) {
	app, _ := newApp(t)

	expect(t, call(t, app, "/Deduct", deduct("T4", 100)), codeSuccess, 900)
	expect(t, call(t, app, "/Rollback", map[string]any{"Username": "member1", "TransferCode": "T4"}), codeNotRollbackable, 900)

	expect(t, call(t, app, "/Settle", map[string]any{"Username": "member1", "TransferCode": "T4", "WinLoss": 200.0}), codeSuccess, 1100)
	expect(t, call(t, app, "/Rollback", map[string]any{"Username": "member1", "TransferCode": "T4"}), codeSuccess, 900)
	expect(t, call(t, app, "/Rollback", map[string]any{"Username": "member1", "TransferCode": "T4"}), codeAlreadyRollback, 900)

	expect(t, call(t, app, "/Settle", map[string]any{"Username": "member1", "TransferCode": "T4", "WinLoss": 150.0}), codeSuccess, 1050)
	expect(t, call(t, app, "/Rollback", map[string]any{"Username": "member1", "TransferCode": "T4"}), codeSuccess, 900)
}

func TestBonusAndBalance(t *testing.T) {
	app, _ := newApp(t)

	bonus := map[string]any{"Username": "member1", "TransferCode": "B1", "Amount": 25.5}
	expect(t, call(t, app, "/Bonus", bonus), codeSuccess, 1025.5)
	expect(t, call(t, app, "/Bonus", map[string]any{"Username": "member1", "TransferCode": "B1", "Amount": 25.5}), codeDuplicate, 1025.5)

	body := call(t, app, "/GetBalance", map[string]any{"Username": "member1"})
	expect(t, body, codeSuccess, 1025.5)
	if body["Currency"] != "IDR" {
		t.Fatalf("Currency = %v", body["Currency"])
	}
}

func TestCompanyKeyIsChecked(t *testing.T) {
	app, _ := newApp(t)

	body := call(t, app, "/GetBalance", map[string]any{"Username": "member1", "CompanyKey": "wrong"})
	if body["ErrorCode"] != float64(4) {
		t.Fatalf("ErrorCode = %v, want 4", body["ErrorCode"])
	}
}
