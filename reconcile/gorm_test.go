package reconcile

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"seamless/config"
	"seamless/database"
	"seamless/models"
	"seamless/store"
	"seamless/wallet"

	"github.com/prometheus/client_golang/prometheus"
)

// newSQLiteEngine wires the engine to a gorm store on an in-memory sqlite
// database, the same code path production uses against postgres.
func newSQLiteEngine(t *testing.T) (*Engine, *store.Gorm, *wallet.Memory) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        "file:" + name + "?mode=memory&cache=shared",
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	st := store.NewGorm(db, "SBO")
	led := wallet.NewMemory()
	led.Fund("alice", dec(1000))
	if _, err := st.CreatePlayer(context.Background(), models.Player{PlayerID: "p1", Username: "alice", Currency: "IDR"}); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}

	e := New("SBO", st, led, NewMetrics(prometheus.NewRegistry()), Options{
		LedgerTimeout: time.Second,
		Now:           func() time.Time { return fixedNow },
	})
	return e, st, led
}

func TestGormBetSettleCancelCycle(t *testing.T) {
	ok := must(t)
	e, st, led := newSQLiteEngine(t)
	ctx := context.Background()

	res := ok(e.PlaceBet(ctx, bet("R1", 100)))
	wantBalance(t, res.Balance, 900)
	res = ok(e.Settle(ctx, settle("R1", 300)))
	wantBalance(t, res.Balance, 1200)

	res, err := e.Settle(ctx, settle("R1", 300))
	wantErr(t, err, ErrDuplicate)
	wantBalance(t, res.Balance, 1200)

	ok(e.PlaceBet(ctx, bet("R2", 50)))
	res = ok(e.Cancel(ctx, CancelRequest{PlayerID: "p1", Reference: "R2"}))
	wantBalance(t, res.Balance, 1200)

	rows, err := st.History(ctx, "R2")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 2 || rows[0].Flag != models.FlagVoid || rows[1].CanonicalID != "cancel-1-R2" {
		t.Fatalf("unexpected history %+v", rows)
	}
	if led.Calls("wager") != 2 || led.Calls("payout") != 1 || led.Calls("cancel") != 1 {
		t.Fatalf("ledger calls: wager %d, payout %d, cancel %d", led.Calls("wager"), led.Calls("payout"), led.Calls("cancel"))
	}
}

func TestGormLedgerRefusalRollsBack(t *testing.T) {
	ok := must(t)
	e, st, led := newSQLiteEngine(t)
	ctx := context.Background()
	ok(e.PlaceBet(ctx, bet("R1", 100)))

	led.FailNext("payout", wallet.StatusInternalError)
	_, err := e.Settle(ctx, settle("R1", 300))
	wantErr(t, err, ErrWallet)

	row, err := st.FindByExternalReference(ctx, "R1")
	if err != nil {
		t.Fatalf("FindByExternalReference: %v", err)
	}
	if row.Flag != models.FlagRunning || row.SettlementID != "" {
		t.Fatalf("bet row changed despite rollback: %+v", row)
	}
	if _, err := st.FindByCanonicalID(ctx, "payout-R1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("payout row survived rollback: %v", err)
	}
}

func TestGormRefundAndUnsettle(t *testing.T) {
	ok := must(t)
	e, st, _ := newSQLiteEngine(t)
	ctx := context.Background()
	ok(e.PlaceBet(ctx, bet("R1", 100)))
	ok(e.Settle(ctx, settle("R1", 300)))

	res := ok(e.Refund(ctx, RefundRequest{PlayerID: "p1", Reference: "R1", CorrectionRef: "C1", Win: dec(100)}))
	wantBalance(t, res.Balance, 1000)
	res = ok(e.Unsettle(ctx, UnsettleRequest{PlayerID: "p1", Reference: "R1", CorrectionRef: "U1"}))
	wantBalance(t, res.Balance, 900)

	row, err := st.FindByExternalReference(ctx, "R1")
	if err != nil {
		t.Fatalf("FindByExternalReference: %v", err)
	}
	if row.Flag != models.FlagUnsettled || row.SettlementID != "unsettle-U1" || !row.WinAmount.IsZero() {
		t.Fatalf("unexpected bet row %+v", row)
	}
}
