package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"seamless/config"
	"seamless/database"
	"seamless/models"

	"github.com/shopspring/decimal"
)

func newSQLiteStore(t *testing.T, provider string) *Gorm {
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
	return NewGorm(db, provider)
}

// eachStore runs fn against every Store implementation.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory("PRAGMATIC")) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t, "PRAGMATIC")) })
}

func wagerRow(ref string) *models.Transaction {
	return &models.Transaction{
		CanonicalID: "wager-" + ref,
		ExternalRef: ref,
		Operation:   models.OpWager,
		PlayerID:    "p1",
		Username:    "alice",
		Currency:    "IDR",
		BetAmount:   decimal.NewFromInt(100),
		Flag:        models.FlagRunning,
	}
}

func TestPlayerDirectory(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		if _, err := s.GetPlayer(ctx, "p1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetPlayer on empty directory: err = %v, want ErrNotFound", err)
		}

		created, err := s.CreatePlayer(ctx, models.Player{PlayerID: "p1", Username: "alice", Currency: "IDR"})
		if err != nil {
			t.Fatalf("CreatePlayer: %v", err)
		}
		if created.Provider != "PRAGMATIC" || created.Currency != "IDR" {
			t.Fatalf("unexpected player %+v", created)
		}

		again, err := s.CreatePlayer(ctx, models.Player{PlayerID: "p1", Username: "other", Currency: "USD"})
		if err != nil {
			t.Fatalf("second CreatePlayer: %v", err)
		}
		if again.Username != "alice" || again.Currency != "IDR" {
			t.Fatalf("insert-or-ignore overwrote player: %+v", again)
		}
	})
}

func TestJournalInsertRejectsDuplicateCanonicalID(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Insert(ctx, wagerRow("R1")); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := s.Insert(ctx, wagerRow("R1")); !errors.Is(err, ErrDuplicate) {
			t.Fatalf("second Insert: err = %v, want ErrDuplicate", err)
		}

		rows, err := s.History(ctx, "R1")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("History returned %d rows, want 1", len(rows))
		}
	})
}

func TestJournalHistoryKeepsCreationOrder(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rows := []*models.Transaction{
			wagerRow("R2"),
			{CanonicalID: "payout-R2", ExternalRef: "R2", Operation: models.OpPayout, PlayerID: "p1", Flag: models.FlagSettled},
			{CanonicalID: "resettle-C1", ExternalRef: "R2", Operation: models.OpResettle, PlayerID: "p1", Flag: models.FlagResettled},
			wagerRow("OTHER"),
		}
		for _, r := range rows {
			if err := s.Insert(ctx, r); err != nil {
				t.Fatalf("Insert %s: %v", r.CanonicalID, err)
			}
		}

		got, err := s.History(ctx, "R2")
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		want := []string{"wager-R2", "payout-R2", "resettle-C1"}
		if len(got) != len(want) {
			t.Fatalf("History returned %d rows, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i].CanonicalID != want[i] {
				t.Errorf("row %d = %s, want %s", i, got[i].CanonicalID, want[i])
			}
		}

		bet, err := s.FindByExternalReference(ctx, "R2")
		if err != nil {
			t.Fatalf("FindByExternalReference: %v", err)
		}
		if bet.CanonicalID != "wager-R2" {
			t.Fatalf("FindByExternalReference returned %s, want the bet row", bet.CanonicalID)
		}

		n, err := s.CountOperations(ctx, "R2", models.OpPayout)
		if err != nil || n != 1 {
			t.Fatalf("CountOperations = %d, %v; want 1", n, err)
		}
	})
}

func TestUpdateLifecycleIsGuarded(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Insert(ctx, wagerRow("R3")); err != nil {
			t.Fatalf("Insert: %v", err)
		}

		win := decimal.NewFromInt(300)
		err := s.UpdateLifecycle(ctx, "R3", Transition{
			From:         []models.Flag{models.FlagRunning},
			To:           models.FlagSettled,
			WinAmount:    &win,
			SettlementID: "payout-R3",
		})
		if err != nil {
			t.Fatalf("UpdateLifecycle: %v", err)
		}

		err = s.UpdateLifecycle(ctx, "R3", Transition{From: []models.Flag{models.FlagRunning}, To: models.FlagVoid})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("second transition: err = %v, want ErrDuplicate", err)
		}

		stale := ""
		err = s.UpdateLifecycle(ctx, "R3", Transition{
			From:                 []models.Flag{models.FlagSettled},
			To:                   models.FlagResettled,
			PreviousSettlementID: &stale,
		})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("transition with stale settlement id: err = %v, want ErrDuplicate", err)
		}

		bet, err := s.FindByExternalReference(ctx, "R3")
		if err != nil {
			t.Fatalf("FindByExternalReference: %v", err)
		}
		if bet.Flag != models.FlagSettled || !bet.WinAmount.Equal(win) || bet.SettlementID != "payout-R3" {
			t.Fatalf("unexpected bet row %+v", bet)
		}
	})
}

func TestUnitOfWorkRollsBack(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		boom := errors.New("ledger refused")

		err := s.WithinUnitOfWork(ctx, func(j Journal) error {
			if err := j.Insert(ctx, wagerRow("R4")); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("WithinUnitOfWork err = %v, want %v", err, boom)
		}
		if _, err := s.FindByCanonicalID(ctx, "wager-R4"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("row survived rollback: err = %v", err)
		}

		err = s.WithinUnitOfWork(ctx, func(j Journal) error {
			if err := j.Insert(ctx, wagerRow("R4")); err != nil {
				return err
			}
			return j.SetBalanceAfter(ctx, "wager-R4", decimal.NewFromInt(900))
		})
		if err != nil {
			t.Fatalf("WithinUnitOfWork: %v", err)
		}
		row, err := s.FindByCanonicalID(ctx, "wager-R4")
		if err != nil {
			t.Fatalf("FindByCanonicalID: %v", err)
		}
		if !row.BalanceAfter.Equal(decimal.NewFromInt(900)) {
			t.Fatalf("BalanceAfter = %s, want 900", row.BalanceAfter)
		}
	})
}

func TestMemoryFailNextCommit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("SBO")
	m.FailNextCommit()

	err := m.WithinUnitOfWork(ctx, func(j Journal) error {
		return j.Insert(ctx, wagerRow("R5"))
	})
	if !errors.Is(err, ErrCommitFailed) {
		t.Fatalf("err = %v, want ErrCommitFailed", err)
	}
	if _, err := m.FindByCanonicalID(ctx, "wager-R5"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("row survived failed commit: err = %v", err)
	}

	if err := m.WithinUnitOfWork(ctx, func(j Journal) error {
		return j.Insert(ctx, wagerRow("R5"))
	}); err != nil {
		t.Fatalf("commit after injected failure: %v", err)
	}
}

func TestMemoryConcurrentInsertOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("SBO")

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- m.WithinUnitOfWork(ctx, func(j Journal) error {
				return j.Insert(ctx, wagerRow("R6"))
			})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || dup != 9 {
		t.Fatalf("ok = %d, dup = %d; want 1 and 9", ok, dup)
	}
}

func TestStoresAreScopedByProvider(t *testing.T) {
	a := newSQLiteStore(t, "PRAGMATIC")
	b := NewGorm(a.db, "SBO")
	ctx := context.Background()

	if err := a.Insert(ctx, wagerRow("R7")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := b.FindByExternalReference(ctx, "R7"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other provider sees row: err = %v", err)
	}
	if err := b.Insert(ctx, wagerRow("R7")); err != nil {
		t.Fatalf("same canonical id under another provider: %v", err)
	}
}

func TestStaleListsOldBetsWithFlag(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, ref := range []string{"S1", "S2", "S3"} {
			row := wagerRow(ref)
			if ref != "S2" {
				row.Flag = models.FlagWaiting
			}
			if err := s.WithinUnitOfWork(ctx, func(j Journal) error { return j.Insert(ctx, row) }); err != nil {
				t.Fatalf("insert %s: %v", ref, err)
			}
		}

		rows, err := s.Stale(ctx, models.FlagWaiting, time.Now().Add(time.Minute), 10)
		if err != nil {
			t.Fatalf("Stale: %v", err)
		}
		if len(rows) != 2 || rows[0].ExternalRef != "S1" || rows[1].ExternalRef != "S3" {
			t.Fatalf("unexpected rows %+v", rows)
		}

		rows, err = s.Stale(ctx, models.FlagWaiting, time.Now().Add(time.Minute), 1)
		if err != nil || len(rows) != 1 {
			t.Fatalf("limit ignored: %d rows, %v", len(rows), err)
		}

		rows, err = s.Stale(ctx, models.FlagWaiting, time.Now().Add(-time.Hour), 10)
		if err != nil || len(rows) != 0 {
			t.Fatalf("recent rows listed: %d rows, %v", len(rows), err)
		}
	})
}
