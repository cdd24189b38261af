package database

import (
	"errors"
	"fmt"
	"testing"

	"seamless/config"
	"seamless/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"gorm translated", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23503"}, false},
		{"sqlite", errors.New("UNIQUE constraint failed: journal_transactions.provider, journal_transactions.canonical_id"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		if got := IsUniqueViolation(tt.err); got != tt.want {
			t.Errorf("%s: IsUniqueViolation() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestConnectSQLiteEnforcesCanonicalIDUniqueness(t *testing.T) {
	db, err := Connect(config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        "file:TestConnectSQLite?mode=memory&cache=shared",
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	row := models.Transaction{
		Provider:    "PRAGMATIC",
		CanonicalID: "wager-R1",
		ExternalRef: "R1",
		Operation:   models.OpWager,
		PlayerID:    "p1",
		Username:    "alice",
		Currency:    "IDR",
		Flag:        models.FlagRunning,
	}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("first insert error = %v", err)
	}

	dup := row
	dup.ID = 0
	err = db.Create(&dup).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("second insert error = %v, want unique violation", err)
	}

	other := row
	other.ID = 0
	other.Provider = "SBO"
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("insert under another provider error = %v", err)
	}
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	if _, err := Connect(config.DatabaseConfig{Driver: "mysql"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
