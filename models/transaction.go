package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Flag is the lifecycle label of a journal row.
type Flag string

const (
	FlagWaiting   Flag = "waiting"
	FlagRunning   Flag = "running"
	FlagSettled   Flag = "settled"
	FlagVoid      Flag = "void"
	FlagResettled Flag = "resettled"
	FlagUnsettled Flag = "unsettled"
)

// Operation names double as canonical id prefixes.
type Operation string

const (
	OpWager    Operation = "wager"
	OpPayout   Operation = "payout"
	OpBonus    Operation = "bonus"
	OpCredit   Operation = "credit"
	OpDebit    Operation = "debit"
	OpCancel   Operation = "cancel"
	OpResettle Operation = "resettle"
	OpUnsettle Operation = "unsettle"
)

// Transaction is one journal row. CanonicalID is unique per provider and is the
// idempotency key shared with the wallet ledger.
type Transaction struct {
	gorm.Model

	Provider    string    `gorm:"size:32;not null;uniqueIndex:idx_journal_provider_canonical"`
	CanonicalID string    `gorm:"size:160;not null;uniqueIndex:idx_journal_provider_canonical"`
	ExternalRef string    `gorm:"size:128;not null;index"`
	Operation   Operation `gorm:"size:16;not null;index"`

	PlayerID string `gorm:"size:64;not null;index"`
	Username string `gorm:"size:64"`
	Currency string `gorm:"size:8"`

	BetAmount    decimal.Decimal `gorm:"type:numeric(20,4);default:0"`
	WinAmount    decimal.Decimal `gorm:"type:numeric(20,4);default:0"`
	BalanceAfter decimal.Decimal `gorm:"type:numeric(20,4);default:0"`

	GameCode string `gorm:"size:64;index"`
	RoundID  string `gorm:"size:128"`

	Flag Flag `gorm:"size:16;not null;index"`

	// SettlementID is the canonical id of the ledger call that produced the
	// current WinAmount; resettle uses it as the previously settled id.
	SettlementID string `gorm:"size:160"`

	Report datatypes.JSON `gorm:"type:jsonb"`
	Note   string         `gorm:"size:255"`

	BetTime   time.Time
	SettledAt *time.Time
}

// TableName keeps the journal table name stable across model renames.
func (Transaction) TableName() string {
	return "journal_transactions"
}

// IsTerminal reports whether no further bet-cycle transition is allowed.
func (f Flag) IsTerminal() bool {
	return f == FlagVoid
}
