// Package store persists the player directory and the transaction journal.
// Every store is scoped to a single provider namespace.
package store

import (
	"context"
	"errors"
	"time"

	"seamless/models"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Players interface {
	GetPlayer(ctx context.Context, playerID string) (models.Player, error)
	// CreatePlayer inserts p unless the player id is already known, and
	// returns the stored row either way.
	CreatePlayer(ctx context.Context, p models.Player) (models.Player, error)
}

// Journal is the read/write surface of the transaction journal.
type Journal interface {
	// FindByExternalReference returns the bet row of a round.
	FindByExternalReference(ctx context.Context, ref string) (models.Transaction, error)
	FindByCanonicalID(ctx context.Context, canonicalID string) (models.Transaction, error)
	// History lists every row of a round in creation order.
	History(ctx context.Context, ref string) ([]models.Transaction, error)
	CountOperations(ctx context.Context, ref string, op models.Operation) (int64, error)
	// Stale lists bet rows still carrying flag that were created before
	// the cutoff, oldest first.
	Stale(ctx context.Context, flag models.Flag, before time.Time, limit int) ([]models.Transaction, error)

	// Insert fails with ErrDuplicate when the canonical id already exists.
	Insert(ctx context.Context, tx *models.Transaction) error
	// UpdateLifecycle applies t to the bet row of ref. ErrDuplicate means
	// the row no longer matches the guard because another request got
	// there first.
	UpdateLifecycle(ctx context.Context, ref string, t Transition) error
	SetBalanceAfter(ctx context.Context, canonicalID string, balance decimal.Decimal) error
}

// Transition moves a bet row from one of From to To. When
// PreviousSettlementID is set the row must also still carry that
// settlement id. The remaining fields are written when set.
type Transition struct {
	From                 []models.Flag
	To                   models.Flag
	PreviousSettlementID *string

	WinAmount    *decimal.Decimal
	SettlementID string
	SettledAt    *time.Time
}

type Store interface {
	Players
	Journal
	// WithinUnitOfWork runs fn against a transactional journal. The work is
	// committed only when fn returns nil and rolled back otherwise.
	WithinUnitOfWork(ctx context.Context, fn func(Journal) error) error
}
