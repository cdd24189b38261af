package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seamless/database"
	"seamless/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*Gorm)(nil)

// Gorm is the relational Store used in production.
type Gorm struct {
	gormJournal
}

func NewGorm(db *gorm.DB, provider string) *Gorm {
	return &Gorm{gormJournal{db: db, provider: provider}}
}

func (s *Gorm) GetPlayer(ctx context.Context, playerID string) (models.Player, error) {
	var p models.Player
	err := s.db.WithContext(ctx).
		Where("provider = ? AND player_id = ?", s.provider, playerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return p, err
}

func (s *Gorm) CreatePlayer(ctx context.Context, p models.Player) (models.Player, error) {
	p.Provider = s.provider
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&p).Error; err != nil {
		return models.Player{}, fmt.Errorf("create player %s: %w", p.PlayerID, err)
	}
	return s.GetPlayer(ctx, p.PlayerID)
}

func (s *Gorm) WithinUnitOfWork(ctx context.Context, fn func(Journal) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormJournal{db: tx, provider: s.provider})
	})
}

type gormJournal struct {
	db       *gorm.DB
	provider string
}

func (j *gormJournal) scoped(ctx context.Context) *gorm.DB {
	return j.db.WithContext(ctx).Model(&models.Transaction{}).Where("provider = ?", j.provider)
}

func (j *gormJournal) FindByExternalReference(ctx context.Context, ref string) (models.Transaction, error) {
	var tx models.Transaction
	err := j.scoped(ctx).
		Where("external_ref = ? AND operation = ?", ref, models.OpWager).
		Order("id").
		First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, fmt.Errorf("reference %s: %w", ref, ErrNotFound)
	}
	return tx, err
}

func (j *gormJournal) FindByCanonicalID(ctx context.Context, canonicalID string) (models.Transaction, error) {
	var tx models.Transaction
	err := j.scoped(ctx).Where("canonical_id = ?", canonicalID).First(&tx).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", canonicalID, ErrNotFound)
	}
	return tx, err
}

func (j *gormJournal) History(ctx context.Context, ref string) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := j.scoped(ctx).Where("external_ref = ?", ref).Order("id").Find(&rows).Error
	return rows, err
}

func (j *gormJournal) CountOperations(ctx context.Context, ref string, op models.Operation) (int64, error) {
	var n int64
	err := j.scoped(ctx).Where("external_ref = ? AND operation = ?", ref, op).Count(&n).Error
	return n, err
}

func (j *gormJournal) Stale(ctx context.Context, flag models.Flag, before time.Time, limit int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := j.scoped(ctx).
		Where("operation = ? AND flag = ? AND created_at < ?", models.OpWager, flag, before).
		Order("id").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (j *gormJournal) Insert(ctx context.Context, tx *models.Transaction) error {
	tx.Provider = j.provider
	if err := j.db.WithContext(ctx).Create(tx).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", tx.CanonicalID, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (j *gormJournal) UpdateLifecycle(ctx context.Context, ref string, t Transition) error {
	updates := map[string]any{"flag": t.To}
	if t.WinAmount != nil {
		updates["win_amount"] = *t.WinAmount
	}
	if t.SettlementID != "" {
		updates["settlement_id"] = t.SettlementID
	}
	if t.SettledAt != nil {
		updates["settled_at"] = *t.SettledAt
	}

	q := j.scoped(ctx).Where("external_ref = ? AND operation = ? AND flag IN ?", ref, models.OpWager, t.From)
	if t.PreviousSettlementID != nil {
		q = q.Where("settlement_id = ?", *t.PreviousSettlementID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reference %s is no longer %v: %w", ref, t.From, ErrDuplicate)
	}
	return nil
}

func (j *gormJournal) SetBalanceAfter(ctx context.Context, canonicalID string, balance decimal.Decimal) error {
	return j.scoped(ctx).
		Where("canonical_id = ?", canonicalID).
		Update("balance_after", balance).Error
}
