package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"seamless/models"

	"github.com/shopspring/decimal"
)

var _ Store = (*Memory)(nil)

// ErrCommitFailed is returned by Memory when a commit failure was injected.
var ErrCommitFailed = errors.New("commit failed")

// Memory is an in-process Store for tests and local runs. A unit of work
// operates on a copy of the journal that replaces the original on commit.
type Memory struct {
	provider string

	mu         sync.Mutex
	state      *memState
	failCommit bool
}

type memState struct {
	nextID  uint
	players map[string]models.Player
	rows    []models.Transaction
}

func NewMemory(provider string) *Memory {
	return &Memory{
		provider: provider,
		state:    &memState{players: map[string]models.Player{}},
	}
}

// FailNextCommit makes the next unit of work fail at commit time after its
// callback succeeded.
func (m *Memory) FailNextCommit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommit = true
}

func (m *Memory) GetPlayer(_ context.Context, playerID string) (models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.players[playerID]
	if !ok {
		return models.Player{}, fmt.Errorf("player %s: %w", playerID, ErrNotFound)
	}
	return p, nil
}

func (m *Memory) CreatePlayer(_ context.Context, p models.Player) (models.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.state.players[p.PlayerID]; ok {
		return existing, nil
	}
	m.state.nextID++
	p.ID = m.state.nextID
	p.Provider = m.provider
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.state.players[p.PlayerID] = p
	return p, nil
}

func (m *Memory) journal() *memJournal {
	return &memJournal{state: m.state, provider: m.provider}
}

func (m *Memory) FindByExternalReference(ctx context.Context, ref string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().FindByExternalReference(ctx, ref)
}

func (m *Memory) FindByCanonicalID(ctx context.Context, canonicalID string) (models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().FindByCanonicalID(ctx, canonicalID)
}

func (m *Memory) History(ctx context.Context, ref string) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().History(ctx, ref)
}

func (m *Memory) CountOperations(ctx context.Context, ref string, op models.Operation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().CountOperations(ctx, ref, op)
}

func (m *Memory) Stale(ctx context.Context, flag models.Flag, before time.Time, limit int) ([]models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().Stale(ctx, flag, before, limit)
}

func (m *Memory) Insert(ctx context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().Insert(ctx, tx)
}

func (m *Memory) UpdateLifecycle(ctx context.Context, ref string, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().UpdateLifecycle(ctx, ref, t)
}

func (m *Memory) SetBalanceAfter(ctx context.Context, canonicalID string, balance decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.journal().SetBalanceAfter(ctx, canonicalID, balance)
}

// WithinUnitOfWork holds the store lock for the whole unit, so units of work
// on one Memory are serialised.
func (m *Memory) WithinUnitOfWork(ctx context.Context, fn func(Journal) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(&memJournal{state: work, provider: m.provider}); err != nil {
		return err
	}
	if m.failCommit {
		m.failCommit = false
		return ErrCommitFailed
	}
	m.state = work
	return nil
}

func (s *memState) clone() *memState {
	c := &memState{
		nextID:  s.nextID,
		players: make(map[string]models.Player, len(s.players)),
		rows:    slices.Clone(s.rows),
	}
	for k, v := range s.players {
		c.players[k] = v
	}
	return c
}

type memJournal struct {
	state    *memState
	provider string
}

func (j *memJournal) FindByExternalReference(_ context.Context, ref string) (models.Transaction, error) {
	for _, row := range j.state.rows {
		if row.ExternalRef == ref && row.Operation == models.OpWager {
			return row, nil
		}
	}
	return models.Transaction{}, fmt.Errorf("reference %s: %w", ref, ErrNotFound)
}

func (j *memJournal) FindByCanonicalID(_ context.Context, canonicalID string) (models.Transaction, error) {
	for _, row := range j.state.rows {
		if row.CanonicalID == canonicalID {
			return row, nil
		}
	}
	return models.Transaction{}, fmt.Errorf("transaction %s: %w", canonicalID, ErrNotFound)
}

func (j *memJournal) History(_ context.Context, ref string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, row := range j.state.rows {
		if row.ExternalRef == ref {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (j *memJournal) CountOperations(_ context.Context, ref string, op models.Operation) (int64, error) {
	var n int64
	for _, row := range j.state.rows {
		if row.ExternalRef == ref && row.Operation == op {
			n++
		}
	}
	return n, nil
}

func (j *memJournal) Stale(_ context.Context, flag models.Flag, before time.Time, limit int) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, row := range j.state.rows {
		if limit > 0 && len(out) == limit {
			break
		}
		if row.Operation == models.OpWager && row.Flag == flag && row.CreatedAt.Before(before) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (j *memJournal) Insert(_ context.Context, tx *models.Transaction) error {
	for _, row := range j.state.rows {
		if row.CanonicalID == tx.CanonicalID {
			return fmt.Errorf("transaction %s: %w", tx.CanonicalID, ErrDuplicate)
		}
	}
	j.state.nextID++
	tx.ID = j.state.nextID
	tx.Provider = j.provider
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	j.state.rows = append(j.state.rows, *tx)
	return nil
}

func (j *memJournal) UpdateLifecycle(_ context.Context, ref string, t Transition) error {
	for i := range j.state.rows {
		row := &j.state.rows[i]
		if row.ExternalRef != ref || row.Operation != models.OpWager {
			continue
		}
		if !slices.Contains(t.From, row.Flag) {
			continue
		}
		if t.PreviousSettlementID != nil && row.SettlementID != *t.PreviousSettlementID {
			continue
		}
		row.Flag = t.To
		if t.WinAmount != nil {
			row.WinAmount = *t.WinAmount
		}
		if t.SettlementID != "" {
			row.SettlementID = t.SettlementID
		}
		if t.SettledAt != nil {
			at := *t.SettledAt
			row.SettledAt = &at
		}
		row.UpdatedAt = time.Now()
		return nil
	}
	return fmt.Errorf("reference %s is no longer %v: %w", ref, t.From, ErrDuplicate)
}

func (j *memJournal) SetBalanceAfter(_ context.Context, canonicalID string, balance decimal.Decimal) error {
	for i := range j.state.rows {
		if j.state.rows[i].CanonicalID == canonicalID {
			j.state.rows[i].BalanceAfter = balance
			return nil
		}
	}
	return fmt.Errorf("transaction %s: %w", canonicalID, ErrNotFound)
}
