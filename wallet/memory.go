package wallet

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

var _ Gateway = (*Memory)(nil)

// Memory is an in-process ledger. Transaction ids are applied at most once;
// replays answer with the current balance.
type Memory struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	applied  map[string]bool
	calls    map[string]int
	failures map[string]int
	errs     map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		balances: map[string]decimal.Decimal{},
		applied:  map[string]bool{},
		calls:    map[string]int{},
		failures: map[string]int{},
		errs:     map[string]error{},
	}
}

// Fund sets the balance of a player account.
func (m *Memory) Fund(username string, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[username] = amount
}

// FailNext makes the next call of op answer with status.
func (m *Memory) FailNext(op string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = status
}

// ErrorNext makes the next call of op fail with err, as a transport error would.
func (m *Memory) ErrorNext(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

// Calls reports how many times op was invoked, including refused calls.
func (m *Memory) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *Memory) BalanceOf(username string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[username]
}

func (m *Memory) Applied(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[transactionID]
}

func (m *Memory) Balance(_ context.Context, p Player) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["balance"]++
	if err := m.takeErr("balance"); err != nil {
		return Response{}, err
	}
	if status, ok := m.takeFailure("balance"); ok {
		return Response{Status: status}, nil
	}
	return Response{Status: StatusSuccess, Balance: m.balances[p.Username]}, nil
}

func (m *Memory) Wager(_ context.Context, p Player, transactionID string, amount decimal.Decimal, _ Report) (Response, error) {
	return m.apply("wager", p, amount.Neg(), "", transactionID)
}

func (m *Memory) Payout(_ context.Context, p Player, transactionID string, amount decimal.Decimal, _ Report) (Response, error) {
	return m.apply("payout", p, amount, "", transactionID)
}

func (m *Memory) WagerAndPayout(_ context.Context, p Player, wagerID string, stake decimal.Decimal, payoutID string, win decimal.Decimal, _ Report) (Response, error) {
	return m.apply("wagerAndPayout", p, win.Sub(stake), "", wagerID, payoutID)
}

func (m *Memory) Bonus(_ context.Context, p Player, transactionID string, amount decimal.Decimal, _ Report) (Response, error) {
	return m.apply("bonus", p, amount, "", transactionID)
}

func (m *Memory) Resettle(_ context.Context, p Player, transactionID string, delta decimal.Decimal, _, _ string, _ Report) (Response, error) {
	return m.apply("resettle", p, delta, "", transactionID)
}

func (m *Memory) Cancel(_ context.Context, p Player, transactionID string, amount decimal.Decimal, transactionIDToCancel string, _ Report) (Response, error) {
	return m.apply("cancel", p, amount, transactionIDToCancel, transactionID)
}

// apply moves delta into the player account once per transaction id. When
// requires is set, that transaction must have been applied before. Only
// corrections may take a balance below zero.
func (m *Memory) apply(op string, p Player, delta decimal.Decimal, requires string, ids ...string) (Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls[op]++
	if err := m.takeErr(op); err != nil {
		return Response{}, err
	}
	current := m.balances[p.Username]
	if status, ok := m.takeFailure(op); ok {
		return Response{Status: status, Balance: current}, nil
	}

	if m.applied[ids[0]] {
		return Response{Status: StatusSuccess, Balance: current}, nil
	}
	if requires != "" && !m.applied[requires] {
		return Response{Status: StatusUnknownTx, Balance: current}, nil
	}

	next := current.Add(delta)
	if next.IsNegative() && op != "resettle" {
		return Response{Status: StatusInsufficientFunds, Balance: current}, nil
	}

	m.balances[p.Username] = next
	for _, id := range ids {
		m.applied[id] = true
	}
	return Response{Status: StatusSuccess, Balance: next}, nil
}

func (m *Memory) takeFailure(op string) (int, bool) {
	status, ok := m.failures[op]
	if ok {
		delete(m.failures, op)
	}
	return status, ok
}

func (m *Memory) takeErr(op string) error {
	err, ok := m.errs[op]
	if ok {
		delete(m.errs, op)
	}
	return err
}
