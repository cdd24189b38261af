// Package reconcile turns provider events into exactly one wallet ledger
// mutation each, keeping the local journal in step with the ledger.
//
// Every mutating operation follows the same sequence: look up the player,
// look up and validate the journal, check preconditions, then open a unit of
// work that writes the journal, calls the ledger and commits only when the
// ledger accepted the call.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"seamless/helpers"
	"seamless/models"
	"seamless/store"
	"seamless/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Options struct {
	// AutoEnroll creates unknown players on their first bet.
	AutoEnroll bool
	// LedgerTimeout bounds every ledger call. Zero means no extra bound.
	LedgerTimeout time.Duration
	Now           func() time.Time
}

// Engine reconciles the events of one provider.
type Engine struct {
	provider string
	store    store.Store
	ledger   wallet.Gateway
	metrics  *Metrics
	opts     Options
}

func New(provider string, st store.Store, ledger wallet.Gateway, metrics *Metrics, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		provider: provider,
		store:    st,
		ledger:   ledger,
		metrics:  metrics,
		opts:     opts,
	}
}

func (e *Engine) Provider() string { return e.provider }

func canonicalID(op models.Operation, ref string) string {
	return fmt.Sprintf("%s-%s", op, ref)
}

func numberedID(op models.Operation, n int64, ref string) string {
	return fmt.Sprintf("%s-%d-%s", op, n, ref)
}

func walletPlayer(p *models.Player) wallet.Player {
	return wallet.Player{Username: p.Username, Currency: p.Currency}
}

func (e *Engine) lookupPlayer(ctx context.Context, playerID, username, currency string, enroll bool) (*models.Player, error) {
	currency = helpers.NormalizeCurrency(currency)

	p, err := e.store.GetPlayer(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		if !enroll || !e.opts.AutoEnroll || username == "" || currency == "" {
			return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		p, err = e.store.CreatePlayer(ctx, models.Player{
			PlayerID: playerID,
			Username: username,
			Currency: currency,
		})
		if err == nil {
			zap.L().Info("Player enrolled",
				zap.String("provider", e.provider),
				zap.String("player_id", playerID),
				zap.String("username", p.Username))
		}
	}
	if err != nil {
		return nil, err
	}
	if currency != "" && p.Currency != currency {
		return &p, fmt.Errorf("%w: player %s holds %s, request is in %s", ErrCurrencyMismatch, playerID, p.Currency, currency)
	}
	return &p, nil
}

// betRow returns the bet row of ref and checks it belongs to the player.
func (e *Engine) betRow(ctx context.Context, p *models.Player, ref string) (models.Transaction, error) {
	bet, err := e.store.FindByExternalReference(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return bet, fmt.Errorf("%w: %s", ErrTransactionNotFound, ref)
	}
	if err != nil {
		return bet, err
	}
	if bet.PlayerID != p.PlayerID {
		return bet, fmt.Errorf("%w: %s belongs to another player", ErrTransactionNotFound, ref)
	}
	return bet, nil
}

// canonicalUnused fails with ErrDuplicate when id is already journaled.
func (e *Engine) canonicalUnused(ctx context.Context, id string) error {
	_, err := e.store.FindByCanonicalID(ctx, id)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	case errors.Is(err, store.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (e *Engine) currentBalance(ctx context.Context, p *models.Player) (decimal.Decimal, error) {
	resp, err := e.call(ctx, "balance", func(ctx context.Context) (wallet.Response, error) {
		return e.ledger.Balance(ctx, walletPlayer(p))
	})
	return resp.Balance, err
}

// requireFunds checks that the player can cover amount and returns the balance.
func (e *Engine) requireFunds(ctx context.Context, p *models.Player, amount decimal.Decimal) (decimal.Decimal, error) {
	bal, err := e.currentBalance(ctx, p)
	if err != nil {
		return bal, err
	}
	if bal.LessThan(amount) {
		return bal, &Failure{
			Kind:       KindPrecondition,
			Balance:    bal,
			HasBalance: true,
			Err:        fmt.Errorf("%w: balance %s, stake %s", ErrInsufficientFunds, bal, amount),
		}
	}
	return bal, nil
}

// call performs one ledger call under the configured timeout. A refusal by
// the ledger and a transport failure both come back as ErrWallet.
func (e *Engine) call(ctx context.Context, name string, fn func(context.Context) (wallet.Response, error)) (wallet.Response, error) {
	if e.opts.LedgerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.LedgerTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := fn(ctx)
	took := time.Since(start)

	switch {
	case err != nil:
		e.metrics.ObserveLedgerCall(e.provider, name, "error", took)
		return resp, &Failure{Kind: KindIntegration, Err: fmt.Errorf("%w: %s: %v", ErrWallet, name, err)}
	case !resp.OK():
		e.metrics.ObserveLedgerCall(e.provider, name, "refused", took)
		return resp, &Failure{Kind: KindIntegration, Status: resp.Status, Err: fmt.Errorf("%w: %s refused", ErrWallet, name)}
	}
	e.metrics.ObserveLedgerCall(e.provider, name, "ok", took)
	return resp, nil
}

// unitOfWork runs work in a store unit of work. work flags *applied once the
// ledger accepted its call so that a later failure is reported as unrecorded.
func (e *Engine) unitOfWork(ctx context.Context, op, id string, work func(j store.Journal, applied *bool) error) error {
	applied := false
	err := e.store.WithinUnitOfWork(ctx, func(j store.Journal) error {
		return work(j, &applied)
	})
	switch {
	case err == nil:
		return nil
	case applied:
		zap.L().Error("Ledger applied mutation but journal commit failed",
			zap.String("provider", e.provider),
			zap.String("op", op),
			zap.String("canonical_id", id),
			zap.Error(err))
		e.metrics.ObserveUnrecorded(e.provider, op)
		return fmt.Errorf("%w: %s: %v", ErrUnrecorded, id, err)
	case errors.Is(err, store.ErrDuplicate):
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	default:
		return err
	}
}

// finish records the outcome of op and turns err into a *Failure. Duplicate
// and precondition failures carry the player's current ledger balance.
func (e *Engine) finish(ctx context.Context, op, ref string, p *models.Player, res Result, err error) (Result, error) {
	e.metrics.ObserveOperation(e.provider, op, err)
	if err == nil {
		return res, nil
	}

	f, ok := AsFailure(err)
	if !ok {
		f = &Failure{Kind: kindOf(err), Err: err}
	}
	if f.Op == "" {
		f.Op = op
	}
	if f.Ref == "" {
		f.Ref = ref
	}

	if p != nil {
		res.Currency = p.Currency
		if !f.HasBalance && (f.Kind == KindDuplicate || f.Kind == KindPrecondition) {
			if bal, berr := e.currentBalance(ctx, p); berr == nil {
				f.Balance, f.HasBalance = bal, true
			}
		}
	}
	if f.HasBalance {
		res.Balance = f.Balance
	}

	fields := []zap.Field{
		zap.String("provider", e.provider),
		zap.String("op", op),
		zap.String("reference", ref),
		zap.String("kind", f.Kind.String()),
		zap.Error(f.Err),
	}
	if f.Kind == KindIntegration {
		zap.L().Warn("Reconciliation failed", fields...)
	} else {
		zap.L().Info("Reconciliation rejected", fields...)
	}
	return res, f
}

func (e *Engine) report(gameCode, roundID string, betTime time.Time, metadata map[string]any) wallet.Report {
	if betTime.IsZero() {
		betTime = e.opts.Now()
	}
	return wallet.NewReport(e.provider, gameCode, roundID, betTime, metadata)
}

func journalReport(r wallet.Report) datatypes.JSON {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

// newRow builds a journal row for the player with the audit report attached.
func newRow(p *models.Player, op models.Operation, id, ref string, flag models.Flag, r wallet.Report) *models.Transaction {
	return &models.Transaction{
		CanonicalID: id,
		ExternalRef: ref,
		Operation:   op,
		PlayerID:    p.PlayerID,
		Username:    p.Username,
		Currency:    p.Currency,
		GameCode:    r.GameCode,
		RoundID:     r.RoundID,
		Flag:        flag,
		Report:      journalReport(r),
		BetTime:     r.BetTime,
	}
}
