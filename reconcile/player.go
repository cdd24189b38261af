package reconcile

import (
	"context"
	"errors"
	"fmt"

	"seamless/helpers"
	"seamless/models"
	"seamless/store"
)

// Balance reports a player's ledger balance.
func (e *Engine) Balance(ctx context.Context, playerID string) (Result, error) {
	res, p, err := e.balance(ctx, playerID)
	return e.finish(ctx, "balance", playerID, p, res, err)
}

func (e *Engine) balance(ctx context.Context, playerID string) (Result, *models.Player, error) {
	if err := required("playerId", playerID); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, playerID, "", "", false)
	if err != nil {
		return Result{}, p, err
	}
	bal, err := e.currentBalance(ctx, p)
	if err != nil {
		return Result{}, p, err
	}
	return Result{Balance: bal, Currency: p.Currency}, p, nil
}

// EnsurePlayer registers a player on first contact and returns the stored
// row. The currency of a known player never changes.
func (e *Engine) EnsurePlayer(ctx context.Context, req EnrollRequest) (models.Player, error) {
	p, err := e.ensurePlayer(ctx, req)
	_, err = e.finish(ctx, "ensurePlayer", req.PlayerID, nil, Result{}, err)
	return p, err
}

func (e *Engine) ensurePlayer(ctx context.Context, req EnrollRequest) (models.Player, error) {
	if err := req.Validate(); err != nil {
		return models.Player{}, err
	}
	currency := helpers.NormalizeCurrency(req.Currency)
	p, err := e.store.CreatePlayer(ctx, models.Player{
		PlayerID: req.PlayerID,
		Username: req.Username,
		Currency: currency,
	})
	if err != nil {
		return models.Player{}, err
	}
	if p.Currency != currency {
		return p, fmt.Errorf("%w: player %s holds %s, request is in %s", ErrCurrencyMismatch, p.PlayerID, p.Currency, currency)
	}
	return p, nil
}

// History lists the journal rows of a round in creation order.
func (e *Engine) History(ctx context.Context, ref string) ([]models.Transaction, error) {
	return e.store.History(ctx, ref)
}

// Player returns the directory entry of playerID without touching the ledger.
// Adapters use it to learn the currency before converting amounts.
func (e *Engine) Player(ctx context.Context, playerID string) (models.Player, error) {
	p, err := e.lookupPlayer(ctx, playerID, "", "", false)
	if err != nil {
		return models.Player{}, &Failure{Kind: kindOf(err), Op: "player", Ref: playerID, Err: err}
	}
	return *p, nil
}

// Round returns the bet row of ref.
func (e *Engine) Round(ctx context.Context, ref string) (models.Transaction, error) {
	bet, err := e.store.FindByExternalReference(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return bet, &Failure{Kind: KindNotFound, Op: "round", Ref: ref, Err: fmt.Errorf("%w: %s", ErrTransactionNotFound, ref)}
	}
	return bet, err
}
