package reconcile

import (
	"context"
	"errors"
	"fmt"

	"seamless/models"
	"seamless/store"
	"seamless/wallet"

	"github.com/shopspring/decimal"
)

// PlaceBet debits the stake of a new round.
func (e *Engine) PlaceBet(ctx context.Context, req BetRequest) (Result, error) {
	res, p, err := e.placeBet(ctx, "placeBet", req, models.FlagRunning)
	return e.finish(ctx, "placeBet", req.Reference, p, res, err)
}

// ReserveBet journals a bet as waiting without touching the ledger. The
// stake is taken by ConfirmBet.
func (e *Engine) ReserveBet(ctx context.Context, req BetRequest) (Result, error) {
	res, p, err := e.placeBet(ctx, "reserveBet", req, models.FlagWaiting)
	return e.finish(ctx, "reserveBet", req.Reference, p, res, err)
}

func (e *Engine) placeBet(ctx context.Context, op string, req BetRequest, flag models.Flag) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, req.Username, req.Currency, true)
	if err != nil {
		return Result{}, p, err
	}
	if p.Restricted {
		return Result{}, p, fmt.Errorf("%w: %s", ErrPlayerRestricted, p.PlayerID)
	}
	if err := withinPrecision(p.Currency, "amount", req.Amount); err != nil {
		return Result{}, p, err
	}

	id := canonicalID(models.OpWager, req.Reference)
	if _, err := e.store.FindByExternalReference(ctx, req.Reference); err == nil {
		return Result{}, p, fmt.Errorf("%w: %s", ErrDuplicate, id)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, p, err
	}

	balance, err := e.requireFunds(ctx, p, req.Amount)
	if err != nil {
		return Result{}, p, err
	}

	report := e.report(req.GameCode, req.RoundID, req.BetTime, req.Metadata)
	row := newRow(p, models.OpWager, id, req.Reference, flag, report)
	row.BetAmount = req.Amount
	row.BalanceAfter = balance

	err = e.unitOfWork(ctx, op, id, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, row); err != nil {
			return err
		}
		if flag == models.FlagWaiting {
			return nil
		}

		resp, err := e.call(ctx, "wager", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.Wager(ctx, walletPlayer(p), id, req.Amount, report)
		})
		if err != nil {
			return err
		}
		*applied = true
		balance = resp.Balance
		return j.SetBalanceAfter(ctx, id, balance)
	})
	if err != nil {
		return Result{}, p, err
	}

	return Result{CanonicalID: id, Balance: balance, Currency: p.Currency}, p, nil
}

// ConfirmBet takes the stake of a reserved bet and marks it running.
func (e *Engine) ConfirmBet(ctx context.Context, req ConfirmRequest) (Result, error) {
	res, p, err := e.confirmBet(ctx, req)
	return e.finish(ctx, "confirmBet", req.Reference, p, res, err)
}

func (e *Engine) confirmBet(ctx context.Context, req ConfirmRequest) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, "", "", false)
	if err != nil {
		return Result{}, p, err
	}
	if p.Restricted {
		return Result{}, p, fmt.Errorf("%w: %s", ErrPlayerRestricted, p.PlayerID)
	}
	bet, err := e.betRow(ctx, p, req.Reference)
	if err != nil {
		return Result{}, p, err
	}

	switch bet.Flag {
	case models.FlagWaiting:
	case models.FlagVoid:
		return Result{}, p, fmt.Errorf("%w: %s is void", ErrIneligibleState, req.Reference)
	default:
		return Result{}, p, fmt.Errorf("%w: %s is already %s", ErrDuplicate, bet.CanonicalID, bet.Flag)
	}

	if _, err := e.requireFunds(ctx, p, bet.BetAmount); err != nil {
		return Result{}, p, err
	}

	report := e.report(bet.GameCode, bet.RoundID, bet.BetTime, req.Metadata)
	balance := bet.BalanceAfter
	err = e.unitOfWork(ctx, "confirmBet", bet.CanonicalID, func(j store.Journal, applied *bool) error {
		if err := j.UpdateLifecycle(ctx, req.Reference, store.Transition{
			From: []models.Flag{models.FlagWaiting},
			To:   models.FlagRunning,
		}); err != nil {
			return err
		}

		resp, err := e.call(ctx, "wager", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.Wager(ctx, walletPlayer(p), bet.CanonicalID, bet.BetAmount, report)
		})
		if err != nil {
			return err
		}
		*applied = true
		balance = resp.Balance
		return j.SetBalanceAfter(ctx, bet.CanonicalID, balance)
	})
	if err != nil {
		return Result{}, p, err
	}

	return Result{CanonicalID: bet.CanonicalID, Balance: balance, Currency: p.Currency}, p, nil
}

// PlaceAndSettle handles a round reported with stake and payout together.
// The bet and its settlement are journaled and sent to the ledger as one call.
func (e *Engine) PlaceAndSettle(ctx context.Context, req PlaceAndSettleRequest) (Result, error) {
	res, p, err := e.placeAndSettle(ctx, req)
	return e.finish(ctx, "placeAndSettle", req.Reference, p, res, err)
}

func (e *Engine) placeAndSettle(ctx context.Context, req PlaceAndSettleRequest) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, req.Username, req.Currency, true)
	if err != nil {
		return Result{}, p, err
	}
	if p.Restricted {
		return Result{}, p, fmt.Errorf("%w: %s", ErrPlayerRestricted, p.PlayerID)
	}
	if err := withinPrecision(p.Currency, "amount", req.Amount); err != nil {
		return Result{}, p, err
	}
	if err := withinPrecision(p.Currency, "win", req.Win); err != nil {
		return Result{}, p, err
	}

	wagerID := canonicalID(models.OpWager, req.Reference)
	payoutID := canonicalID(models.OpPayout, req.Reference)
	if _, err := e.store.FindByExternalReference(ctx, req.Reference); err == nil {
		return Result{}, p, fmt.Errorf("%w: %s", ErrDuplicate, wagerID)
	} else if !errors.Is(err, store.ErrNotFound) {
		return Result{}, p, err
	}

	if _, err := e.requireFunds(ctx, p, req.Amount); err != nil {
		return Result{}, p, err
	}

	now := e.opts.Now()
	report := e.report(req.GameCode, req.RoundID, req.BetTime, req.Metadata)

	bet := newRow(p, models.OpWager, wagerID, req.Reference, models.FlagSettled, report)
	bet.BetAmount = req.Amount
	bet.WinAmount = req.Win
	bet.SettlementID = payoutID
	bet.SettledAt = &now

	payout := newRow(p, models.OpPayout, payoutID, req.Reference, models.FlagSettled, report)
	payout.BetAmount = req.Amount
	payout.WinAmount = req.Win
	payout.SettledAt = &now

	var balance decimal.Decimal
	err = e.unitOfWork(ctx, "placeAndSettle", wagerID, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, bet); err != nil {
			return err
		}
		if err := j.Insert(ctx, payout); err != nil {
			return err
		}

		resp, err := e.call(ctx, "wagerAndPayout", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.WagerAndPayout(ctx, walletPlayer(p), wagerID, req.Amount, payoutID, req.Win, report)
		})
		if err != nil {
			return err
		}
		*applied = true
		balance = resp.Balance
		if err := j.SetBalanceAfter(ctx, wagerID, balance); err != nil {
			return err
		}
		return j.SetBalanceAfter(ctx, payoutID, balance)
	})
	if err != nil {
		return Result{}, p, err
	}

	return Result{CanonicalID: payoutID, Balance: balance, Currency: p.Currency}, p, nil
}
