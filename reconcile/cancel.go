package reconcile

import (
	"context"
	"fmt"

	"seamless/models"
	"seamless/store"
	"seamless/wallet"
)

// Cancel voids an unsettled bet. A running bet has its stake returned by the
// ledger in the same unit of work; a waiting bet never reached the ledger.
func (e *Engine) Cancel(ctx context.Context, req CancelRequest) (Result, error) {
	res, p, err := e.cancel(ctx, req)
	return e.finish(ctx, "cancel", req.Reference, p, res, err)
}

func (e *Engine) cancel(ctx context.Context, req CancelRequest) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, "", "", false)
	if err != nil {
		return Result{}, p, err
	}
	bet, err := e.betRow(ctx, p, req.Reference)
	if err != nil {
		return Result{}, p, err
	}

	switch bet.Flag {
	case models.FlagRunning, models.FlagWaiting:
	case models.FlagVoid:
		return Result{}, p, fmt.Errorf("%w: %s is already void", ErrDuplicate, req.Reference)
	default:
		return Result{}, p, fmt.Errorf("%w: %s is %s", ErrIneligibleState, req.Reference, bet.Flag)
	}

	n, err := e.store.CountOperations(ctx, req.Reference, models.OpCancel)
	if err != nil {
		return Result{}, p, err
	}
	id := numberedID(models.OpCancel, n+1, req.Reference)
	reverse := bet.Flag == models.FlagRunning

	balance := bet.BalanceAfter
	if !reverse {
		if balance, err = e.currentBalance(ctx, p); err != nil {
			return Result{}, p, err
		}
	}

	report := e.report(bet.GameCode, bet.RoundID, bet.BetTime, req.Metadata)
	row := newRow(p, models.OpCancel, id, req.Reference, models.FlagVoid, report)
	row.BetAmount = bet.BetAmount
	row.BalanceAfter = balance

	err = e.unitOfWork(ctx, "cancel", id, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, row); err != nil {
			return err
		}
		if err := j.UpdateLifecycle(ctx, req.Reference, store.Transition{
			From: []models.Flag{bet.Flag},
			To:   models.FlagVoid,
		}); err != nil {
			return err
		}
		if !reverse {
			return nil
		}

		resp, err := e.call(ctx, "cancel", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.Cancel(ctx, walletPlayer(p), id, bet.BetAmount, bet.CanonicalID, report)
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
