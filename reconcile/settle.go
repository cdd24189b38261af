package reconcile

import (
	"context"
	"fmt"

	"seamless/models"
	"seamless/store"
	"seamless/wallet"

	"github.com/shopspring/decimal"
)

// Settle pays out a running round. A round that was unsettled may be settled
// again; each further settlement gets a numbered payout id.
func (e *Engine) Settle(ctx context.Context, req SettleRequest) (Result, error) {
	res, p, err := e.settle(ctx, req)
	return e.finish(ctx, "settle", req.Reference, p, res, err)
}

func (e *Engine) settle(ctx context.Context, req SettleRequest) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, "", req.Currency, false)
	if err != nil {
		return Result{}, p, err
	}
	if err := withinPrecision(p.Currency, "win", req.Win); err != nil {
		return Result{}, p, err
	}
	bet, err := e.betRow(ctx, p, req.Reference)
	if err != nil {
		return Result{}, p, err
	}

	id := canonicalID(models.OpPayout, req.Reference)
	switch bet.Flag {
	case models.FlagRunning:
	case models.FlagUnsettled:
		n, err := e.store.CountOperations(ctx, req.Reference, models.OpPayout)
		if err != nil {
			return Result{}, p, err
		}
		id = numberedID(models.OpPayout, n+1, req.Reference)
	case models.FlagSettled, models.FlagResettled:
		return Result{}, p, fmt.Errorf("%w: %s is already settled", ErrDuplicate, req.Reference)
	default:
		return Result{}, p, fmt.Errorf("%w: %s is %s", ErrIneligibleState, req.Reference, bet.Flag)
	}

	settledAt := req.SettledAt
	if settledAt.IsZero() {
		settledAt = e.opts.Now()
	}
	gameCode := req.GameCode
	if gameCode == "" {
		gameCode = bet.GameCode
	}
	report := e.report(gameCode, bet.RoundID, bet.BetTime, req.Metadata)

	row := newRow(p, models.OpPayout, id, req.Reference, models.FlagSettled, report)
	row.BetAmount = bet.BetAmount
	row.WinAmount = req.Win
	row.SettledAt = &settledAt

	var balance decimal.Decimal
	err = e.unitOfWork(ctx, "settle", id, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, row); err != nil {
			return err
		}
		win := req.Win
		if err := j.UpdateLifecycle(ctx, req.Reference, store.Transition{
			From:         []models.Flag{models.FlagRunning, models.FlagUnsettled},
			To:           models.FlagSettled,
			WinAmount:    &win,
			SettlementID: id,
			SettledAt:    &settledAt,
		}); err != nil {
			return err
		}

		resp, err := e.call(ctx, "payout", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.Payout(ctx, walletPlayer(p), id, req.Win, report)
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

// Refund corrects the payout of a settled round to req.Win. The ledger is sent
// the signed difference to the payout recorded so far.
func (e *Engine) Refund(ctx context.Context, req RefundRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return e.finish(ctx, "refund", req.Reference, nil, Result{}, err)
	}
	res, p, err := e.correct(ctx, "refund", models.OpResettle, req.PlayerID, req.Reference, req.CorrectionRef, &req.Win, req.Metadata)
	return e.finish(ctx, "refund", req.Reference, p, res, err)
}

// Unsettle takes back the whole payout of a settled round and leaves it
// unsettled, ready to be settled again.
func (e *Engine) Unsettle(ctx context.Context, req UnsettleRequest) (Result, error) {
	if err := req.Validate(); err != nil {
		return e.finish(ctx, "unsettle", req.Reference, nil, Result{}, err)
	}
	res, p, err := e.correct(ctx, "unsettle", models.OpUnsettle, req.PlayerID, req.Reference, req.CorrectionRef, nil, req.Metadata)
	return e.finish(ctx, "unsettle", req.Reference, p, res, err)
}

// correct applies a resettlement. With win nil the payout is reversed
// entirely and the round becomes unsettled.
func (e *Engine) correct(ctx context.Context, op string, kind models.Operation, playerID, ref, correctionRef string, win *decimal.Decimal, metadata map[string]any) (Result, *models.Player, error) {
	p, err := e.lookupPlayer(ctx, playerID, "", "", false)
	if err != nil {
		return Result{}, p, err
	}
	if win != nil {
		if err := withinPrecision(p.Currency, "win", *win); err != nil {
			return Result{}, p, err
		}
	}
	bet, err := e.betRow(ctx, p, ref)
	if err != nil {
		return Result{}, p, err
	}

	id := canonicalID(kind, correctionRef)
	if err := e.canonicalUnused(ctx, id); err != nil {
		return Result{}, p, err
	}
	if bet.Flag != models.FlagSettled && bet.Flag != models.FlagResettled {
		return Result{}, p, fmt.Errorf("%w: %s is %s", ErrIneligibleState, ref, bet.Flag)
	}

	to := models.FlagResettled
	newWin := decimal.Zero
	if win != nil {
		newWin = *win
	} else {
		to = models.FlagUnsettled
	}
	delta := newWin.Sub(bet.WinAmount)
	previous := bet.SettlementID
	now := e.opts.Now()

	report := e.report(bet.GameCode, bet.RoundID, bet.BetTime, metadata)
	row := newRow(p, kind, id, ref, to, report)
	row.BetAmount = bet.BetAmount
	row.WinAmount = newWin
	row.SettledAt = &now
	row.Note = fmt.Sprintf("correction %s of %s: %s -> %s", correctionRef, previous, bet.WinAmount, newWin)

	var balance decimal.Decimal
	err = e.unitOfWork(ctx, op, id, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, row); err != nil {
			return err
		}
		if err := j.UpdateLifecycle(ctx, ref, store.Transition{
			From:                 []models.Flag{models.FlagSettled, models.FlagResettled},
			To:                   to,
			PreviousSettlementID: &previous,
			WinAmount:            &newWin,
			SettlementID:         id,
			SettledAt:            &now,
		}); err != nil {
			return err
		}

		resp, err := e.call(ctx, "resettle", func(ctx context.Context) (wallet.Response, error) {
			return e.ledger.Resettle(ctx, walletPlayer(p), id, delta, bet.CanonicalID, previous, report)
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
