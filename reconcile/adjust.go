package reconcile

import (
	"context"
	"fmt"

	"seamless/models"
	"seamless/store"
	"seamless/wallet"

	"github.com/shopspring/decimal"
)

// GrantBonus credits a bonus or promotional win.
func (e *Engine) GrantBonus(ctx context.Context, req AdjustmentRequest) (Result, error) {
	res, p, err := e.adjust(ctx, "grantBonus", models.OpBonus, req)
	return e.finish(ctx, "grantBonus", req.Reference, p, res, err)
}

// AdjustCredit credits a manual or provider-side adjustment.
func (e *Engine) AdjustCredit(ctx context.Context, req AdjustmentRequest) (Result, error) {
	res, p, err := e.adjust(ctx, "adjustCredit", models.OpCredit, req)
	return e.finish(ctx, "adjustCredit", req.Reference, p, res, err)
}

// AdjustDebit takes an adjustment from the player. It is subject to the same
// funds and restriction checks as a stake.
func (e *Engine) AdjustDebit(ctx context.Context, req AdjustmentRequest) (Result, error) {
	res, p, err := e.adjust(ctx, "adjustDebit", models.OpDebit, req)
	return e.finish(ctx, "adjustDebit", req.Reference, p, res, err)
}

func (e *Engine) adjust(ctx context.Context, op string, kind models.Operation, req AdjustmentRequest) (Result, *models.Player, error) {
	if err := req.Validate(); err != nil {
		return Result{}, nil, err
	}
	p, err := e.lookupPlayer(ctx, req.PlayerID, req.Username, req.Currency, false)
	if err != nil {
		return Result{}, p, err
	}
	if err := withinPrecision(p.Currency, "amount", req.Amount); err != nil {
		return Result{}, p, err
	}

	id := canonicalID(kind, req.Reference)
	if err := e.canonicalUnused(ctx, id); err != nil {
		return Result{}, p, err
	}
	if kind == models.OpDebit {
		if p.Restricted {
			return Result{}, p, fmt.Errorf("%w: %s", ErrPlayerRestricted, p.PlayerID)
		}
		if _, err := e.requireFunds(ctx, p, req.Amount); err != nil {
			return Result{}, p, err
		}
	}

	now := e.opts.Now()
	report := e.report(req.GameCode, req.RoundID, now, req.Metadata)
	row := newRow(p, kind, id, req.Reference, models.FlagSettled, report)
	row.SettledAt = &now
	if kind == models.OpDebit {
		row.BetAmount = req.Amount
	} else {
		row.WinAmount = req.Amount
	}

	var balance decimal.Decimal
	err = e.unitOfWork(ctx, op, id, func(j store.Journal, applied *bool) error {
		if err := j.Insert(ctx, row); err != nil {
			return err
		}

		resp, err := e.call(ctx, string(kind), func(ctx context.Context) (wallet.Response, error) {
			wp := walletPlayer(p)
			switch kind {
			case models.OpBonus:
				return e.ledger.Bonus(ctx, wp, id, req.Amount, report)
			case models.OpDebit:
				return e.ledger.Wager(ctx, wp, id, req.Amount, report)
			default:
				return e.ledger.Payout(ctx, wp, id, req.Amount, report)
			}
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
