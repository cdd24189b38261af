package saba

import (
	"context"
	"errors"
	"fmt"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// ConfirmBet takes the stake of every reserved ticket in the batch. A ticket
// whose confirmed amount differs from the reserved one is refused.
func (h *Handler) ConfirmBet(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message

	return h.batch(c, msg, func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error) {
		if txn.ActualAmount.IsPositive() {
			if err := h.sameStake(ctx, userID, txn); err != nil {
				return reconcile.Result{}, err
			}
		}
		return h.engine.ConfirmBet(ctx, reconcile.ConfirmRequest{
			PlayerID:  userID,
			Reference: txn.RefID,
			Metadata:  txn.metadata(msg),
		})
	})
}

var errStakeChanged = errors.New("confirmed stake differs from the reserved one")

func (h *Handler) sameStake(ctx context.Context, userID string, txn Txn) error {
	bet, err := h.engine.Round(ctx, txn.RefID)
	if err != nil {
		return err
	}
	want, err := h.internal(ctx, userID, txn.ActualAmount)
	if err != nil {
		return err
	}
	if !want.Equal(bet.BetAmount) {
		return fmt.Errorf("%w: %s confirmed %s, reserved %s", errStakeChanged, txn.RefID, want, bet.BetAmount)
	}
	return nil
}
