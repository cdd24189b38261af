package saba

import (
	"context"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// Settle pays out confirmed tickets. Payout is the total returned to the
// player, zero for a lost ticket.
func (h *Handler) Settle(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message

	return h.batch(c, msg, func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error) {
		win, err := h.internal(ctx, userID, txn.Payout)
		if err != nil {
			return reconcile.Result{}, err
		}
		return h.engine.Settle(ctx, reconcile.SettleRequest{
			PlayerID:  userID,
			Reference: txn.RefID,
			Win:       win,
			Metadata:  txn.metadata(msg),
		})
	})
}

// Resettle replaces the payout of settled tickets with a new total.
func (h *Handler) Resettle(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message

	return h.batch(c, msg, func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error) {
		win, err := h.internal(ctx, userID, txn.Payout)
		if err != nil {
			return reconcile.Result{}, err
		}
		return h.engine.Refund(ctx, reconcile.RefundRequest{
			PlayerID:      userID,
			Reference:     txn.RefID,
			CorrectionRef: correctionRef(msg.OperationID, txn.RefID),
			Win:           win,
			Metadata:      txn.metadata(msg),
		})
	})
}

// Unsettle takes back the payout of settled tickets so they can be settled
// again.
func (h *Handler) Unsettle(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message

	return h.batch(c, msg, func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error) {
		return h.engine.Unsettle(ctx, reconcile.UnsettleRequest{
			PlayerID:      userID,
			Reference:     txn.RefID,
			CorrectionRef: correctionRef(msg.OperationID, txn.RefID),
			Metadata:      txn.metadata(msg),
		})
	})
}
