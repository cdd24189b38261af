package saba

import (
	"context"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// CancelBet voids reserved or confirmed tickets; confirmed ones get their
// stake back.
func (h *Handler) CancelBet(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message

	return h.batch(c, msg, func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error) {
		return h.engine.Cancel(ctx, reconcile.CancelRequest{
			PlayerID:  userID,
			Reference: txn.RefID,
			Metadata:  txn.metadata(msg),
		})
	})
}
