package pragmatic

import (
	"errors"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// Refund cancels a bet. A refund for a bet that never reached us is
// acknowledged with the current balance so the provider stops retrying.
func (h *Handler) Refund(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx := c.UserContext()
	res, err := h.engine.Cancel(ctx, reconcile.CancelRequest{
		PlayerID:  cb.UserID,
		Reference: cb.Reference,
		Metadata:  cb.metadata(),
	})
	if errors.Is(err, reconcile.ErrTransactionNotFound) {
		res, err = h.engine.Balance(ctx, cb.UserID)
	}
	return respond(c, res, err)
}
