package pragmatic

import (
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// Result settles the bet placed under the same reference. A promotional win
// paid with the result is part of the payout.
func (h *Handler) Result(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	win, ok := parseAmount(cb.Amount)
	if !ok {
		return failure(c, reconcile.Result{}, codeInvalidAmount, "Invalid amount")
	}
	promo, ok := parseAmount(cb.PromoWinAmount)
	if !ok {
		return failure(c, reconcile.Result{}, codeInvalidAmount, "Invalid amount")
	}

	res, err := h.engine.Settle(c.UserContext(), reconcile.SettleRequest{
		PlayerID:  cb.UserID,
		Reference: cb.Reference,
		GameCode:  cb.GameID,
		Win:       win.Add(promo),
		Metadata:  cb.metadata(),
	})
	return respond(c, res, err)
}
