package pragmatic

import (
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Bet(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	amount, ok := parseAmount(cb.Amount)
	if !ok || cb.Amount == "" {
		return failure(c, reconcile.Result{}, codeInvalidAmount, "Invalid amount")
	}

	res, err := h.engine.PlaceBet(c.UserContext(), reconcile.BetRequest{
		PlayerID:  cb.UserID,
		Reference: cb.Reference,
		RoundID:   cb.RoundID,
		GameCode:  cb.GameID,
		Amount:    amount,
		Metadata:  cb.metadata(),
	})
	return respond(c, res, err)
}
