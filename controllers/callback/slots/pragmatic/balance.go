package pragmatic

import (
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) Balance(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	if cb.UserID == "" {
		return failure(c, reconcile.Result{}, codeMissingParameters, "Missing required parameters")
	}

	res, err := h.engine.Balance(c.UserContext(), cb.UserID)
	return respond(c, res, err)
}

// EndRound only reports the balance; rounds close on their result.
func (h *Handler) EndRound(c *fiber.Ctx) error {
	return h.Balance(c)
}
