package pragmatic

import (
	"errors"

	"seamless/middlewares"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// Authenticate resolves the launch token to a player. The token is the
// player id; an unknown player is enrolled in the credential's currency.
func (h *Handler) Authenticate(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	if cb.Token == "" {
		return failure(c, reconcile.Result{}, codeMissingParameters, "Missing required parameters")
	}

	ctx := c.UserContext()
	if _, err := h.engine.Player(ctx, cb.Token); errors.Is(err, reconcile.ErrPlayerNotFound) {
		cred, ok := middlewares.Credential(c)
		if !ok || cred.Currency == "*" {
			return respond(c, reconcile.Result{}, err)
		}
		if _, err := h.engine.EnsurePlayer(ctx, reconcile.EnrollRequest{
			PlayerID: cb.Token,
			Username: cb.Token,
			Currency: cred.Currency,
		}); err != nil {
			return respond(c, reconcile.Result{}, err)
		}
	}

	res, err := h.engine.Balance(ctx, cb.Token)
	if err != nil {
		return respond(c, res, err)
	}
	return c.JSON(fiber.Map{
		"userId":      cb.Token,
		"currency":    res.Currency,
		"cash":        res.Balance.InexactFloat64(),
		"bonus":       0.0,
		"token":       cb.Token,
		"error":       codeSuccess,
		"description": "Success",
	})
}
