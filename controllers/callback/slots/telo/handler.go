// Package telo answers the slot aggregator callbacks of Telo agents. Balances
// are reported as whole units.
package telo

import (
	"errors"

	"seamless/helpers"
	"seamless/middlewares"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

const Provider = "TELO"

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

// currency is the agent's configured currency, empty when the credential
// serves every currency.
func currency(c *fiber.Ctx) string {
	cred, ok := middlewares.Credential(c)
	if !ok || cred.Currency == "*" {
		return ""
	}
	return cred.Currency
}

func message(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrAmountPrecision):
		return "INVALID_AMOUNT"
	case errors.Is(err, reconcile.ErrInvalidRequest):
		return "INVALID_REQUEST"
	case errors.Is(err, reconcile.ErrPlayerNotFound):
		return "USER_NOT_FOUND"
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		return "TXN_NOT_FOUND"
	case errors.Is(err, reconcile.ErrInsufficientFunds):
		return "INSUFFICIENT_USER_FUNDS"
	case errors.Is(err, reconcile.ErrPlayerRestricted):
		return "USER_INACTIVE"
	case errors.Is(err, reconcile.ErrCurrencyMismatch):
		return "CURRENCY_MISMATCH"
	case errors.Is(err, reconcile.ErrIneligibleState):
		return "INVALID_TXN_STATE"
	default:
		return "WALLET_ERROR"
	}
}

// respond treats a replayed transaction as a success with the current balance.
func respond(c *fiber.Ctx, res reconcile.Result, err error) error {
	if err == nil || errors.Is(err, reconcile.ErrDuplicate) {
		return helpers.TeloSuccess(c, res.Balance)
	}
	return helpers.TeloError(c, message(err), res.Balance)
}
