// Package sbo answers the JSON seamless wallet callbacks of SBO style
// sportsbooks. Amounts on the wire are display units; IDR and VND are quoted
// in thousands.
package sbo

import (
	"context"
	"errors"
	"strings"
	"time"

	"seamless/helpers"
	"seamless/models"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const Provider = "SBO"

const (
	codeSuccess           = 0
	codePlayerNotFound    = 1
	codeInvalidRequest    = 3
	codeInsufficientFunds = 5
	codeBetNotFound       = 6
	codeFailed            = 7
	codeBadState          = 8
	codeAlreadySettled    = 2001
	codeAlreadyCanceled   = 2002
	codeAlreadyRollback   = 2003
	codeNotRollbackable   = 2004
	codeDuplicate         = 5003
	codeValidation        = 422
)

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

// display converts an internal balance to what the provider expects.
func display(res reconcile.Result) float64 {
	return helpers.ToDisplay(res.Currency, res.Balance).InexactFloat64()
}

func internal(currency string, amount float64) decimal.Decimal {
	return helpers.ToInternal(currency, decimal.NewFromFloat(amount))
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		return t
	}
	return time.Time{}
}

func ok(c *fiber.Ctx, username string, res reconcile.Result, extra fiber.Map) error {
	body := fiber.Map{
		"ErrorCode":    codeSuccess,
		"ErrorMessage": "No Error",
		"AccountName":  username,
		"Balance":      display(res),
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}

func fail(c *fiber.Ctx, username string, res reconcile.Result, code int, msg string) error {
	body := fiber.Map{
		"ErrorCode":    code,
		"ErrorMessage": msg,
		"AccountName":  username,
		"Balance":      0,
	}
	if res.Currency != "" {
		body["Balance"] = display(res)
	}
	return c.JSON(body)
}

func invalid(c *fiber.Ctx, err error) error {
	zap.L().Warn("Malformed callback", zap.String("provider", Provider), zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"ErrorCode":    codeValidation,
		"ErrorMessage": "Invalid request format",
	})
}

func codeFor(err error) (int, string) {
	switch {
	case errors.Is(err, reconcile.ErrInvalidRequest):
		return codeInvalidRequest, "Invalid request format"
	case errors.Is(err, reconcile.ErrPlayerNotFound):
		return codePlayerNotFound, "User not found"
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		return codeBetNotFound, "Bet Not Found"
	case errors.Is(err, reconcile.ErrInsufficientFunds):
		return codeInsufficientFunds, "Insufficient balance"
	case errors.Is(err, reconcile.ErrPlayerRestricted):
		return codeBadState, "Member is suspended"
	case errors.Is(err, reconcile.ErrDuplicate):
		return codeDuplicate, "Duplicate TransferCode"
	case errors.Is(err, reconcile.ErrIneligibleState), errors.Is(err, reconcile.ErrCurrencyMismatch):
		return codeBadState, "Bet in an ineligible state"
	default:
		return codeFailed, "Transaction failed"
	}
}

// stateCode explains why the bet of ref refused a transition.
func (h *Handler) stateCode(ctx context.Context, ref string) (int, string) {
	bet, err := h.engine.Round(ctx, ref)
	if err != nil {
		return codeFor(err)
	}
	switch bet.Flag {
	case models.FlagSettled, models.FlagResettled:
		return codeAlreadySettled, "Bet Already Settled"
	case models.FlagVoid:
		return codeAlreadyCanceled, "Bet Already Canceled"
	case models.FlagUnsettled:
		return codeAlreadyRollback, "Bet Already Rollback"
	default:
		return codeBadState, "Bet in an ineligible state"
	}
}
