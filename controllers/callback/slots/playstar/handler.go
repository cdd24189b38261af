// Package playstar answers PlayStar style wallet callbacks, which arrive as
// GET requests with query parameters. Amounts and balances are whole units.
package playstar

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

const Provider = "PLAYSTAR"

const (
	statusSuccess           = 0
	statusInvalidMember     = 1
	statusInvalidTxn        = 2
	statusInsufficientFunds = 3
	statusError             = 5
)

type Response struct {
	StatusCode int    `json:"status_code"`
	Balance    uint64 `json:"balance,omitempty"`
}

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

func reply(c *fiber.Ctx, status int, balance decimal.Decimal) error {
	resp := Response{StatusCode: status}
	if balance.IsPositive() {
		resp.Balance = uint64(balance.IntPart())
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// member returns the member_id of an authenticated request. PlayStar treats
// a missing token the same as an unknown member.
func member(c *fiber.Ctx) (string, bool) {
	token := strings.TrimSpace(c.Query("access_token"))
	id := strings.TrimSpace(c.Query("member_id"))
	return id, token != "" && id != ""
}

// amount reads a whole, non-negative query parameter. Missing is zero.
func amount(c *fiber.Ctx, key string) (decimal.Decimal, bool) {
	raw := c.Query(key)
	if raw == "" {
		return decimal.Zero, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return decimal.Zero, false
	}
	return decimal.NewFromUint64(v), true
}

func respond(c *fiber.Ctx, res reconcile.Result, err error) error {
	switch {
	case err == nil, errors.Is(err, reconcile.ErrDuplicate):
		return reply(c, statusSuccess, res.Balance)
	case errors.Is(err, reconcile.ErrPlayerNotFound), errors.Is(err, reconcile.ErrPlayerRestricted):
		return reply(c, statusInvalidMember, res.Balance)
	case errors.Is(err, reconcile.ErrTransactionNotFound), errors.Is(err, reconcile.ErrIneligibleState):
		return reply(c, statusInvalidTxn, res.Balance)
	case errors.Is(err, reconcile.ErrInsufficientFunds):
		return reply(c, statusInsufficientFunds, res.Balance)
	default:
		return reply(c, statusError, res.Balance)
	}
}

func (h *Handler) Balance(c *fiber.Ctx) error {
	id, ok := member(c)
	if !ok {
		return reply(c, statusInvalidMember, decimal.Zero)
	}
	res, err := h.engine.Balance(c.UserContext(), id)
	return respond(c, res, err)
}
