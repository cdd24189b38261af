package telo

import (
	"seamless/helpers"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func (h *Handler) UserBalance(c *fiber.Ctx) error {
	var req UserBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.TeloError(c, "INVALID_JSON", decimal.Zero)
	}

	res, err := h.engine.Balance(c.UserContext(), req.UserCode)
	return respond(c, res, err)
}
