package sbo

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type GetBalanceRequest struct {
	CompanyKey string `json:"CompanyKey"`
	Username   string `json:"Username"`
}

func (h *Handler) GetBalance(c *fiber.Ctx) error {
	var req GetBalanceRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)

	res, err := h.engine.Balance(c.UserContext(), req.Username)
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, res, code, msg)
	}
	return ok(c, req.Username, res, fiber.Map{"Currency": res.Currency})
}
