package saba

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

func (h *Handler) GetBalance(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	userID := strings.TrimSpace(req.Message.UserID)
	if userID == "" {
		return invalid(c, errors.New("userId is required"))
	}

	res, err := h.engine.Balance(c.UserContext(), userID)
	if err != nil {
		code, text := codeFor(err)
		return respond(c, code, text, res, fiber.Map{"userId": userID})
	}
	return respond(c, statusSuccess, "", res, fiber.Map{
		"userId":    userID,
		"balanceTs": time.Now().Format(time.RFC3339),
	})
}
