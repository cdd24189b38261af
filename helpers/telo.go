package helpers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Telo reports balances as whole units.
func TeloSuccess(c *fiber.Ctx, userBalance decimal.Decimal) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":       1,
		"user_balance": userBalance.IntPart(),
	})
}

func TeloError(c *fiber.Ctx, msg string, userBalance decimal.Decimal) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":       0,
		"user_balance": userBalance.IntPart(),
		"msg":          msg,
	})
}
