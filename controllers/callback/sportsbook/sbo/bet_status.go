package sbo

import (
	"strings"

	"seamless/helpers"
	"seamless/models"

	"github.com/gofiber/fiber/v2"
)

type GetBetStatusRequest struct {
	CompanyKey    string `json:"CompanyKey"`
	Username      string `json:"Username"`
	TransferCode  string `json:"TransferCode"`
	TransactionId string `json:"TransactionId"`
}

func betStatus(f models.Flag) string {
	switch f {
	case models.FlagSettled, models.FlagResettled:
		return "settled"
	case models.FlagVoid:
		return "void"
	case models.FlagWaiting:
		return "waiting"
	default:
		return "running"
	}
}

// GetBetStatus reports the lifecycle of a bet from the journal.
func (h *Handler) GetBetStatus(c *fiber.Ctx) error {
	var req GetBetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TransferCode = strings.TrimSpace(req.TransferCode)

	bet, err := h.engine.Round(c.UserContext(), req.TransferCode)
	if err != nil || bet.PlayerID != req.Username {
		return c.JSON(fiber.Map{"ErrorCode": codeBetNotFound, "ErrorMessage": "Bet Not Found"})
	}

	return c.JSON(fiber.Map{
		"ErrorCode":     codeSuccess,
		"ErrorMessage":  "No Error",
		"TransferCode":  req.TransferCode,
		"TransactionId": req.TransactionId,
		"Status":        betStatus(bet.Flag),
		"WinLoss":       helpers.ToDisplay(bet.Currency, bet.WinAmount).InexactFloat64(),
		"Stake":         helpers.ToDisplay(bet.Currency, bet.BetAmount).InexactFloat64(),
	})
}
