package saba

import (
	"errors"
	"strconv"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// PlaceBet reserves a ticket. The stake stays with the player until the
// ticket is confirmed.
func (h *Handler) PlaceBet(c *fiber.Ctx) error {
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	msg := req.Message
	msg.UserID = strings.TrimSpace(msg.UserID)
	msg.RefID = strings.TrimSpace(msg.RefID)

	amount := msg.ActualAmount
	if !amount.IsPositive() {
		amount = msg.BetAmount
	}
	if msg.UserID == "" || msg.RefID == "" || !amount.IsPositive() {
		return invalid(c, errors.New("userId, refId and positive amount are required"))
	}

	ctx := c.UserContext()
	stake, err := h.internal(ctx, msg.UserID, amount)
	if err != nil {
		code, text := codeFor(err)
		return respond(c, code, text, reconcile.Result{}, nil)
	}

	res, err := h.engine.ReserveBet(ctx, reconcile.BetRequest{
		PlayerID:  msg.UserID,
		Reference: msg.RefID,
		RoundID:   strconv.FormatInt(msg.MatchID, 10),
		GameCode:  gameCode(msg.SportType),
		Amount:    stake,
		BetTime:   parseTime(msg.BetTime),
		Metadata:  msg.metadata(),
	})
	if err != nil {
		code, text := codeFor(err)
		return respond(c, code, text, res, fiber.Map{"refId": msg.RefID})
	}
	return respond(c, statusSuccess, "", res, fiber.Map{
		"refId":        msg.RefID,
		"licenseeTxId": res.CanonicalID,
	})
}
