package pragmatic

import (
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

// BonusWin pays the winnings of free rounds.
func (h *Handler) BonusWin(c *fiber.Ctx) error {
	return h.grant(c, "bonusWin")
}

// PromoWin pays tournament and prize drop winnings.
func (h *Handler) PromoWin(c *fiber.Ctx) error {
	return h.grant(c, "promoWin")
}

func (h *Handler) JackpotWin(c *fiber.Ctx) error {
	return h.grant(c, "jackpotWin")
}

func (h *Handler) grant(c *fiber.Ctx, kind string) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	amount, ok := parseAmount(cb.Amount)
	if !ok || !amount.IsPositive() {
		return failure(c, reconcile.Result{}, codeInvalidAmount, "Invalid amount")
	}

	meta := cb.metadata()
	meta["kind"] = kind
	if cb.CampaignID != "" {
		meta["campaignId"] = cb.CampaignID
		meta["campaignType"] = cb.CampaignType
	}
	if cb.JackpotID != "" {
		meta["jackpotId"] = cb.JackpotID
	}

	res, err := h.engine.GrantBonus(c.UserContext(), reconcile.AdjustmentRequest{
		PlayerID:  cb.UserID,
		Currency:  cb.Currency,
		Reference: cb.Reference,
		RoundID:   cb.RoundID,
		GameCode:  cb.GameID,
		Amount:    amount,
		Metadata:  meta,
	})
	return respond(c, res, err)
}
