package pragmatic

import (
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// Adjustment applies a signed balance correction inside a round.
func (h *Handler) Adjustment(c *fiber.Ctx) error {
	cb, err := parse(c)
	if err != nil {
		return badRequest(c, err)
	}
	amount, err := decimal.NewFromString(cb.Amount)
	if err != nil || amount.IsZero() {
		return failure(c, reconcile.Result{}, codeInvalidAmount, "Invalid amount")
	}

	meta := cb.metadata()
	if cb.ValidBetAmount != "" {
		meta["validBetAmount"] = cb.ValidBetAmount
	}
	req := reconcile.AdjustmentRequest{
		PlayerID:  cb.UserID,
		Reference: cb.Reference,
		RoundID:   cb.RoundID,
		GameCode:  cb.GameID,
		Amount:    amount.Abs(),
		Metadata:  meta,
	}

	var res reconcile.Result
	if amount.IsNegative() {
		res, err = h.engine.AdjustDebit(c.UserContext(), req)
	} else {
		res, err = h.engine.AdjustCredit(c.UserContext(), req)
	}
	return respond(c, res, err)
}
