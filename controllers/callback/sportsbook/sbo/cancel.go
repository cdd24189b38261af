package sbo

import (
	"errors"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

type CancelRequest struct {
	CompanyKey    string `json:"CompanyKey"`
	Username      string `json:"Username"`
	TransferCode  string `json:"TransferCode"`
	ProductType   int    `json:"ProductType"`
	GameType      int    `json:"GameType"`
	TransactionId string `json:"TransactionId"`
	IsCancelAll   bool   `json:"IsCancelAll"`
}

// Cancel voids a bet that has not been settled and returns the stake.
func (h *Handler) Cancel(c *fiber.Ctx) error {
	var req CancelRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TransferCode = strings.TrimSpace(req.TransferCode)

	ctx := c.UserContext()
	res, err := h.engine.Cancel(ctx, reconcile.CancelRequest{
		PlayerID:  req.Username,
		Reference: req.TransferCode,
		Metadata:  map[string]any{"transactionId": req.TransactionId, "isCancelAll": req.IsCancelAll},
	})
	switch {
	case err == nil:
		return ok(c, req.Username, res, nil)
	case errors.Is(err, reconcile.ErrDuplicate), errors.Is(err, reconcile.ErrIneligibleState):
		code, msg := h.stateCode(ctx, req.TransferCode)
		return fail(c, req.Username, res, code, msg)
	default:
		code, msg := codeFor(err)
		return fail(c, req.Username, res, code, msg)
	}
}
