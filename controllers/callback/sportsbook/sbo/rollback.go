package sbo

import (
	"errors"
	"fmt"
	"strings"

	"seamless/models"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

type RollbackRequest struct {
	CompanyKey    string `json:"CompanyKey"`
	Username      string `json:"Username"`
	TransferCode  string `json:"TransferCode"`
	TransactionId string `json:"TransactionId"`
	ProductType   int    `json:"ProductType"`
	GameType      int    `json:"GameType"`
	IsCashOut     bool   `json:"IsCashOut"`
	Gpid          int    `json:"Gpid"`
}

// Rollback returns a settled bet to running by taking back its payout. The
// provider may settle and roll back the same bet repeatedly, so each rollback
// is numbered after the ones already journaled.
func (h *Handler) Rollback(c *fiber.Ctx) error {
	var req RollbackRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TransferCode = strings.TrimSpace(req.TransferCode)
	if req.Username == "" || req.TransferCode == "" {
		return invalid(c, errors.New("username and transfer code are required"))
	}

	ctx := c.UserContext()
	history, err := h.engine.History(ctx, req.TransferCode)
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, reconcile.Result{}, code, msg)
	}
	n := 1
	for _, row := range history {
		if row.Operation == models.OpUnsettle {
			n++
		}
	}

	res, err := h.engine.Unsettle(ctx, reconcile.UnsettleRequest{
		PlayerID:      req.Username,
		Reference:     req.TransferCode,
		CorrectionRef: fmt.Sprintf("%s-rollback-%d", req.TransferCode, n),
		Metadata:      map[string]any{"transactionId": req.TransactionId, "isCashOut": req.IsCashOut},
	})
	switch {
	case err == nil:
		return ok(c, req.Username, res, nil)
	case errors.Is(err, reconcile.ErrDuplicate), errors.Is(err, reconcile.ErrIneligibleState):
		code, msg := h.stateCode(ctx, req.TransferCode)
		if code == codeBadState {
			code, msg = codeNotRollbackable, "Only Settled bet can be rollback"
		}
		return fail(c, req.Username, res, code, msg)
	default:
		code, msg := codeFor(err)
		return fail(c, req.Username, res, code, msg)
	}
}
