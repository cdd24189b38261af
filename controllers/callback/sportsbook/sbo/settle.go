package sbo

import (
	"errors"
	"fmt"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

type SettleRequest struct {
	CompanyKey   string         `json:"CompanyKey"`
	Username     string         `json:"Username"`
	TransferCode string         `json:"TransferCode"`
	WinLoss      float64        `json:"WinLoss"`
	ResultType   int            `json:"ResultType"` // 0 win, 1 lose, 2 draw
	ResultTime   string         `json:"ResultTime"`
	ProductType  int            `json:"ProductType"`
	GameType     int            `json:"GameType"`
	GameResult   *string        `json:"GameResult"`
	Gpid         int            `json:"Gpid"`
	IsCashOut    bool           `json:"IsCashOut"`
	ExtraInfo    map[string]any `json:"ExtraInfo"`
}

// gameCode names a game by the provider's gpid and game id.
func gameCode(gpid, gameID int) string {
	return fmt.Sprintf("%d-%d", gpid, gameID)
}

// Settle pays WinLoss, the total return of the bet including the stake.
func (h *Handler) Settle(c *fiber.Ctx) error {
	var req SettleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TransferCode = strings.TrimSpace(req.TransferCode)
	if req.Username == "" || req.TransferCode == "" || req.WinLoss < 0 {
		return invalid(c, errors.New("username, transfer code and non-negative win loss are required"))
	}

	p, err := h.engine.Player(c.UserContext(), req.Username)
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, reconcile.Result{}, code, msg)
	}

	meta := map[string]any{
		"resultType": req.ResultType,
		"isCashOut":  req.IsCashOut,
	}
	if req.GameResult != nil {
		meta["gameResult"] = *req.GameResult
	}
	if len(req.ExtraInfo) > 0 {
		meta["extraInfo"] = req.ExtraInfo
	}

	ctx := c.UserContext()
	res, err := h.engine.Settle(ctx, reconcile.SettleRequest{
		PlayerID:  p.PlayerID,
		Reference: req.TransferCode,
		Win:       internal(p.Currency, req.WinLoss),
		SettledAt: parseTime(req.ResultTime),
		Metadata:  meta,
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
