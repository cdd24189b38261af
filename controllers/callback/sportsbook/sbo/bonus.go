package sbo

import (
	"errors"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

type BonusRequest struct {
	CompanyKey              string         `json:"CompanyKey"`
	Username                string         `json:"Username"`
	TransferCode            string         `json:"TransferCode"`
	TransactionId           string         `json:"TransactionId"`
	Amount                  float64        `json:"Amount"`
	BonusTime               string         `json:"BonusTime"`
	ProductType             int            `json:"ProductType"`
	GameType                int            `json:"GameType"`
	Gpid                    int            `json:"Gpid"`
	GameId                  int            `json:"GameId"`
	IsGameProviderPromotion bool           `json:"IsGameProviderPromotion"`
	BonusProvider           string         `json:"BonusProvider"`
	ExtraInfo               map[string]any `json:"ExtraInfo"`
}

func (h *Handler) Bonus(c *fiber.Ctx) error {
	var req BonusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalid(c, err)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.TransferCode = strings.TrimSpace(req.TransferCode)
	if req.Username == "" || req.TransferCode == "" || req.Amount <= 0 {
		return invalid(c, errors.New("username, transfer code and positive amount are required"))
	}

	p, err := h.engine.Player(c.UserContext(), req.Username)
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, reconcile.Result{}, code, msg)
	}

	meta := map[string]any{
		"bonusTime":               req.BonusTime,
		"bonusProvider":           req.BonusProvider,
		"isGameProviderPromotion": req.IsGameProviderPromotion,
	}
	if len(req.ExtraInfo) > 0 {
		meta["extraInfo"] = req.ExtraInfo
	}

	res, err := h.engine.GrantBonus(c.UserContext(), reconcile.AdjustmentRequest{
		PlayerID:  p.PlayerID,
		Reference: req.TransferCode,
		RoundID:   req.TransactionId,
		GameCode:  gameCode(req.Gpid, req.GameId),
		Amount:    internal(p.Currency, req.Amount),
		Metadata:  meta,
	})
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, res, code, msg)
	}
	return ok(c, req.Username, res, nil)
}
