package sbo

import (
	"errors"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
)

type DeductRequest struct {
	CompanyKey    string         `json:"CompanyKey"`
	Username      string         `json:"Username"`
	Amount        float64        `json:"Amount"`
	TransferCode  string         `json:"TransferCode"`
	TransactionId string         `json:"TransactionId"`
	BetTime       string         `json:"BetTime"`
	ProductType   int            `json:"ProductType"`
	GameType      int            `json:"GameType"`
	GameRoundId   *string        `json:"GameRoundId"`
	GamePeriodId  *string        `json:"GamePeriodId"`
	OrderDetail   string         `json:"OrderDetail"`
	Gpid          int            `json:"Gpid"`
	GameId        int            `json:"GameId"`
	ExtraInfo     map[string]any `json:"ExtraInfo"`
}

func (r DeductRequest) roundID() string {
	if r.GameRoundId != nil {
		return *r.GameRoundId
	}
	return r.TransactionId
}

func (r DeductRequest) metadata() map[string]any {
	m := map[string]any{
		"productType": r.ProductType,
		"gameType":    r.GameType,
		"gpid":        r.Gpid,
	}
	if r.TransactionId != "" {
		m["transactionId"] = r.TransactionId
	}
	if r.GamePeriodId != nil {
		m["gamePeriodId"] = *r.GamePeriodId
	}
	if r.OrderDetail != "" {
		m["orderDetail"] = r.OrderDetail
	}
	if len(r.ExtraInfo) > 0 {
		m["extraInfo"] = r.ExtraInfo
	}
	return m
}

func (h *Handler) Deduct(c *fiber.Ctx) error {
	var req DeductRequest
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

	res, err := h.engine.PlaceBet(c.UserContext(), reconcile.BetRequest{
		PlayerID:  p.PlayerID,
		Reference: req.TransferCode,
		RoundID:   req.roundID(),
		GameCode:  gameCode(req.Gpid, req.GameId),
		Amount:    internal(p.Currency, req.Amount),
		BetTime:   parseTime(req.BetTime),
		Metadata:  req.metadata(),
	})
	if err != nil {
		code, msg := codeFor(err)
		return fail(c, req.Username, res, code, msg)
	}
	return ok(c, req.Username, res, fiber.Map{"BetAmount": req.Amount})
}
