package telo

import (
	"time"

	"seamless/helpers"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	txnDebit       = "debit"
	txnCredit      = "credit"
	txnDebitCredit = "debit_credit"
)

// GameCallback applies one slot transaction. The txn_id names the round: a
// debit opens it, a credit settles it and debit_credit does both at once.
func (h *Handler) GameCallback(c *fiber.Ctx) error {
	var req GameCallbackRequest
	if err := c.BodyParser(&req); err != nil {
		zap.L().Warn("Malformed callback", zap.String("provider", Provider), zap.Error(err))
		return helpers.TeloError(c, "INVALID_JSON", decimal.Zero)
	}

	bet, err := req.Slot.Bet.Decimal()
	if err != nil || bet.IsNegative() {
		return helpers.TeloError(c, "INVALID_BET_AMOUNT", decimal.Zero)
	}
	win, err := req.Slot.Win.Decimal()
	if err != nil || win.IsNegative() {
		return helpers.TeloError(c, "INVALID_WIN_AMOUNT", decimal.Zero)
	}

	betTime, _ := time.Parse(time.DateTime, req.Slot.CreatedAt)
	meta := map[string]any{
		"providerCode":    req.Slot.ProviderCode,
		"gameType":        req.GameType,
		"type":            req.Slot.Type,
		"isRoundFinished": req.Slot.IsRoundFinished,
		"agentCode":       req.AgentCode,
	}
	betReq := reconcile.BetRequest{
		PlayerID:  req.UserCode,
		Username:  req.UserCode,
		Currency:  currency(c),
		Reference: req.Slot.TxnID.String(),
		RoundID:   req.Slot.RoundID.String(),
		GameCode:  req.Slot.GameCode.String(),
		Amount:    bet,
		BetTime:   betTime,
		Metadata:  meta,
	}

	ctx := c.UserContext()
	var res reconcile.Result
	switch req.Slot.TxnType {
	case txnDebit:
		res, err = h.engine.PlaceBet(ctx, betReq)
	case txnCredit:
		res, err = h.engine.Settle(ctx, reconcile.SettleRequest{
			PlayerID:  req.UserCode,
			Currency:  betReq.Currency,
			Reference: betReq.Reference,
			GameCode:  betReq.GameCode,
			Win:       win,
			Metadata:  meta,
		})
	case txnDebitCredit:
		res, err = h.engine.PlaceAndSettle(ctx, reconcile.PlaceAndSettleRequest{BetRequest: betReq, Win: win})
	default:
		return helpers.TeloError(c, "INVALID_TXN_TYPE", decimal.Zero)
	}
	return respond(c, res, err)
}
