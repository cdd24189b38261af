package playstar

import (
	"strconv"
	"time"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func txnID(c *fiber.Ctx) (string, bool) {
	raw := c.Query("txn_id")
	if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
		return "", false
	}
	return raw, true
}

func metadata(c *fiber.Ctx) map[string]any {
	m := map[string]any{"subgameId": c.Query("subgame_id")}
	if ts, err := strconv.ParseInt(c.Query("ts"), 10, 64); err == nil {
		m["ts"] = ts
	}
	return m
}

func (h *Handler) Bet(c *fiber.Ctx) error {
	id, ok := member(c)
	if !ok {
		return reply(c, statusInvalidMember, decimal.Zero)
	}
	ref, ok := txnID(c)
	if !ok {
		return reply(c, statusInvalidTxn, decimal.Zero)
	}
	stake, ok := amount(c, "total_bet")
	if !ok || stake.IsZero() {
		return reply(c, statusError, decimal.Zero)
	}

	var betTime time.Time
	if ts, err := strconv.ParseInt(c.Query("ts"), 10, 64); err == nil {
		betTime = time.Unix(ts, 0)
	}

	res, err := h.engine.PlaceBet(c.UserContext(), reconcile.BetRequest{
		PlayerID:  id,
		Reference: ref,
		RoundID:   ref,
		GameCode:  c.Query("game_id"),
		Amount:    stake,
		BetTime:   betTime,
		Metadata:  metadata(c),
	})
	return respond(c, res, err)
}

// Result settles the bet of txn_id with its total win plus any bonus win.
func (h *Handler) Result(c *fiber.Ctx) error {
	id, ok := member(c)
	if !ok {
		return reply(c, statusInvalidMember, decimal.Zero)
	}
	ref, ok := txnID(c)
	if !ok {
		return reply(c, statusInvalidTxn, decimal.Zero)
	}
	win, ok := amount(c, "total_win")
	if !ok {
		return reply(c, statusError, decimal.Zero)
	}
	bonus, ok := amount(c, "bonus_win")
	if !ok {
		return reply(c, statusError, decimal.Zero)
	}

	meta := metadata(c)
	if jp := c.Query("jp_contrib"); jp != "" {
		meta["jpContrib"] = jp
	}
	res, err := h.engine.Settle(c.UserContext(), reconcile.SettleRequest{
		PlayerID:  id,
		Reference: ref,
		GameCode:  c.Query("game_id"),
		Win:       win.Add(bonus),
		Metadata:  meta,
	})
	return respond(c, res, err)
}

func (h *Handler) Refund(c *fiber.Ctx) error {
	id, ok := member(c)
	if !ok {
		return reply(c, statusInvalidMember, decimal.Zero)
	}
	ref, ok := txnID(c)
	if !ok {
		return reply(c, statusInvalidTxn, decimal.Zero)
	}

	res, err := h.engine.Cancel(c.UserContext(), reconcile.CancelRequest{
		PlayerID:  id,
		Reference: ref,
		Metadata:  metadata(c),
	})
	return respond(c, res, err)
}

func (h *Handler) Bonus(c *fiber.Ctx) error {
	id, ok := member(c)
	if !ok {
		return reply(c, statusInvalidMember, decimal.Zero)
	}
	bonusID := c.Query("bonus_id")
	if _, err := strconv.ParseUint(bonusID, 10, 64); err != nil {
		return reply(c, statusInvalidTxn, decimal.Zero)
	}
	reward, ok := amount(c, "bonus_reward")
	bonusType := c.Query("bonus_type")
	if !ok || reward.IsZero() || len(bonusType) > 12 {
		return reply(c, statusError, decimal.Zero)
	}

	meta := metadata(c)
	meta["bonusType"] = bonusType
	res, err := h.engine.GrantBonus(c.UserContext(), reconcile.AdjustmentRequest{
		PlayerID:  id,
		Reference: bonusID,
		RoundID:   c.Query("txn_id"),
		GameCode:  c.Query("game_id"),
		Amount:    reward,
		Metadata:  meta,
	})
	return respond(c, res, err)
}
