// Package saba answers the seamless wallet callbacks of Saba style
// sportsbooks. A bet is placed and confirmed in two steps: PlaceBet only
// reserves the ticket and ConfirmBet takes the stake. Tickets left
// unconfirmed are voided by the waiting expiry job.
//
// Every request is a JSON envelope {"key": ..., "message": {...}} and amounts
// are display units; IDR and VND are quoted in thousands.
package saba

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"seamless/helpers"
	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const Provider = "SABA"

const (
	statusSuccess           = "0"
	statusDuplicate         = "1"
	statusParameter         = "101"
	statusAccountLocked     = "202"
	statusAccountNotFound   = "203"
	statusInvalidAmount     = "309"
	statusInsufficientFunds = "502"
	statusNoSuchTicket      = "504"
	statusTicketState       = "505"
	statusSystem            = "999"
)

type Request struct {
	Key     string  `json:"key"`
	Message Message `json:"message"`
}

type Message struct {
	Action       string          `json:"action"`
	OperationID  string          `json:"operationId"`
	UserID       string          `json:"userId"`
	RefID        string          `json:"refId"`
	MatchID      int64           `json:"matchId"`
	SportType    int             `json:"sportType"`
	BetType      int             `json:"betType"`
	BetAmount    decimal.Decimal `json:"betAmount"`
	ActualAmount decimal.Decimal `json:"actualAmount"`
	BetTime      string          `json:"betTime"`
	Txns         []Txn           `json:"txns"`
}

// Txn is one ticket of a batch callback. UserID falls back to the
// message's userId.
type Txn struct {
	UserID       string          `json:"userId"`
	RefID        string          `json:"refId"`
	TxID         int64           `json:"txId"`
	Payout       decimal.Decimal `json:"payout"`
	ActualAmount decimal.Decimal `json:"actualAmount"`
}

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

func display(res reconcile.Result) float64 {
	return helpers.ToDisplay(res.Currency, res.Balance).InexactFloat64()
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
		return t
	}
	return time.Time{}
}

func respond(c *fiber.Ctx, status, msg string, res reconcile.Result, extra fiber.Map) error {
	body := fiber.Map{
		"status": status,
		"msg":    msg,
	}
	if res.Currency != "" {
		body["balance"] = display(res)
	}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}

func invalid(c *fiber.Ctx, err error) error {
	zap.L().Warn("Malformed callback", zap.String("provider", Provider), zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(fiber.Map{
		"status": statusParameter,
		"msg":    "Parameter(s) Incorrect",
	})
}

func codeFor(err error) (string, string) {
	switch {
	case errors.Is(err, reconcile.ErrAmountPrecision), errors.Is(err, errStakeChanged):
		return statusInvalidAmount, "Invalid Amount"
	case errors.Is(err, reconcile.ErrInvalidRequest):
		return statusParameter, "Parameter(s) Incorrect"
	case errors.Is(err, reconcile.ErrPlayerNotFound):
		return statusAccountNotFound, "Account Is Not Exist"
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		return statusNoSuchTicket, "No Such Ticket"
	case errors.Is(err, reconcile.ErrInsufficientFunds):
		return statusInsufficientFunds, "Player Has Insufficient Funds"
	case errors.Is(err, reconcile.ErrPlayerRestricted):
		return statusAccountLocked, "Account Is Lock"
	case errors.Is(err, reconcile.ErrDuplicate):
		return statusDuplicate, "Duplicate Transaction"
	case errors.Is(err, reconcile.ErrIneligibleState), errors.Is(err, reconcile.ErrCurrencyMismatch):
		return statusTicketState, "Invalid Ticket Status"
	default:
		return statusSystem, "System Error"
	}
}

// batch applies fn to every ticket of msg. A ticket the engine already
// handled counts as done, so a provider retry of the whole batch succeeds.
// The reply carries the first failure and the latest known balance.
func (h *Handler) batch(c *fiber.Ctx, msg Message, fn func(ctx context.Context, userID string, txn Txn) (reconcile.Result, error)) error {
	if len(msg.Txns) == 0 {
		return invalid(c, errors.New("txns are required"))
	}

	ctx := c.UserContext()
	status, text := statusSuccess, ""
	var last reconcile.Result
	for _, txn := range msg.Txns {
		userID := strings.TrimSpace(txn.UserID)
		if userID == "" {
			userID = strings.TrimSpace(msg.UserID)
		}
		txn.RefID = strings.TrimSpace(txn.RefID)

		res, err := fn(ctx, userID, txn)
		if err == nil || errors.Is(err, reconcile.ErrDuplicate) {
			if res.Currency != "" {
				last = res
			}
			continue
		}
		zap.L().Warn("Ticket rejected",
			zap.String("provider", Provider),
			zap.String("action", msg.Action),
			zap.String("operation_id", msg.OperationID),
			zap.String("ref_id", txn.RefID),
			zap.Error(err))
		if status == statusSuccess {
			status, text = codeFor(err)
		}
	}
	return respond(c, status, text, last, nil)
}

// internal converts a display amount of userID's currency to ledger units.
func (h *Handler) internal(ctx context.Context, userID string, amount decimal.Decimal) (decimal.Decimal, error) {
	p, err := h.engine.Player(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return helpers.ToInternal(p.Currency, amount), nil
}

func (m Message) metadata() map[string]any {
	md := map[string]any{"operationId": m.OperationID}
	if m.MatchID != 0 {
		md["matchId"] = m.MatchID
	}
	if m.BetType != 0 {
		md["betType"] = m.BetType
	}
	return md
}

func (t Txn) metadata(m Message) map[string]any {
	md := m.metadata()
	if t.TxID != 0 {
		md["txId"] = t.TxID
	}
	return md
}

func gameCode(sportType int) string {
	return "sport-" + strconv.Itoa(sportType)
}

// correctionRef names one resettle or unsettle of a ticket. The provider
// sends a fresh operationId for every correction.
func correctionRef(operationID, refID string) string {
	return strings.TrimSpace(operationID) + "-" + refID
}
