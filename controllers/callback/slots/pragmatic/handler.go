// Package pragmatic answers the form-encoded seamless wallet callbacks of
// Pragmatic Play style slot providers.
package pragmatic

import (
	"errors"
	"strings"

	"seamless/reconcile"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const Provider = "PRAGMATIC"

const (
	codeSuccess           = 0
	codeInvalidContent    = 1000
	codeMissingParameters = 1001
	codePlayerNotFound    = 2001
	codePlayerRestricted  = 2002
	codeBetNotFound       = 2003
	codeInsufficientFunds = 3001
	codeInvalidAmount     = 3002
	codeBadState          = 3003
	codeCurrencyMismatch  = 3004
	codeLedgerFailed      = 5001
	codeUnrecorded        = 5005
)

var errInvalidContent = errors.New("invalid content type")

type Handler struct {
	engine *reconcile.Engine
}

func NewHandler(engine *reconcile.Engine) *Handler {
	return &Handler{engine: engine}
}

// callback carries every form field the provider sends; each endpoint reads
// the ones it needs.
type callback struct {
	ProviderID     string `form:"providerId"`
	UserID         string `form:"userId"`
	Token          string `form:"token"`
	GameID         string `form:"gameId"`
	RoundID        string `form:"roundId"`
	Amount         string `form:"amount"`
	PromoWinAmount string `form:"promoWinAmount"`
	Reference      string `form:"reference"`
	Timestamp      string `form:"timestamp"`
	RoundDetails   string `form:"roundDetails"`
	BonusCode      string `form:"bonusCode"`
	CampaignID     string `form:"campaignId"`
	CampaignType   string `form:"campaignType"`
	JackpotID      string `form:"jackpotId"`
	Currency       string `form:"currency"`
	ValidBetAmount string `form:"validBetAmount"`
	Hash           string `form:"hash"`
}

func (cb callback) metadata() map[string]any {
	m := map[string]any{"timestamp": cb.Timestamp}
	if cb.RoundDetails != "" {
		m["roundDetails"] = cb.RoundDetails
	}
	if cb.BonusCode != "" {
		m["bonusCode"] = cb.BonusCode
	}
	return m
}

func parse(c *fiber.Ctx) (callback, error) {
	ct := strings.ToLower(c.Get(fiber.HeaderContentType))
	if ct != "" && !strings.Contains(ct, fiber.MIMEApplicationForm) {
		return callback{}, errInvalidContent
	}
	var cb callback
	if err := c.BodyParser(&cb); err != nil {
		return callback{}, err
	}
	return cb, nil
}

// parseAmount reads a non-negative decimal amount. An empty string is zero.
func parseAmount(s string) (decimal.Decimal, bool) {
	if s == "" {
		return decimal.Zero, true
	}
	v, err := decimal.NewFromString(s)
	if err != nil || v.IsNegative() {
		return decimal.Zero, false
	}
	return v, true
}

func success(c *fiber.Ctx, res reconcile.Result, description string) error {
	return c.JSON(fiber.Map{
		"transactionId": res.CanonicalID,
		"currency":      res.Currency,
		"cash":          res.Balance.InexactFloat64(),
		"bonus":         0.0,
		"usedPromo":     0,
		"error":         codeSuccess,
		"description":   description,
	})
}

func failure(c *fiber.Ctx, res reconcile.Result, code int, description string) error {
	return c.JSON(fiber.Map{
		"currency":    res.Currency,
		"cash":        res.Balance.InexactFloat64(),
		"bonus":       0.0,
		"usedPromo":   0,
		"error":       code,
		"description": description,
	})
}

func badRequest(c *fiber.Ctx, err error) error {
	zap.L().Warn("Malformed callback", zap.String("provider", Provider), zap.String("path", c.Path()), zap.Error(err))
	if errors.Is(err, errInvalidContent) {
		return failure(c, reconcile.Result{}, codeInvalidContent, "Invalid content type")
	}
	return failure(c, reconcile.Result{}, codeInvalidContent, "INVALID PARAMETER")
}

// respond maps an engine outcome onto the provider's error codes. A
// duplicate is answered as a success carrying the current balance.
func respond(c *fiber.Ctx, res reconcile.Result, err error) error {
	if err == nil {
		return success(c, res, "Success")
	}
	code, description := codeFor(err)
	if code == codeSuccess {
		return success(c, res, description)
	}
	return failure(c, res, code, description)
}

func codeFor(err error) (int, string) {
	switch {
	case errors.Is(err, reconcile.ErrDuplicate):
		return codeSuccess, "Success (idempotent)"
	case errors.Is(err, reconcile.ErrAmountPrecision):
		return codeInvalidAmount, "Invalid amount"
	case errors.Is(err, reconcile.ErrInvalidRequest):
		return codeMissingParameters, "Missing required parameters"
	case errors.Is(err, reconcile.ErrPlayerNotFound):
		return codePlayerNotFound, "User not found"
	case errors.Is(err, reconcile.ErrPlayerRestricted):
		return codePlayerRestricted, "User inactive"
	case errors.Is(err, reconcile.ErrTransactionNotFound):
		return codeBetNotFound, "Original bet not found"
	case errors.Is(err, reconcile.ErrInsufficientFunds):
		return codeInsufficientFunds, "Insufficient funds"
	case errors.Is(err, reconcile.ErrIneligibleState):
		return codeBadState, "Bet in a non-eligible state"
	case errors.Is(err, reconcile.ErrCurrencyMismatch):
		return codeCurrencyMismatch, "Currency mismatch"
	case errors.Is(err, reconcile.ErrUnrecorded):
		return codeUnrecorded, "Commit failed"
	default:
		return codeLedgerFailed, "Wallet error"
	}
}
