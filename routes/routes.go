package routes

import (
	"errors"

	"seamless/config"
	"seamless/controllers/callback/slots/playstar"
	"seamless/controllers/callback/slots/pragmatic"
	"seamless/controllers/callback/slots/telo"
	"seamless/controllers/callback/sportsbook/saba"
	"seamless/controllers/callback/sportsbook/sbo"
	"seamless/helpers"
	"seamless/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers holds one adapter per provider. A nil adapter leaves its routes out.
type Handlers struct {
	Playstar  *playstar.Handler
	Pragmatic *pragmatic.Handler
	Saba      *saba.Handler
	Sbo       *sbo.Handler
	Telo      *telo.Handler
}

// ErrorHandler answers errors no adapter handled, such as unknown routes
// and recovered panics, in the generic JSON envelope.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		zap.L().Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return helpers.JSONError(c, code, "Internal server error")
	}
	return helpers.JSONError(c, code, err.Error())
}

func Setup(app *fiber.App, creds *config.CredentialTable, h Handlers, gatherer prometheus.Gatherer) {
	app.Use(middlewares.RequestID(), middlewares.Logger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return helpers.JSONSuccess(c, "OK", nil)
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	//telo
	if h.Telo != nil {
		teloroutes := app.Group("/seamless/slot/gold_api", middlewares.TeloAgentAuth(creds, telo.Provider))
		teloroutes.Post("/user_balance", h.Telo.UserBalance)
		teloroutes.Post("/game_callback", h.Telo.GameCallback)
	}

	//sbo
	if h.Sbo != nil {
		sboroutes := app.Group("/seamless/sportsbook/sbo", middlewares.SboAuth(creds, sbo.Provider))
		sboroutes.Post("/GetBalance", h.Sbo.GetBalance)
		sboroutes.Post("/GetBetStatus", h.Sbo.GetBetStatus)
		sboroutes.Post("/Deduct", h.Sbo.Deduct)
		sboroutes.Post("/Settle", h.Sbo.Settle)
		sboroutes.Post("/Cancel", h.Sbo.Cancel)
		sboroutes.Post("/Rollback", h.Sbo.Rollback)
		sboroutes.Post("/Bonus", h.Sbo.Bonus)
	}

	//saba
	if h.Saba != nil {
		sabaroutes := app.Group("/seamless/sportsbook/saba", middlewares.SabaAuth(creds, saba.Provider))
		sabaroutes.Post("/getbalance", h.Saba.GetBalance)
		sabaroutes.Post("/placebet", h.Saba.PlaceBet)
		sabaroutes.Post("/confirmbet", h.Saba.ConfirmBet)
		sabaroutes.Post("/cancelbet", h.Saba.CancelBet)
		sabaroutes.Post("/settle", h.Saba.Settle)
		sabaroutes.Post("/resettle", h.Saba.Resettle)
		sabaroutes.Post("/unsettle", h.Saba.Unsettle)
	}

	//pragmatic
	if h.Pragmatic != nil {
		prroutes := app.Group("/seamless/provider/pragmatic", middlewares.PragmaticAuth(creds, pragmatic.Provider))
		prroutes.Post("/authenticate", h.Pragmatic.Authenticate)
		prroutes.Post("/balance", h.Pragmatic.Balance)
		prroutes.Post("/bet", h.Pragmatic.Bet)
		prroutes.Post("/bonuswin", h.Pragmatic.BonusWin)
		prroutes.Post("/endround", h.Pragmatic.EndRound)
		prroutes.Post("/jackpotwin", h.Pragmatic.JackpotWin)
		prroutes.Post("/promowin", h.Pragmatic.PromoWin)
		prroutes.Post("/refund", h.Pragmatic.Refund)
		prroutes.Post("/result", h.Pragmatic.Result)
		prroutes.Post("/adjustment", h.Pragmatic.Adjustment)
	}

	//playstar
	if h.Playstar != nil {
		psroutes := app.Group("/seamless/slot/api")
		psroutes.Get("/bet", h.Playstar.Bet)
		psroutes.Get("/result", h.Playstar.Result)
		psroutes.Get("/refund", h.Playstar.Refund)
		psroutes.Get("/bonusaward", h.Playstar.Bonus)
		psroutes.Get("/getbalance", h.Playstar.Balance)
	}
}
