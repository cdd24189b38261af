package middlewares

import (
	"crypto/subtle"

	"seamless/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SabaAuth accepts requests whose envelope key matches one of the provider's
// credentials.
func SabaAuth(creds *config.CredentialTable, provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Key string `json:"key"`
		}
		if err := c.BodyParser(&body); err != nil {
			return c.JSON(fiber.Map{
				"status": "101",
				"msg":    "Parameter(s) Incorrect",
			})
		}

		if body.Key != "" {
			for _, cred := range creds.ForProvider(provider) {
				if subtle.ConstantTimeCompare([]byte(body.Key), []byte(cred.Key)) == 1 {
					c.Locals(credentialLocal, cred)
					return c.Next()
				}
			}
		}

		zap.L().Warn("Rejected callback", zap.String("provider", provider), zap.String("reason", "vendor key"))
		return c.JSON(fiber.Map{
			"status": "311",
			"msg":    "Invalid Key",
		})
	}
}
