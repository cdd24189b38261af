package middlewares

import (
	"crypto/subtle"

	"seamless/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SboAuth accepts requests whose CompanyKey matches one of the provider's credentials.
func SboAuth(creds *config.CredentialTable, provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			CompanyKey string `json:"CompanyKey"`
		}

		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusOK).JSON(fiber.Map{
				"AccountName":  "",
				"Balance":      0,
				"ErrorCode":    422,
				"ErrorMessage": "INVALID_JSON",
			})
		}

		if body.CompanyKey != "" {
			for _, cred := range creds.ForProvider(provider) {
				if subtle.ConstantTimeCompare([]byte(body.CompanyKey), []byte(cred.Key)) == 1 {
					c.Locals(credentialLocal, cred)
					return c.Next()
				}
			}
		}

		zap.L().Warn("Rejected callback", zap.String("provider", provider), zap.String("reason", "company key"))
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"ErrorCode":    4,
			"ErrorMessage": "CompanyKey Error",
			"Balance":      0,
		})
	}
}
