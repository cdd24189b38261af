package middlewares

import (
	"crypto/subtle"

	"seamless/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// TeloAgentAuth matches agent_code and agent_secret against the provider's
// credentials, Key being the agent code.
func TeloAgentAuth(creds *config.CredentialTable, provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			AgentCode   string `json:"agent_code"`
			AgentSecret string `json:"agent_secret"`
		}

		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"status": 0,
				"msg":    "INVALID_JSON",
			})
		}

		for _, cred := range creds.ForProvider(provider) {
			if body.AgentCode == cred.Key &&
				subtle.ConstantTimeCompare([]byte(body.AgentSecret), []byte(cred.Secret)) == 1 {
				c.Locals(credentialLocal, cred)
				return c.Next()
			}
		}

		zap.L().Warn("Rejected callback",
			zap.String("provider", provider),
			zap.String("agent_code", body.AgentCode),
			zap.String("reason", "agent credentials"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"status": 0,
			"msg":    "INVALID_AGENT_CREDENTIALS",
		})
	}
}
