package middlewares

import (
	"seamless/config"

	"github.com/gofiber/fiber/v2"
)

const credentialLocal = "credential"

// Credential returns the credential an auth middleware resolved for the request.
func Credential(c *fiber.Ctx) (config.Credential, bool) {
	cred, ok := c.Locals(credentialLocal).(config.Credential)
	return cred, ok
}
