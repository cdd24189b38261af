package middlewares

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"sort"
	"strings"

	"seamless/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// PragmaticAuth resolves the credential whose operator equals providerId and
// checks the hash parameter against it.
func PragmaticAuth(creds *config.CredentialTable, provider string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		providerID := c.FormValue("providerId")

		var matches []config.Credential
		if providerID != "" {
			for _, candidate := range creds.ForProvider(provider) {
				if candidate.Operator == providerID {
					matches = append(matches, candidate)
				}
			}
		}
		if len(matches) != 1 {
			reason := "provider id"
			if len(matches) > 1 {
				reason = "provider id shared by several currencies"
			}
			zap.L().Warn("Rejected callback",
				zap.String("provider", provider),
				zap.String("provider_id", providerID),
				zap.Int("matches", len(matches)),
				zap.String("reason", reason))
			return c.JSON(fiber.Map{
				"error":       1002,
				"description": "Invalid providerId",
			})
		}
		cred := matches[0]

		got := []byte(strings.ToLower(c.FormValue("hash")))
		want := []byte(PragmaticHash(formParams(c), cred.Secret))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			zap.L().Warn("Rejected callback", zap.String("provider", provider), zap.String("reason", "hash"))
			return c.JSON(fiber.Map{
				"error":       5,
				"description": "Invalid hash code",
			})
		}

		c.Locals(credentialLocal, cred)
		return c.Next()
	}
}

// PragmaticHash signs params the way the provider does: non-empty parameters
// other than hash, sorted by name, joined as k=v with &, then the secret.
func PragmaticHash(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == "hash" || v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := md5.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func formParams(c *fiber.Ctx) map[string]string {
	params := make(map[string]string)
	c.Request().PostArgs().VisitAll(func(key, value []byte) {
		params[string(key)] = string(value)
	})
	return params
}
