package middleware

import (
	"log"
	"strings"

	"tienda/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired is a Fiber middleware that verifies the bearer credential
// with the configured identity provider. A missing or malformed header
// is Unauthorized; a credential the provider rejects is Forbidden. On
// success the decoded claims are stored in the request locals.
func AuthRequired(verifier auth.TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "No token provided",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := verifier.Verify(c.Context(), parts[1])
		if err != nil {
			log.Printf("Token verification failed: %v", err)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "Invalid token",
			})
		}

		// Store claims for subsequent handlers; no role logic exists here.
		c.Locals("claims", claims)

		return c.Next()
	}
}
