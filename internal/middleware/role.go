package middleware

import (
	"slices"

	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// RequireRole ensures that only users with one of roles can access the
// routes behind it. It must run after Authenticator.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := CurrentUser(c)
		if !ok {
			return unauthorized(c)
		}

		if !slices.Contains(roles, models.Role(id.Role)) {
			return utils.Respond(c, fiber.StatusForbidden, "Access denied", nil)
		}

		return c.Next()
	}
}
