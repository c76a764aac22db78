package middleware

import (
	"context"

	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const userKey = "user"

// SessionVerifier verifies tokens and renews sessions from a refresh token.
type SessionVerifier interface {
	Verify(token string, kind services.TokenKind) (*services.Identity, bool)
	Renew(ctx context.Context, id *services.Identity, refresh string, meta models.ClientMeta) (services.TokenPair, bool)
}

// Authenticator admits requests carrying a valid access token. When only the
// refresh token is valid, the session is rotated and fresh cookies are set
// before the request goes on.
func Authenticator(sessions SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		access := c.Cookies(AccessCookie)
		refresh := c.Cookies(RefreshCookie)
		if access == "" || refresh == "" {
			return unauthorized(c)
		}

		accessID, accessOK := sessions.Verify(access, services.AccessToken)
		refreshID, refreshOK := sessions.Verify(refresh, services.RefreshToken)

		if accessOK {
			c.Locals(userKey, *accessID)
			return c.Next()
		}
		if !refreshOK {
			return unauthorized(c)
		}

		pair, ok := sessions.Renew(c.UserContext(), refreshID, refresh, ClientMeta(c))
		if !ok {
			return unauthorized(c)
		}

		SetSessionCookies(c, pair)
		c.Locals(userKey, *refreshID)
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return utils.Respond(c, fiber.StatusUnauthorized, utils.MsgUnauthorized, nil)
}

// CurrentUser returns the identity attached by Authenticator.
func CurrentUser(c *fiber.Ctx) (services.Identity, bool) {
	id, ok := c.Locals(userKey).(services.Identity)
	return id, ok
}

// CurrentUserID returns the id of the authenticated user.
func CurrentUserID(c *fiber.Ctx) (primitive.ObjectID, bool) {
	id, ok := CurrentUser(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(id.ID)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
