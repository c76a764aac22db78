package middleware

import (
	"time"

	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

// SetSessionCookies writes both tokens of pair. Both cookies live as long as
// the refresh token so an expired access token still reaches the refresh
// path.
func SetSessionCookies(c *fiber.Ctx, pair services.TokenPair) {
	c.Cookie(sessionCookie(AccessCookie, pair.Access, pair.RefreshExpiresAt))
	c.Cookie(sessionCookie(RefreshCookie, pair.Refresh, pair.RefreshExpiresAt))
}

// ClearSessionCookies expires both cookies.
func ClearSessionCookies(c *fiber.Ctx) {
	c.Cookie(sessionCookie(AccessCookie, "", time.Unix(0, 0)))
	c.Cookie(sessionCookie(RefreshCookie, "", time.Unix(0, 0)))
}

func sessionCookie(name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

// ClientMeta captures the request context stored with sessions and audit
// events.
func ClientMeta(c *fiber.Ctx) models.ClientMeta {
	os := c.Get("os")
	if os == "" {
		os = "unknown"
	}
	return models.ClientMeta{
		Browser: c.Get(fiber.HeaderUserAgent),
		OS:      os,
		IP:      c.IP(),
	}
}
