package middleware_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	stack *servicestest.Stack
	app   *fiber.App
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Now()}
	f.stack = servicestest.New(t, servicestest.WithClock(func() time.Time { return f.now }))

	f.app = fiber.New()
	f.app.Get("/whoami", middleware.Authenticator(f.stack.Auth), func(c *fiber.Ctx) error {
		id, ok := middleware.CurrentUser(c)
		if !ok {
			return c.SendStatus(http.StatusTeapot)
		}
		return c.SendString(id.ID + ":" + id.Role)
	})
	f.app.Get("/admin",
		middleware.Authenticator(f.stack.Auth),
		middleware.RequireRole(models.RoleAdmin, models.RoleRoot),
		func(c *fiber.Ctx) error { return c.SendString("ok") },
	)
	return f
}

func (f *fixture) get(t *testing.T, path, access, refresh string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if access != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: access})
	}
	if refresh != "" {
		req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: refresh})
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func cookies(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestMissingCookiesRejected(t *testing.T) {
	f := newFixture(t)
	_, pair := f.stack.Register(t, "alice@example.com")

	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", "", "").StatusCode)
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", pair.Access, "").StatusCode)
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", "", pair.Refresh).StatusCode)
}

func TestValidAccessTokenAdmits(t *testing.T) {
	f := newFixture(t)
	user, pair := f.stack.Register(t, "alice@example.com")

	resp := f.get(t, "/whoami", pair.Access, pair.Refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, resp.Cookies(), "no rotation while the access token is valid")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, user.ID.Hex()+":root", string(body))
}

func TestBothInvalidRejected(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", "garbage", "garbage").StatusCode)
}

func TestExpiredAccessRotatesSession(t *testing.T) {
	f := newFixture(t)
	_, pair := f.stack.Register(t, "alice@example.com")

	f.now = f.now.Add(servicestest.JWT.AccessTTL + time.Second)

	resp := f.get(t, "/whoami", pair.Access, pair.Refresh)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	set := cookies(resp)
	require.Len(t, set, 2)
	for _, name := range []string{middleware.AccessCookie, middleware.RefreshCookie} {
		c := set[name]
		require.NotNil(t, c, name)
		require.True(t, c.Secure)
		require.True(t, c.HttpOnly)
		require.Equal(t, http.SameSiteStrictMode, c.SameSite)
		require.Equal(t, "/", c.Path)
	}
	next := set[middleware.RefreshCookie].Value
	require.NotEqual(t, pair.Refresh, next)

	_, ok := f.stack.Tokens.Verify(set[middleware.AccessCookie].Value, services.AccessToken)
	require.True(t, ok)

	// the rotated-out refresh token no longer renews
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", pair.Access, pair.Refresh).StatusCode)
	require.Equal(t, http.StatusOK, f.get(t, "/whoami", pair.Access, next).StatusCode)
}

func TestConcurrentRotationLoserRejected(t *testing.T) {
	f := newFixture(t)
	user, pair := f.stack.Register(t, "alice@example.com")
	f.now = f.now.Add(servicestest.JWT.AccessTTL + time.Second)

	// a parallel request wins the rotation after this one found the session
	var won bool
	f.stack.Collection(db.Sessions).BeforeUpdate(func() {
		won = f.stack.Sessions.Rotate(context.Background(), user.ID, pair.Refresh, "winner", models.ClientMeta{}).OK()
	})

	resp := f.get(t, "/whoami", pair.Access, pair.Refresh)
	require.True(t, won)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, resp.Cookies(), "the loser gets no new pair")
	require.True(t, f.stack.Sessions.Find(context.Background(), user.ID, "winner").OK())
}

func TestExpiredSessionRejected(t *testing.T) {
	f := newFixture(t)
	_, pair := f.stack.Register(t, "alice@example.com")

	f.now = f.now.Add(servicestest.JWT.RefreshTTL + time.Second)
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", pair.Access, pair.Refresh).StatusCode)
}

func TestRevokedSessionRejected(t *testing.T) {
	f := newFixture(t)
	_, pair := f.stack.Register(t, "alice@example.com")
	f.stack.Auth.Logout(context.Background(), pair.Refresh, models.ClientMeta{})

	f.now = f.now.Add(servicestest.JWT.AccessTTL + time.Second)
	require.Equal(t, http.StatusUnauthorized, f.get(t, "/whoami", pair.Access, pair.Refresh).StatusCode)
}

func TestRequireRole(t *testing.T) {
	f := newFixture(t)
	_, root := f.stack.Register(t, "root@example.com")
	_, user := f.stack.Register(t, "user@example.com")

	require.Equal(t, http.StatusOK, f.get(t, "/admin", root.Access, root.Refresh).StatusCode)
	require.Equal(t, http.StatusForbidden, f.get(t, "/admin", user.Access, user.Refresh).StatusCode)
}
