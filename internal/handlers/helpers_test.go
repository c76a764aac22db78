package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ayushpanday7/open-drive/internal/handlers"
	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type server struct {
	stack *servicestest.Stack
	app   *fiber.App
}

func newServer(t *testing.T, opts ...servicestest.Option) *server {
	t.Helper()
	s := servicestest.New(t, opts...)
	h := &handlers.Handler{
		Auth:    s.Auth,
		Files:   s.Files,
		Links:   s.Links,
		Pricing: s.Pricing,
		Users:   s.Users,
	}
	return &server{stack: s, app: handlers.NewRouter(h, s.Auth, handlers.RouterConfig{})}
}

func (s *server) do(t *testing.T, req *http.Request, pair *services.TokenPair) (*http.Response, envelope) {
	t.Helper()
	if pair != nil {
		req.AddCookie(&http.Cookie{Name: middleware.AccessCookie, Value: pair.Access})
		req.AddCookie(&http.Cookie{Name: middleware.RefreshCookie, Value: pair.Refresh})
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 && json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp, env
}

func (s *server) json(t *testing.T, method, path string, body any, pair *services.TokenPair) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return s.do(t, req, pair)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
