package services_test

import (
	"testing"
	"time"

	"github.com/ayushpanday7/open-drive/internal/config"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/stretchr/testify/require"
)

func TestNewTokenServiceRequiresConfig(t *testing.T) {
	_, err := services.NewTokenService(config.JWT{})
	require.Error(t, err)

	cfg := servicestest.JWT
	cfg.RefreshTTL = 0
	_, err = services.NewTokenService(cfg)
	require.ErrorContains(t, err, "REFRESH_JWT_EXPIRATION_TIME")
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	tokens, err := services.NewTokenService(servicestest.JWT)
	require.NoError(t, err)

	id := services.Identity{ID: "64b7f0c2a1b2c3d4e5f60718", Role: "root"}
	pair, err := tokens.Issue(id)
	require.NoError(t, err)
	require.NotEqual(t, pair.Access, pair.Refresh)

	got, ok := tokens.Verify(pair.Access, services.AccessToken)
	require.True(t, ok)
	require.Equal(t, id, *got)

	got, ok = tokens.Verify(pair.Refresh, services.RefreshToken)
	require.True(t, ok)
	require.Equal(t, id, *got)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	tokens, err := services.NewTokenService(servicestest.JWT)
	require.NoError(t, err)

	pair, err := tokens.Issue(services.Identity{ID: "u1", Role: "user"})
	require.NoError(t, err)

	_, ok := tokens.Verify(pair.Access, services.RefreshToken)
	require.False(t, ok)
	_, ok = tokens.Verify(pair.Refresh, services.AccessToken)
	require.False(t, ok)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tokens, err := services.NewTokenService(servicestest.JWT)
	require.NoError(t, err)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, ok := tokens.Verify(token, services.AccessToken)
		require.False(t, ok, token)
	}

	other := servicestest.JWT
	other.AccessSecret = "someone-else"
	forger, err := services.NewTokenService(other)
	require.NoError(t, err)
	pair, err := forger.Issue(services.Identity{ID: "u1", Role: "root"})
	require.NoError(t, err)

	_, ok := tokens.Verify(pair.Access, services.AccessToken)
	require.False(t, ok)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	now := time.Now()
	tokens, err := services.NewTokenService(servicestest.JWT, services.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	pair, err := tokens.Issue(services.Identity{ID: "u1", Role: "user"})
	require.NoError(t, err)
	require.Equal(t, now.Add(servicestest.JWT.AccessTTL), pair.AccessExpiresAt)

	now = now.Add(servicestest.JWT.AccessTTL + time.Second)
	_, ok := tokens.Verify(pair.Access, services.AccessToken)
	require.False(t, ok)

	_, ok = tokens.Verify(pair.Refresh, services.RefreshToken)
	require.True(t, ok, "refresh token outlives the access token")
}

func TestIssueTwiceWithinASecondDiffers(t *testing.T) {
	now := time.Now()
	tokens, err := services.NewTokenService(servicestest.JWT, services.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	id := services.Identity{ID: "u1", Role: "user"}
	first, err := tokens.Issue(id)
	require.NoError(t, err)
	second, err := tokens.Issue(id)
	require.NoError(t, err)

	require.NotEqual(t, first.Refresh, second.Refresh)
	require.Equal(t, servicestest.JWT.RefreshTTL, tokens.TTL(services.RefreshToken))
}
