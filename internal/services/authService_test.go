package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var meta = models.ClientMeta{Browser: "go-test", OS: "linux", IP: "10.0.0.1"}

func TestFirstUserIsRoot(t *testing.T) {
	s := servicestest.New(t)

	first, _ := s.Register(t, "first@example.com")
	second, _ := s.Register(t, "second@example.com")

	require.Equal(t, models.RoleRoot, first.Role)
	require.Equal(t, models.RoleUser, second.Role)
}

func TestRegisterHashesPassword(t *testing.T) {
	s := servicestest.New(t)
	user, _ := s.Register(t, "alice@example.com")

	stored := s.Users.FindOne(context.Background(), bson.M{"_id": user.ID})
	require.True(t, stored.OK())
	require.NotEqual(t, "password123", stored.Data.Password)
	require.True(t, services.PasswordHasher{}.VerifyPassword("password123", stored.Data.Password))
}

func TestRegisterOpensSessionAndAudits(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, pair := s.Register(t, "alice@example.com")

	id, ok := s.Tokens.Verify(pair.Access, services.AccessToken)
	require.True(t, ok)
	require.Equal(t, user.ID.Hex(), id.ID)
	require.Equal(t, string(models.RoleRoot), id.Role)

	require.True(t, s.Sessions.Find(ctx, user.ID, pair.Refresh).OK())

	events := s.Collection(db.AuditEvents).Docs()
	require.Len(t, events, 1)
	require.Equal(t, services.EventAccountCreated, events[0]["message"])
	require.Equal(t, "go-test", events[0]["browser"])

	alloc := s.Pricing.Allocation(ctx, user.ID)
	require.True(t, alloc.OK())
	require.Equal(t, 5*models.GiB, alloc.Data.MaxSize)
	require.NotNil(t, user.Plan)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := servicestest.New(t)
	s.Register(t, "alice@example.com")

	res, pair := s.Auth.Register(context.Background(), services.RegisterInput{
		FirstName: "Alice",
		LastName:  "Again",
		Email:     "alice@example.com",
		Password:  "secret",
	}, meta)
	require.Equal(t, http.StatusConflict, res.Status)
	require.Empty(t, pair.Access)
}

func TestRootClaimReleasedWhenFirstRegistrationFails(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)

	res, _ := s.Auth.Register(ctx, services.RegisterInput{
		FirstName: "Bad",
		LastName:  "Email",
		Email:     "not-an-email",
		Password:  "secret",
	}, meta)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Zero(t, s.Collection(db.Bootstrap).Len())

	user, _ := s.Register(t, "good@example.com")
	require.Equal(t, models.RoleRoot, user.Role)
}

func TestRegisterWithoutPlansStillSucceeds(t *testing.T) {
	s := servicestest.New(t, servicestest.WithoutPlans())
	user, _ := s.Register(t, "alice@example.com")
	require.Nil(t, user.Plan)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, registered := s.Register(t, "alice@example.com")

	t.Run("wrong password", func(t *testing.T) {
		res, _ := s.Auth.Login(ctx, services.LoginInput{Email: "alice@example.com", Password: "nope"}, meta)
		require.Equal(t, http.StatusNotFound, res.Status)
		require.Equal(t, db.MsgNotFound, res.Message)
	})

	t.Run("unknown email", func(t *testing.T) {
		res, _ := s.Auth.Login(ctx, services.LoginInput{Email: "bob@example.com", Password: "password123"}, meta)
		require.Equal(t, http.StatusNotFound, res.Status)
	})

	t.Run("success", func(t *testing.T) {
		res, pair := s.Auth.Login(ctx, services.LoginInput{Email: "alice@example.com", Password: "password123"}, meta)
		require.True(t, res.OK())
		require.Equal(t, user.ID, res.Data.ID)
		require.NotEmpty(t, pair.Refresh)

		require.True(t, s.Sessions.Find(ctx, user.ID, pair.Refresh).OK())
		require.Equal(t, http.StatusNotFound, s.Sessions.Find(ctx, user.ID, registered.Refresh).Status,
			"a new login replaces the trusted refresh token")
	})
}

func TestRenewRotatesSession(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, pair := s.Register(t, "alice@example.com")

	id, ok := s.Auth.Verify(pair.Refresh, services.RefreshToken)
	require.True(t, ok)

	next, ok := s.Auth.Renew(ctx, id, pair.Refresh, meta)
	require.True(t, ok)
	require.NotEqual(t, pair.Refresh, next.Refresh)

	_, ok = s.Auth.Renew(ctx, id, pair.Refresh, meta)
	require.False(t, ok, "the rotated-out refresh token is revoked")

	stored := s.SessionRepo.FindOne(ctx, bson.M{"user": user.ID})
	require.True(t, stored.OK())
	require.Equal(t, services.HashToken(next.Refresh), stored.Data.RefreshTokenHash)
	require.Equal(t, "10.0.0.1", stored.Data.IP)
}

func TestRenewFailsForDeletedUser(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, pair := s.Register(t, "alice@example.com")

	require.True(t, s.Users.DeleteOne(ctx, bson.M{"_id": user.ID}).OK())

	id, ok := s.Auth.Verify(pair.Refresh, services.RefreshToken)
	require.True(t, ok)
	_, ok = s.Auth.Renew(ctx, id, pair.Refresh, meta)
	require.False(t, ok)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, pair := s.Register(t, "alice@example.com")

	s.Auth.Logout(ctx, pair.Refresh, meta)
	require.Equal(t, http.StatusNotFound, s.Sessions.Find(ctx, user.ID, pair.Refresh).Status)

	events := s.Collection(db.AuditEvents).Docs()
	require.Len(t, events, 2)

	// logging out again, or with junk, is harmless
	s.Auth.Logout(ctx, pair.Refresh, meta)
	s.Auth.Logout(ctx, "junk", meta)
	require.Len(t, s.Collection(db.AuditEvents).Docs(), 2)
}

func TestConcurrentFirstRegistrationsYieldOneRoot(t *testing.T) {
	s := servicestest.New(t)

	const n = 8
	roles := make([]models.Role, n)
	statuses := make([]int, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			res, _ := s.Auth.Register(context.Background(), services.RegisterInput{
				FirstName: "User",
				LastName:  fmt.Sprint(i),
				Email:     fmt.Sprintf("user%d@example.com", i),
				Password:  "password123",
			}, meta)
			statuses[i] = res.Status
			if res.OK() {
				roles[i] = res.Data.Role
			}
		}(i)
	}
	wg.Wait()

	roots := 0
	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, statuses[i])
		if roles[i] == models.RoleRoot {
			roots++
		}
	}
	require.Equal(t, 1, roots)
	require.Equal(t, 1, s.Collection(db.Bootstrap).Len())
	require.EqualValues(t, 1, s.Users.Count(context.Background(), bson.M{"role": models.RoleRoot}).Data)
}

func TestRenewLosesConcurrentRotation(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	user, pair := s.Register(t, "alice@example.com")

	id, ok := s.Auth.Verify(pair.Refresh, services.RefreshToken)
	require.True(t, ok)

	// another request rotates the same session between Find and Rotate
	s.Collection(db.Sessions).BeforeUpdate(func() {
		require.True(t, s.Sessions.Rotate(ctx, user.ID, pair.Refresh, "winner", meta).OK())
	})

	_, ok = s.Auth.Renew(ctx, id, pair.Refresh, meta)
	require.False(t, ok)
	require.True(t, s.Sessions.Find(ctx, user.ID, "winner").OK(), "the winning rotation is kept")
}

func TestRegisterRejectsOverlongPassword(t *testing.T) {
	s := servicestest.New(t)

	res, pair := s.Auth.Register(context.Background(), services.RegisterInput{
		FirstName: "Long",
		LastName:  "Password",
		Email:     "long@example.com",
		Password:  strings.Repeat("p", services.MaxPasswordBytes+1),
	}, meta)
	require.Equal(t, http.StatusBadRequest, res.Status)
	require.Equal(t, db.MsgValidation, res.Message)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "password", res.Errors[0].Key)
	require.Empty(t, pair.Access)
	require.Zero(t, s.Collection(db.Users).Len())
	require.Zero(t, s.Collection(db.Bootstrap).Len())
}

func TestRegisterKeepsAccountWhenSessionFails(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	s.Collection(db.Sessions).SetError(errors.New("not primary"))

	res, pair := s.Auth.Register(ctx, services.RegisterInput{
		FirstName: "Alice",
		LastName:  "Liddell",
		Email:     "alice@example.com",
		Password:  "password123",
	}, meta)
	require.Equal(t, http.StatusInternalServerError, res.Status)
	require.Empty(t, pair.Refresh)
	require.Equal(t, 1, s.Collection(db.Users).Len())

	s.Collection(db.Sessions).SetError(nil)
	login, pair := s.Auth.Login(ctx, services.LoginInput{Email: "alice@example.com", Password: "password123"}, meta)
	require.True(t, login.OK())
	require.Equal(t, models.RoleRoot, login.Data.Role)
	require.NotEmpty(t, pair.Refresh)
}
