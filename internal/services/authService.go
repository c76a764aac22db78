package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/metrics"
	"github.com/ayushpanday7/open-drive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	EventAccountCreated = "new account created"
	EventLoggedIn       = "logged in"
	EventLoggedOut      = "logged out"
)

type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthDeps are the collaborators of AuthService.
type AuthDeps struct {
	Users    *db.Repository[models.User]
	Claims   *db.Repository[models.BootstrapClaim]
	Sessions *SessionService
	Tokens   *TokenService
	Audit    *Auditor
	Pricing  *PricingService
	Hasher   PasswordHasher
}

// AuthService registers users, logs them in and out, and renews sessions
// from a refresh token.
type AuthService struct {
	AuthDeps
}

func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{AuthDeps: deps}
}

// Register creates an account and opens a session for it. The first account
// ever created becomes root.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta models.ClientMeta) (db.Result[*models.User], TokenPair) {
	hash, err := s.Hasher.HashPassword(in.Password)
	if errors.Is(err, ErrPasswordTooLong) {
		return db.Result[*models.User]{
			Status:  http.StatusBadRequest,
			Message: db.MsgValidation,
			Errors: []db.FieldError{{
				Key:     "password",
				Message: fmt.Sprintf("Path `password` is longer than the maximum allowed length (%d).", MaxPasswordBytes),
			}},
		}, TokenPair{}
	}
	if err != nil {
		zap.L().Error("Failed to hash password", zap.Error(err))
		return db.Internal[*models.User](), TokenPair{}
	}

	role, claimed, res := s.claimRole(ctx)
	if !res.OK() {
		return db.Convert[*models.User](res), TokenPair{}
	}

	user := &models.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		Role:      role,
	}
	created := s.Users.Create(ctx, user)
	if !created.OK() {
		if claimed {
			s.releaseRoot(ctx)
		}
		metrics.AuthEvents.WithLabelValues("reject").Inc()
		return created, TokenPair{}
	}

	s.Pricing.Provision(ctx, user)

	pair, opened := s.openSession(ctx, user, meta)
	if !opened.OK() {
		// The account stays; the client can log in once sessions are writable.
		zap.L().Error("Account created without a session",
			zap.String("user", user.ID.Hex()),
			zap.Int("status", opened.Status),
		)
		return db.Convert[*models.User](opened), TokenPair{}
	}

	s.Audit.Record(ctx, models.AuditEvent{User: user.ID, Message: EventAccountCreated, ClientMeta: meta})
	metrics.AuthEvents.WithLabelValues("register").Inc()
	zap.L().Info("Account created", zap.String("user", user.ID.Hex()), zap.String("role", string(user.Role)))

	return created, pair
}

// claimRole decides the role of the account about to be created. Root is
// only handed out when there are no users and the bootstrap claim insert
// wins; the unique _id makes that insert a compare-and-swap.
func (s *AuthService) claimRole(ctx context.Context) (models.Role, bool, db.Result[int64]) {
	count := s.Users.Count(ctx, bson.M{})
	if !count.OK() {
		return "", false, count
	}
	if count.Data > 0 {
		return models.RoleUser, false, count
	}

	claim := s.Claims.Create(ctx, &models.BootstrapClaim{ID: models.RootClaimID})
	switch claim.Status {
	case http.StatusOK:
		return models.RoleRoot, true, count
	case http.StatusConflict:
		return models.RoleUser, false, count
	default:
		return "", false, db.Convert[int64](claim)
	}
}

func (s *AuthService) releaseRoot(ctx context.Context) {
	res := s.Claims.DeleteOne(ctx, bson.M{"_id": models.RootClaimID})
	if !res.OK() {
		zap.L().Error("Failed to release root claim", zap.Int("status", res.Status))
	}
}

// Login checks the credentials and opens a fresh session. An unknown email
// and a wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta models.ClientMeta) (db.Result[*models.User], TokenPair) {
	found := s.Users.FindOne(ctx, bson.M{"email": in.Email})
	if !found.OK() {
		if found.Status == http.StatusNotFound {
			metrics.AuthEvents.WithLabelValues("reject").Inc()
		}
		return found, TokenPair{}
	}

	user := found.Data
	if !s.Hasher.VerifyPassword(in.Password, user.Password) {
		metrics.AuthEvents.WithLabelValues("reject").Inc()
		return db.NotFound[*models.User](), TokenPair{}
	}

	pair, opened := s.openSession(ctx, user, meta)
	if !opened.OK() {
		return db.Convert[*models.User](opened), TokenPair{}
	}

	s.Audit.Record(ctx, models.AuditEvent{User: user.ID, Message: EventLoggedIn, ClientMeta: meta})
	metrics.AuthEvents.WithLabelValues("login").Inc()

	return found, pair
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, meta models.ClientMeta) (TokenPair, db.Result[*db.UpdateResult]) {
	pair, err := s.Tokens.Issue(Identity{ID: user.ID.Hex(), Role: string(user.Role)})
	if err != nil {
		zap.L().Error("Failed to issue tokens", zap.String("user", user.ID.Hex()), zap.Error(err))
		return TokenPair{}, db.Internal[*db.UpdateResult]()
	}

	res := s.Sessions.Open(ctx, user.ID, pair.Refresh, meta)
	if !res.OK() {
		return TokenPair{}, res
	}
	return pair, res
}

// Logout revokes the session bound to refresh, if it still is the trusted
// token. It never fails from the caller's point of view.
func (s *AuthService) Logout(ctx context.Context, refresh string, meta models.ClientMeta) {
	id, ok := s.Tokens.Verify(refresh, RefreshToken)
	if !ok {
		return
	}
	user, err := primitive.ObjectIDFromHex(id.ID)
	if err != nil {
		return
	}

	if res := s.Sessions.Revoke(ctx, user, refresh); !res.OK() {
		return
	}
	s.Audit.Record(ctx, models.AuditEvent{User: user, Message: EventLoggedOut, ClientMeta: meta})
	metrics.AuthEvents.WithLabelValues("logout").Inc()
}

// Verify checks a token of kind.
func (s *AuthService) Verify(token string, kind TokenKind) (*Identity, bool) {
	return s.Tokens.Verify(token, kind)
}

// Renew trades a verified refresh token for a new pair. It fails when the
// session no longer trusts refresh, the user is gone, or a concurrent
// renewal rotated the session first.
func (s *AuthService) Renew(ctx context.Context, id *Identity, refresh string, meta models.ClientMeta) (TokenPair, bool) {
	user, err := primitive.ObjectIDFromHex(id.ID)
	if err != nil {
		return TokenPair{}, false
	}

	if res := s.Sessions.Find(ctx, user, refresh); !res.OK() {
		return s.reject("session", res.Status)
	}
	if res := s.Users.FindOne(ctx, bson.M{"_id": user}); !res.OK() {
		return s.reject("user", res.Status)
	}

	pair, err := s.Tokens.Issue(*id)
	if err != nil {
		zap.L().Error("Failed to issue tokens", zap.String("user", id.ID), zap.Error(err))
		return TokenPair{}, false
	}

	if res := s.Sessions.Rotate(ctx, user, refresh, pair.Refresh, meta); !res.OK() {
		return s.reject("rotate", res.Status)
	}

	metrics.AuthEvents.WithLabelValues("rotate").Inc()
	return pair, true
}

func (s *AuthService) reject(stage string, status int) (TokenPair, bool) {
	metrics.AuthEvents.WithLabelValues("reject").Inc()
	zap.L().Debug("Session renewal rejected", zap.String("stage", stage), zap.Int("status", status))
	return TokenPair{}, false
}
