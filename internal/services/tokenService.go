package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/ayushpanday7/open-drive/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// Identity is the claim carried by both session tokens.
type Identity struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// TokenPair is one freshly minted access/refresh pair.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

type sessionClaims struct {
	UserID string    `json:"id"`
	Role   string    `json:"role"`
	Kind   TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

type signingKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenService signs and verifies the access and refresh tokens, each with
// its own secret and lifetime.
type TokenService struct {
	keys map[TokenKind]signingKey
	now  func() time.Time
}

type TokenOption func(*TokenService)

// WithClock replaces the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService fails when any of the four signing parameters is missing.
func NewTokenService(cfg config.JWT, opts ...TokenOption) (*TokenService, error) {
	switch {
	case cfg.AccessSecret == "":
		return nil, errors.New(`please provide "ACCESS_JWT_SECRET_KEY"`)
	case cfg.AccessTTL <= 0:
		return nil, errors.New(`please provide "ACCESS_JWT_EXPIRATION_TIME"`)
	case cfg.RefreshSecret == "":
		return nil, errors.New(`please provide "REFRESH_JWT_SECRET_KEY"`)
	case cfg.RefreshTTL <= 0:
		return nil, errors.New(`please provide "REFRESH_JWT_EXPIRATION_TIME"`)
	}

	s := &TokenService{
		keys: map[TokenKind]signingKey{
			AccessToken:  {secret: []byte(cfg.AccessSecret), ttl: cfg.AccessTTL},
			RefreshToken: {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the configured lifetime of kind.
func (s *TokenService) TTL(kind TokenKind) time.Duration {
	return s.keys[kind].ttl
}

// Issue signs a new access/refresh pair for id.
func (s *TokenService) Issue(id Identity) (TokenPair, error) {
	access, accessExp, err := s.sign(id, AccessToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}

	refresh, refreshExp, err := s.sign(id, RefreshToken)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) sign(id Identity, kind TokenKind) (string, time.Time, error) {
	key := s.keys[kind]
	now := s.now()
	exp := now.Add(key.ttl)

	claims := sessionClaims{
		UserID: id.ID,
		Role:   id.Role,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps two pairs minted within the same second distinct
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks token against the secret of kind. Any failure, including a
// token of the other kind, reports false.
func (s *TokenService) Verify(token string, kind TokenKind) (*Identity, bool) {
	key, ok := s.keys[kind]
	if !ok || token == "" {
		return nil, false
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) {
			return key.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		zap.L().Debug("Token verification failed", zap.String("kind", string(kind)), zap.Error(err))
		return nil, false
	}

	if claims.Kind != kind || claims.UserID == "" {
		return nil, false
	}

	return &Identity{ID: claims.UserID, Role: claims.Role}, true
}
