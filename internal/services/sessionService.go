package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HashToken returns the form a refresh token is stored in.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// SessionService owns the per-user session record that decides which
// refresh token is currently trusted.
type SessionService struct {
	sessions *db.Repository[models.Session]
	now      func() time.Time
}

func NewSessionService(sessions *db.Repository[models.Session]) *SessionService {
	return &SessionService{sessions: sessions, now: time.Now}
}

// Open starts (or replaces) the session of user with refresh as the
// trusted token.
func (s *SessionService) Open(ctx context.Context, user primitive.ObjectID, refresh string, meta models.ClientMeta) db.Result[*db.UpdateResult] {
	now := s.now()
	return s.sessions.Upsert(ctx, bson.M{"user": user}, bson.M{
		"$set": bson.M{
			"refresh_token_hash": HashToken(refresh),
			"browser":            meta.Browser,
			"os":                 meta.OS,
			"ip":                 meta.IP,
			"rotated_at":         now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	})
}

// Find returns the session of user when refresh is its trusted token.
func (s *SessionService) Find(ctx context.Context, user primitive.ObjectID, refresh string) db.Result[*models.Session] {
	return s.sessions.FindOne(ctx, bson.M{
		"user":               user,
		"refresh_token_hash": HashToken(refresh),
	})
}

// Rotate swaps the trusted token from current to next. The filter includes
// the current hash, so of two concurrent rotations only one matches; the
// other gets a 404.
func (s *SessionService) Rotate(ctx context.Context, user primitive.ObjectID, current, next string, meta models.ClientMeta) db.Result[*db.UpdateResult] {
	return s.sessions.UpdateOne(ctx,
		bson.M{
			"user":               user,
			"refresh_token_hash": HashToken(current),
		},
		bson.M{"$set": bson.M{
			"refresh_token_hash": HashToken(next),
			"browser":            meta.Browser,
			"os":                 meta.OS,
			"ip":                 meta.IP,
			"rotated_at":         s.now(),
		}},
	)
}

// Revoke ends the session of user if refresh is still its trusted token.
func (s *SessionService) Revoke(ctx context.Context, user primitive.ObjectID, refresh string) db.Result[int64] {
	return s.sessions.DeleteOne(ctx, bson.M{
		"user":               user,
		"refresh_token_hash": HashToken(refresh),
	})
}
