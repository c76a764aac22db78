package models

import (
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClientMeta is the request context captured alongside sessions and audit
// events.
type ClientMeta struct {
	Browser string `bson:"browser" json:"browser"`
	OS      string `bson:"os" json:"os"`
	IP      string `bson:"ip" json:"ip"`
}

// Session holds the single trusted refresh token of a user. Only a hash of
// the token is stored; rotating it revokes every earlier refresh token.
type Session struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User             primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	RefreshTokenHash string             `bson:"refresh_token_hash" json:"-" validate:"required"`
	ClientMeta       `bson:",inline"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	RotatedAt        time.Time `bson:"rotated_at" json:"rotated_at"`
}

func (Session) CollectionName() db.CollectionName { return db.Sessions }

func (s *Session) BeforeCreate(now time.Time) {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	s.CreatedAt = now
	s.RotatedAt = now
}

// AuditEvent is an append-only activity record.
type AuditEvent struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User       primitive.ObjectID `bson:"user" json:"user" validate:"required"`
	Message    string             `bson:"message" json:"message" validate:"required"`
	ClientMeta `bson:",inline"`
	Date       time.Time `bson:"date" json:"date"`
}

func (AuditEvent) CollectionName() db.CollectionName { return db.AuditEvents }

func (e *AuditEvent) BeforeCreate(now time.Time) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.Date.IsZero() {
		e.Date = now
	}
}
