package models

import (
	"slices"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type File struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UploadedBy   primitive.ObjectID   `bson:"uploaded_by" json:"uploaded_by" validate:"required"`
	FieldName    string               `bson:"fieldname" json:"fieldname" validate:"required"`
	OriginalName string               `bson:"originalname" json:"originalname" validate:"required"`
	Encoding     string               `bson:"encoding" json:"encoding" validate:"required"`
	MimeType     string               `bson:"mimetype" json:"mimetype" validate:"required"`
	Destination  string               `bson:"destination" json:"destination" validate:"required"`
	FileName     string               `bson:"filename" json:"filename" validate:"required"`
	Path         string               `bson:"path" json:"path" validate:"required"`
	Size         int64                `bson:"size" json:"size" validate:"gte=0"`
	Visibility   Visibility           `bson:"visibility" json:"visibility" validate:"oneof=public private"`
	Shared       []primitive.ObjectID `bson:"shared" json:"shared"`
	DeletedAt    *time.Time           `bson:"deleted_at" json:"deleted_at,omitempty"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

func (File) CollectionName() db.CollectionName { return db.Files }

func (f *File) BeforeCreate(now time.Time) {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.Visibility == "" {
		f.Visibility = VisibilityPrivate
	}
	// $addToSet needs an array, never null
	if f.Shared == nil {
		f.Shared = []primitive.ObjectID{}
	}
	f.CreatedAt = now
	f.UpdatedAt = now
}

// ReadableBy reports whether user may download the file.
func (f *File) ReadableBy(user primitive.ObjectID) bool {
	return f.UploadedBy == user ||
		f.Visibility == VisibilityPublic ||
		slices.Contains(f.Shared, user)
}

type Link struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Link      string               `bson:"link" json:"link" validate:"required"`
	Files     []primitive.ObjectID `bson:"files" json:"files" validate:"required,min=1"`
	User      primitive.ObjectID   `bson:"user" json:"user" validate:"required"`
	ExpiresAt time.Time            `bson:"expires_at" json:"expires_at" validate:"required"`
	Views     int64                `bson:"views" json:"views"`
	Viewers   []primitive.ObjectID `bson:"viewers" json:"viewers"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

func (Link) CollectionName() db.CollectionName { return db.Links }

func (l *Link) BeforeCreate(now time.Time) {
	if l.ID.IsZero() {
		l.ID = primitive.NewObjectID()
	}
	if l.Viewers == nil {
		l.Viewers = []primitive.ObjectID{}
	}
	l.CreatedAt = now
	l.UpdatedAt = now
}

// Expired reports whether the link is no longer valid at now.
func (l *Link) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}
