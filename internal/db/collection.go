package db

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName identifies one of the application's document collections.
type CollectionName string

const (
	Users       CollectionName = "users"
	Sessions    CollectionName = "sessions"
	AuditEvents CollectionName = "audit_events"
	Files       CollectionName = "files"
	Links       CollectionName = "links"
	Pricing     CollectionName = "pricing"
	Storage     CollectionName = "storage"
	Bootstrap   CollectionName = "bootstrap"
)

// Document is implemented once per model and binds the model to its
// collection.
type Document interface {
	CollectionName() CollectionName
}

// Creatable documents get a chance to fill ids, defaults and timestamps
// right before they are validated and inserted.
type Creatable interface {
	BeforeCreate(now time.Time)
}

// Collection is the part of *mongo.Collection the repository uses.
type Collection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	UpdateMany(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	DeleteMany(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

var _ Collection = (*mongo.Collection)(nil)
