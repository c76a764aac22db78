package db

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Repository is the typed CRUD facade over one collection. Every operation
// returns a Result; expected conditions never surface as errors.
type Repository[T Document] struct {
	name CollectionName
	col  Collection
	now  func() time.Time
}

// NewRepository binds T to its collection in database.
func NewRepository[T Document](database *mongo.Database) *Repository[T] {
	var doc T
	return NewRepositoryWith[T](GetCollection(database, doc.CollectionName()))
}

// NewRepositoryWith builds a repository on top of an arbitrary Collection.
func NewRepositoryWith[T Document](col Collection) *Repository[T] {
	var doc T
	return &Repository[T]{name: doc.CollectionName(), col: col, now: time.Now}
}

// Name returns the collection the repository is bound to.
func (r *Repository[T]) Name() CollectionName {
	return r.name
}

// Create validates and inserts doc.
func (r *Repository[T]) Create(ctx context.Context, doc *T) Result[*T] {
	if c, ok := any(doc).(Creatable); ok {
		c.BeforeCreate(r.now())
	}

	if err := Validator().Struct(doc); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Result[*T]{
				Status:  http.StatusBadRequest,
				Message: MsgValidation,
				Errors:  fieldErrors(verrs),
			}
		}
		r.logFault("creating", err)
		return Internal[*T]()
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Fail[*T](http.StatusConflict, MsgDuplicate)
		}
		r.logFault("creating", err)
		return Internal[*T]()
	}

	return OK(doc)
}

// FindOne returns the first document matching filter.
func (r *Repository[T]) FindOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) Result[*T] {
	var doc T
	if err := r.col.FindOne(ctx, normalizeFilter(filter), opts...).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return NotFound[*T]()
		}
		r.logFault("finding", err)
		return Internal[*T]()
	}

	return OK(&doc)
}

// FindMany returns every document matching filter. An empty result is a 404.
func (r *Repository[T]) FindMany(ctx context.Context, filter any, opts ...*options.FindOptions) Result[[]T] {
	cursor, err := r.col.Find(ctx, normalizeFilter(filter), opts...)
	if err != nil {
		r.logFault("finding", err)
		return Internal[[]T]()
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		r.logFault("decoding", err)
		return Internal[[]T]()
	}

	if len(docs) == 0 {
		return NotFound[[]T]()
	}

	return OK(docs)
}

// UpdateOne applies patch to the first document matching filter. A bson.M
// patch without update operators is treated as a $set.
func (r *Repository[T]) UpdateOne(ctx context.Context, filter, patch any) Result[*UpdateResult] {
	res, err := r.col.UpdateOne(ctx, normalizeFilter(filter), normalizePatch(patch))
	return r.updateResult(res, err)
}

// UpdateMany applies patch to every document matching filter.
func (r *Repository[T]) UpdateMany(ctx context.Context, filter, patch any) Result[*UpdateResult] {
	res, err := r.col.UpdateMany(ctx, normalizeFilter(filter), normalizePatch(patch))
	return r.updateResult(res, err)
}

// Upsert updates the document matching filter or inserts one built from the
// filter and patch. Upserted documents skip validation.
func (r *Repository[T]) Upsert(ctx context.Context, filter, patch any) Result[*UpdateResult] {
	res, err := r.col.UpdateOne(ctx, normalizeFilter(filter), normalizePatch(patch), options.Update().SetUpsert(true))
	if err != nil {
		return r.updateResult(nil, err)
	}

	if res.UpsertedCount > 0 {
		return OK(toUpdateResult(res))
	}
	return r.updateResult(res, nil)
}

func (r *Repository[T]) updateResult(res *mongo.UpdateResult, err error) Result[*UpdateResult] {
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Fail[*UpdateResult](http.StatusConflict, MsgDuplicate)
		}
		r.logFault("updating", err)
		return Internal[*UpdateResult]()
	}

	if res.MatchedCount == 0 {
		return NotFound[*UpdateResult]()
	}

	out := OK(toUpdateResult(res))
	if res.ModifiedCount == 0 {
		out.Message = MsgNoUpdateRequired
	}
	return out
}

// DeleteOne removes the first document matching filter and returns the
// number of deleted documents.
func (r *Repository[T]) DeleteOne(ctx context.Context, filter any) Result[int64] {
	res, err := r.col.DeleteOne(ctx, normalizeFilter(filter))
	return r.deleteResult(res, err)
}

// DeleteMany removes every document matching filter.
func (r *Repository[T]) DeleteMany(ctx context.Context, filter any) Result[int64] {
	res, err := r.col.DeleteMany(ctx, normalizeFilter(filter))
	return r.deleteResult(res, err)
}

func (r *Repository[T]) deleteResult(res *mongo.DeleteResult, err error) Result[int64] {
	if err != nil {
		r.logFault("deleting", err)
		return Internal[int64]()
	}
	if res.DeletedCount == 0 {
		return NotFound[int64]()
	}
	return OK(res.DeletedCount)
}

// Count returns the number of documents matching filter. Zero is a success.
func (r *Repository[T]) Count(ctx context.Context, filter any) Result[int64] {
	n, err := r.col.CountDocuments(ctx, normalizeFilter(filter))
	if err != nil {
		r.logFault("counting", err)
		return Internal[int64]()
	}
	return OK(n)
}

func (r *Repository[T]) logFault(op string, err error) {
	zap.L().Error("error while "+op+" document",
		zap.String("collection", string(r.name)),
		zap.Error(err),
	)
}

func toUpdateResult(res *mongo.UpdateResult) *UpdateResult {
	return &UpdateResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}
}

func normalizeFilter(filter any) any {
	if filter == nil {
		return bson.M{}
	}
	return filter
}

func normalizePatch(patch any) any {
	m, ok := patch.(bson.M)
	if !ok {
		return patch
	}
	for key := range m {
		if strings.HasPrefix(key, "$") {
			return m
		}
	}
	return bson.M{"$set": m}
}
