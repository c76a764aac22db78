package services

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DownloadURLTTL is how long a presigned download URL stays valid.
const DownloadURLTTL = 15 * time.Minute

const MsgForbidden = "Forbidden"

// ObjectStore is where file contents live.
type ObjectStore interface {
	Bucket() string
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Upload describes one multipart file part.
type Upload struct {
	FieldName    string
	OriginalName string
	Encoding     string
	MimeType     string
	Size         int64
	Body         io.Reader
}

type Download struct {
	File      *models.File `json:"file"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}

type FileService struct {
	files   *db.Repository[models.File]
	store   ObjectStore
	pricing *PricingService
	now     func() time.Time
}

func NewFileService(files *db.Repository[models.File], store ObjectStore, pricing *PricingService) *FileService {
	return &FileService{files: files, store: store, pricing: pricing, now: time.Now}
}

// Upload stores the contents and the metadata document concurrently. When
// either side fails the other is undone.
func (s *FileService) Upload(ctx context.Context, owner primitive.ObjectID, in Upload) db.Result[*models.File] {
	name := uuid.NewString() + filepath.Ext(in.OriginalName)
	key := owner.Hex() + "/" + name

	doc := &models.File{
		UploadedBy:   owner,
		FieldName:    in.FieldName,
		OriginalName: in.OriginalName,
		Encoding:     in.Encoding,
		MimeType:     in.MimeType,
		Destination:  s.store.Bucket(),
		FileName:     name,
		Path:         key,
		Size:         in.Size,
	}

	results, errs := utils.RunParallel(ctx, []utils.ParallelTask[db.Result[*models.File]]{
		func(ctx context.Context) (db.Result[*models.File], error) {
			return db.Result[*models.File]{}, s.store.Put(ctx, key, in.Body, in.Size, in.MimeType)
		},
		func(ctx context.Context) (db.Result[*models.File], error) {
			return s.files.Create(ctx, doc), nil
		},
	})
	putErr, created := errs[0], results[1]

	if putErr != nil {
		zap.L().Error("Failed to upload file to storage", zap.String("key", key), zap.Error(putErr))
		if created.OK() {
			if res := s.files.DeleteOne(ctx, bson.M{"_id": doc.ID}); !res.OK() {
				zap.L().Warn("Failed to remove orphaned file metadata", zap.String("file", doc.ID.Hex()))
			}
		}
		return db.Internal[*models.File]()
	}

	if !created.OK() {
		if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
			zap.L().Warn("Failed to remove orphaned object", zap.String("key", key), zap.Error(err))
		}
		return created
	}

	s.pricing.AdjustUsage(ctx, owner, doc.Size)
	return created
}

// List returns the caller's files, newest first.
func (s *FileService) List(ctx context.Context, owner primitive.ObjectID) db.Result[[]models.File] {
	return s.findAll(ctx, bson.M{"uploaded_by": owner, "deleted_at": nil})
}

// Shared returns the files other users shared with user.
func (s *FileService) Shared(ctx context.Context, user primitive.ObjectID) db.Result[[]models.File] {
	return s.findAll(ctx, bson.M{"shared": user, "deleted_at": nil})
}

// ListAll returns every file, deleted ones included.
func (s *FileService) ListAll(ctx context.Context) db.Result[[]models.File] {
	return s.findAll(ctx, bson.M{})
}

// ListOwnedBy returns every file uploaded by owner, deleted ones included.
func (s *FileService) ListOwnedBy(ctx context.Context, owner primitive.ObjectID) db.Result[[]models.File] {
	return s.findAll(ctx, bson.M{"uploaded_by": owner})
}

func (s *FileService) findAll(ctx context.Context, filter bson.M) db.Result[[]models.File] {
	res := s.files.FindMany(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if res.Status == http.StatusNotFound {
		return db.OK([]models.File{})
	}
	return res
}

// Download returns a presigned URL for a file user may read.
func (s *FileService) Download(ctx context.Context, user, id primitive.ObjectID) db.Result[*Download] {
	found := s.files.FindOne(ctx, bson.M{"_id": id, "deleted_at": nil})
	if !found.OK() {
		return db.Convert[*Download](found)
	}
	file := found.Data
	if !file.ReadableBy(user) {
		return db.Fail[*Download](http.StatusForbidden, MsgForbidden)
	}

	url, err := s.store.PresignGet(ctx, file.Path, DownloadURLTTL)
	if err != nil {
		zap.L().Error("Failed to presign download", zap.String("file", id.Hex()), zap.Error(err))
		return db.Internal[*Download]()
	}

	return db.OK(&Download{File: file, URL: url, ExpiresAt: s.now().Add(DownloadURLTTL)})
}

// SetVisibility changes the visibility of a file owned by owner.
func (s *FileService) SetVisibility(ctx context.Context, owner, id primitive.ObjectID, v models.Visibility) db.Result[*db.UpdateResult] {
	if v != models.VisibilityPublic && v != models.VisibilityPrivate {
		return db.Result[*db.UpdateResult]{
			Status:  http.StatusBadRequest,
			Message: db.MsgValidation,
			Errors: []db.FieldError{{
				Key:     "visibility",
				Message: "`visibility` must be one of [public private]",
			}},
		}
	}

	return s.files.UpdateOne(ctx,
		bson.M{"_id": id, "uploaded_by": owner, "deleted_at": nil},
		bson.M{"visibility": v},
	)
}

// Share grants users read access to a file owned by owner.
func (s *FileService) Share(ctx context.Context, owner, id primitive.ObjectID, users []primitive.ObjectID) db.Result[*db.UpdateResult] {
	return s.files.UpdateOne(ctx,
		bson.M{"_id": id, "uploaded_by": owner, "deleted_at": nil},
		bson.M{"$addToSet": bson.M{"shared": bson.M{"$each": users}}},
	)
}

// Delete soft-deletes a file owned by owner.
func (s *FileService) Delete(ctx context.Context, owner, id primitive.ObjectID) db.Result[*db.UpdateResult] {
	return s.softDelete(ctx, bson.M{"_id": id, "uploaded_by": owner, "deleted_at": nil})
}

// AdminDelete soft-deletes any file.
func (s *FileService) AdminDelete(ctx context.Context, id primitive.ObjectID) db.Result[*db.UpdateResult] {
	return s.softDelete(ctx, bson.M{"_id": id, "deleted_at": nil})
}

func (s *FileService) softDelete(ctx context.Context, filter bson.M) db.Result[*db.UpdateResult] {
	found := s.files.FindOne(ctx, filter)
	if !found.OK() {
		return db.Convert[*db.UpdateResult](found)
	}

	res := s.files.UpdateOne(ctx, filter, bson.M{"deleted_at": s.now()})
	if !res.OK() {
		return res
	}

	s.pricing.AdjustUsage(ctx, found.Data.UploadedBy, -found.Data.Size)
	return res
}
