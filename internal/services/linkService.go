package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	DefaultLinkTTL = 24 * time.Hour
	MsgLinkExpired = "Link expired"
)

func generateSecureToken() (string, error) {
	token := make([]byte, 16)
	_, err := rand.Read(token)
	if err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(token), nil
}

// LinkedFile is one file of a resolved link.
type LinkedFile struct {
	ID       primitive.ObjectID `json:"id"`
	Name     string             `json:"name"`
	MimeType string             `json:"mimetype"`
	Size     int64              `json:"size"`
	URL      string             `json:"url"`
}

type ResolvedLink struct {
	Link  *models.Link `json:"link"`
	Files []LinkedFile `json:"files"`
}

type LinkService struct {
	links *db.Repository[models.Link]
	files *db.Repository[models.File]
	store ObjectStore
	now   func() time.Time
}

func NewLinkService(links *db.Repository[models.Link], files *db.Repository[models.File], store ObjectStore) *LinkService {
	return &LinkService{links: links, files: files, store: store, now: time.Now}
}

// Create shares files owned by owner through a random link valid for ttl.
// A non-positive ttl means DefaultLinkTTL.
func (s *LinkService) Create(ctx context.Context, owner primitive.ObjectID, files []primitive.ObjectID, ttl time.Duration) db.Result[*models.Link] {
	files = uniqueIDs(files)
	if len(files) == 0 {
		return db.Result[*models.Link]{
			Status:  http.StatusBadRequest,
			Message: db.MsgValidation,
			Errors:  []db.FieldError{{Key: "files", Message: "Path `files` is required."}},
		}
	}
	if ttl <= 0 {
		ttl = DefaultLinkTTL
	}

	owned := s.files.Count(ctx, bson.M{
		"_id":         bson.M{"$in": files},
		"uploaded_by": owner,
		"deleted_at":  nil,
	})
	if !owned.OK() {
		return db.Convert[*models.Link](owned)
	}
	if owned.Data != int64(len(files)) {
		return db.NotFound[*models.Link]()
	}

	token, err := generateSecureToken()
	if err != nil {
		zap.L().Error("Failed to generate link token", zap.Error(err))
		return db.Internal[*models.Link]()
	}

	return s.links.Create(ctx, &models.Link{
		Link:      token,
		Files:     files,
		User:      owner,
		ExpiresAt: s.now().Add(ttl),
	})
}

// Resolve opens a link on behalf of viewer: it counts the view and presigns
// every file still available.
func (s *LinkService) Resolve(ctx context.Context, token string, viewer primitive.ObjectID) db.Result[*ResolvedLink] {
	found := s.links.FindOne(ctx, bson.M{"link": token})
	if !found.OK() {
		return db.Convert[*ResolvedLink](found)
	}
	link := found.Data

	now := s.now()
	if link.Expired(now) {
		return db.Fail[*ResolvedLink](http.StatusGone, MsgLinkExpired)
	}

	viewed := s.links.UpdateOne(ctx, bson.M{"_id": link.ID}, bson.M{
		"$inc":      bson.M{"views": 1},
		"$addToSet": bson.M{"viewers": viewer},
	})
	if !viewed.OK() {
		return db.Convert[*ResolvedLink](viewed)
	}
	link.Views++
	if viewed.Data.Modified > 0 && !slices.Contains(link.Viewers, viewer) {
		link.Viewers = append(link.Viewers, viewer)
	}

	docs := s.files.FindMany(ctx, bson.M{"_id": bson.M{"$in": link.Files}, "deleted_at": nil})
	if docs.Status == http.StatusNotFound {
		return db.OK(&ResolvedLink{Link: link, Files: []LinkedFile{}})
	}
	if !docs.OK() {
		return db.Convert[*ResolvedLink](docs)
	}

	expiry := link.ExpiresAt.Sub(now)
	if expiry > DownloadURLTTL {
		expiry = DownloadURLTTL
	}

	tasks := make([]utils.ParallelTask[LinkedFile], len(docs.Data))
	for i := range docs.Data {
		file := docs.Data[i]
		tasks[i] = func(ctx context.Context) (LinkedFile, error) {
			url, err := s.store.PresignGet(ctx, file.Path, expiry)
			if err != nil {
				return LinkedFile{}, fmt.Errorf("error for file %s: %w", file.ID.Hex(), err)
			}
			return LinkedFile{
				ID:       file.ID,
				Name:     file.OriginalName,
				MimeType: file.MimeType,
				Size:     file.Size,
				URL:      url,
			}, nil
		}
	}

	linked, errs := utils.RunParallel(ctx, tasks)
	for _, err := range errs {
		if err != nil {
			zap.L().Error("Failed to presign linked file", zap.String("link", link.ID.Hex()), zap.Error(err))
			return db.Internal[*ResolvedLink]()
		}
	}

	return db.OK(&ResolvedLink{Link: link, Files: linked})
}

// Delete removes a link created by owner.
func (s *LinkService) Delete(ctx context.Context, owner primitive.ObjectID, token string) db.Result[int64] {
	return s.links.DeleteOne(ctx, bson.M{"link": token, "user": owner})
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
