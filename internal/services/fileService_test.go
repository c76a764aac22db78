package services_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/services/servicestest"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUploadStoresObjectAndMetadata(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")

	file := upload(t, s, alice.ID, "report.pdf", "contents")
	require.Equal(t, models.VisibilityPrivate, file.Visibility)
	require.Equal(t, "test-bucket", file.Destination)
	require.True(t, strings.HasSuffix(file.FileName, ".pdf"))

	data, ok := s.Store.Get(file.Path)
	require.True(t, ok)
	require.Equal(t, "contents", string(data))

	alloc := s.Pricing.Allocation(ctx, alice.ID)
	require.EqualValues(t, len("contents"), alloc.Data.UsedSize)
}

func TestUploadRemovesObjectWhenMetadataFails(t *testing.T) {
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	s.Collection(db.Files).SetError(errors.New("disk full"))

	res := s.Files.Upload(context.Background(), alice.ID, services.Upload{
		FieldName:    "file",
		OriginalName: "a.txt",
		Encoding:     "7bit",
		MimeType:     "text/plain",
		Size:         3,
		Body:         strings.NewReader("abc"),
	})
	require.Equal(t, http.StatusInternalServerError, res.Status)

	require.Zero(t, s.Store.Len(), "the uploaded object is removed again")
}

func TestDownloadPermissions(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	bob, _ := s.Register(t, "bob@example.com")
	file := upload(t, s, alice.ID, "a.txt", "aaa")

	require.True(t, s.Files.Download(ctx, alice.ID, file.ID).OK())

	denied := s.Files.Download(ctx, bob.ID, file.ID)
	require.Equal(t, http.StatusForbidden, denied.Status)

	require.True(t, s.Files.Share(ctx, alice.ID, file.ID, []primitive.ObjectID{bob.ID}).OK())
	require.True(t, s.Files.Download(ctx, bob.ID, file.ID).OK())

	shared := s.Files.Shared(ctx, bob.ID)
	require.True(t, shared.OK())
	require.Len(t, shared.Data, 1)

	again := s.Files.Share(ctx, alice.ID, file.ID, []primitive.ObjectID{bob.ID})
	require.Equal(t, db.MsgNoUpdateRequired, again.Message)
}

func TestSetVisibility(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	bob, _ := s.Register(t, "bob@example.com")
	file := upload(t, s, alice.ID, "a.txt", "aaa")

	require.Equal(t, http.StatusBadRequest, s.Files.SetVisibility(ctx, alice.ID, file.ID, "everyone").Status)
	require.Equal(t, http.StatusNotFound, s.Files.SetVisibility(ctx, bob.ID, file.ID, models.VisibilityPublic).Status)

	require.True(t, s.Files.SetVisibility(ctx, alice.ID, file.ID, models.VisibilityPublic).OK())
	require.True(t, s.Files.Download(ctx, bob.ID, file.ID).OK())
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	s := servicestest.New(t)
	alice, _ := s.Register(t, "alice@example.com")
	file := upload(t, s, alice.ID, "a.txt", "aaa")

	require.True(t, s.Files.Delete(ctx, alice.ID, file.ID).OK())
	require.Equal(t, http.StatusNotFound, s.Files.Delete(ctx, alice.ID, file.ID).Status)
	require.Equal(t, http.StatusNotFound, s.Files.Download(ctx, alice.ID, file.ID).Status)

	list := s.Files.List(ctx, alice.ID)
	require.True(t, list.OK())
	require.Empty(t, list.Data)

	all := s.Files.ListAll(ctx)
	require.Len(t, all.Data, 1, "soft-deleted files stay visible to admins")

	alloc := s.Pricing.Allocation(ctx, alice.ID)
	require.Zero(t, alloc.Data.UsedSize)
}
