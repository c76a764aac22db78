// Package servicestest wires the service layer on top of in-memory
// collections and object storage for tests.
package servicestest

import (
	"context"
	"testing"
	"time"

	"github.com/ayushpanday7/open-drive/internal/config"
	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/db/dbtest"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// JWT is the token configuration every Stack signs with.
var JWT = config.JWT{
	AccessSecret:  "test-access-secret",
	AccessTTL:     15 * time.Minute,
	RefreshSecret: "test-refresh-secret",
	RefreshTTL:    7 * 24 * time.Hour,
}

type options struct {
	auditMode string
	now       func() time.Time
	seed      bool
}

type Option func(*options)

// WithAuditMode selects config.AuditSync (the default) or
// config.AuditDetached.
func WithAuditMode(mode string) Option {
	return func(o *options) { o.auditMode = mode }
}

// WithClock sets the clock tokens are issued and verified with.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithoutPlans skips seeding the pricing catalogue.
func WithoutPlans() Option {
	return func(o *options) { o.seed = false }
}

// Stack is a fully wired service layer.
type Stack struct {
	collections map[db.CollectionName]*dbtest.Collection

	Store   *storage.MemoryStore
	Tokens  *services.TokenService
	Auditor *services.Auditor

	Users       *db.Repository[models.User]
	FilesRepo   *db.Repository[models.File]
	LinksRepo   *db.Repository[models.Link]
	SessionRepo *db.Repository[models.Session]

	Auth     *services.AuthService
	Sessions *services.SessionService
	Files    *services.FileService
	Links    *services.LinkService
	Pricing  *services.PricingService
}

// New builds a Stack. The auditor is closed when the test ends.
func New(t testing.TB, opts ...Option) *Stack {
	t.Helper()

	o := options{auditMode: config.AuditSync, now: time.Now, seed: true}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Stack{
		collections: map[db.CollectionName]*dbtest.Collection{},
		Store:       storage.NewMemoryStore("test-bucket"),
	}
	for _, name := range []db.CollectionName{
		db.Users, db.Sessions, db.AuditEvents, db.Files,
		db.Links, db.Pricing, db.Storage, db.Bootstrap,
	} {
		s.collections[name] = dbtest.NewCollection(db.UniqueKeys(name)...)
	}

	tokens, err := services.NewTokenService(JWT, services.WithClock(o.now))
	require.NoError(t, err)
	s.Tokens = tokens

	s.Auditor = services.NewAuditor(repo[models.AuditEvent](s), o.auditMode, 2)
	t.Cleanup(s.Auditor.Close)

	s.Users = repo[models.User](s)
	s.FilesRepo = repo[models.File](s)
	s.LinksRepo = repo[models.Link](s)
	s.SessionRepo = repo[models.Session](s)

	s.Pricing = services.NewPricingService(repo[models.PricingPlan](s), repo[models.StorageAllocation](s), s.Users, "free")
	if o.seed {
		_, err := s.Pricing.Seed(context.Background(), models.DefaultPlans)
		require.NoError(t, err)
	}

	s.Sessions = services.NewSessionService(s.SessionRepo)
	s.Auth = services.NewAuthService(services.AuthDeps{
		Users:    s.Users,
		Claims:   repo[models.BootstrapClaim](s),
		Sessions: s.Sessions,
		Tokens:   tokens,
		Audit:    s.Auditor,
		Pricing:  s.Pricing,
		Hasher:   services.PasswordHasher{Cost: bcrypt.MinCost},
	})
	s.Files = services.NewFileService(s.FilesRepo, s.Store, s.Pricing)
	s.Links = services.NewLinkService(s.LinksRepo, s.FilesRepo, s.Store)

	return s
}

func repo[T db.Document](s *Stack) *db.Repository[T] {
	var doc T
	return db.NewRepositoryWith[T](s.collections[doc.CollectionName()])
}

// Collection returns the in-memory collection behind name.
func (s *Stack) Collection(name db.CollectionName) *dbtest.Collection {
	return s.collections[name]
}

// Register creates an account and returns it with its token pair.
func (s *Stack) Register(t testing.TB, email string) (*models.User, services.TokenPair) {
	t.Helper()

	res, pair := s.Auth.Register(context.Background(), services.RegisterInput{
		FirstName: "Test",
		LastName:  "User",
		Email:     email,
		Password:  "password123",
	}, models.ClientMeta{Browser: "go-test", OS: "unknown", IP: "127.0.0.1"})
	require.Equal(t, 200, res.Status, res.Message)
	return res.Data, pair
}
