package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/ayushpanday7/open-drive/internal/config"
	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/handlers"
	"github.com/ayushpanday7/open-drive/internal/logger"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/storage"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	uploadBodyLimit = 100 << 20
)

var development bool

func main() {
	root := &cobra.Command{
		Use:   "open-drive",
		Short: "File storage API with cookie based sessions",
		RunE:  serve,
	}
	root.PersistentFlags().BoolVar(&development, "dev", false, "human readable logs and request logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create indexes and insert the default pricing plans",
			RunE:  seed,
		},
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration, installs the logger and connects to MongoDB.
func setup(ctx context.Context) (*config.Config, *mongo.Client, *mongo.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if _, err := logger.Setup(cfg.LogLevel, development); err != nil {
		return nil, nil, nil, err
	}

	client, database, err := db.ConnectMongoDB(ctx, cfg.DatabaseURI, cfg.DatabaseName)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := db.EnsureIndexes(ctx, database); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, nil, err
	}

	return cfg, client, database, nil
}

func newPricing(database *mongo.Database, cfg *config.Config) *services.PricingService {
	return services.NewPricingService(
		db.NewRepository[models.PricingPlan](database),
		db.NewRepository[models.StorageAllocation](database),
		db.NewRepository[models.User](database),
		cfg.DefaultPlan,
	)
}

func seed(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, client, database, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	n, err := newPricing(database, cfg).Seed(ctx, models.DefaultPlans)
	if err != nil {
		return err
	}
	zap.L().Info("Seeded pricing plans", zap.Int("count", n))
	return nil
}

func newStore(ctx context.Context, cfg config.Storage) (services.ObjectStore, error) {
	if cfg.Type == config.StorageMemory {
		zap.L().Warn("Using in-memory object storage, files are lost on restart")
		return storage.NewMemoryStore(cfg.Bucket), nil
	}
	return storage.NewMinioStore(ctx, cfg)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, client, database, err := setup(ctx)
	if err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	pricing := newPricing(database, cfg)
	if _, err := pricing.Seed(ctx, models.DefaultPlans); err != nil {
		return err
	}

	store, err := newStore(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	tokens, err := services.NewTokenService(cfg.JWT)
	if err != nil {
		return err
	}

	auditor := services.NewAuditor(db.NewRepository[models.AuditEvent](database), cfg.Audit.Mode, cfg.Audit.Workers)
	defer auditor.Close()

	users := db.NewRepository[models.User](database)
	files := db.NewRepository[models.File](database)

	auth := services.NewAuthService(services.AuthDeps{
		Users:    users,
		Claims:   db.NewRepository[models.BootstrapClaim](database),
		Sessions: services.NewSessionService(db.NewRepository[models.Session](database)),
		Tokens:   tokens,
		Audit:    auditor,
		Pricing:  pricing,
	})

	h := &handlers.Handler{
		Auth:    auth,
		Files:   services.NewFileService(files, store, pricing),
		Links:   services.NewLinkService(db.NewRepository[models.Link](database), files, store),
		Pricing: pricing,
		Users:   users,
	}

	app := handlers.NewRouter(h, auth, handlers.RouterConfig{
		AccessLog: development,
		BodyLimit: uploadBodyLimit,
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + strconv.Itoa(cfg.Port)
		zap.L().Info("Starting server", zap.String("addr", addr), zap.Bool("tls", cfg.TLS.Enabled()))
		if cfg.TLS.Enabled() {
			errCh <- app.ListenTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	zap.L().Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
