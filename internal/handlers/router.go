package handlers

import (
	"github.com/ayushpanday7/open-drive/internal/metrics"
	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type RouterConfig struct {
	// AccessLog enables fiber's request logger.
	AccessLog bool
	BodyLimit int
}

// NewRouter builds the application with every route mounted.
func NewRouter(h *Handler, sessions middleware.SessionVerifier, cfg RouterConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "open-drive",
		ErrorHandler: utils.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New())

	app.Get("/healthz", Wrap(func(*fiber.Ctx) (Response, error) {
		return Response{Message: "ok"}, nil
	}))
	app.Get("/metrics", metrics.Handler())

	authn := middleware.Authenticator(sessions)
	admins := middleware.RequireRole(models.RoleAdmin, models.RoleRoot)

	// Auth Routes
	for _, prefix := range []string{"/api/auth", "/auth"} {
		auth := app.Group(prefix)
		auth.Post("/register", Wrap(h.Register))
		auth.Post("/login", Wrap(h.Login))
		auth.Post("/logout", Wrap(h.Logout))
	}

	api := app.Group("/api")
	api.Get("/auth/me", authn, Wrap(h.Me))
	api.Get("/pricing", Wrap(h.ListPricing))

	// Storage Routes
	api.Get("/storage", authn, Wrap(h.GetStorage))
	api.Put("/storage/plan", authn, Wrap(h.ChangePlan))

	// File Routes
	files := api.Group("/files", authn)
	files.Post("/", Wrap(h.UploadFile))
	files.Get("/", Wrap(h.ListFiles))
	files.Get("/shared", Wrap(h.ListSharedFiles))
	files.Get("/:id/download", Wrap(h.DownloadFile))
	files.Patch("/:id/visibility", Wrap(h.SetFileVisibility))
	files.Post("/:id/share", Wrap(h.ShareFile))
	files.Delete("/:id", Wrap(h.DeleteFile))

	// Link Routes
	links := api.Group("/links", authn)
	links.Post("/", Wrap(h.CreateLink))
	links.Get("/:link", Wrap(h.ResolveLink))
	links.Delete("/:link", Wrap(h.DeleteLink))

	// Admin Routes
	admin := api.Group("/admin", authn, admins)
	admin.Get("/users", Wrap(h.ListUsers))
	admin.Get("/users/:id", Wrap(h.GetUserByID))
	admin.Get("/users/:id/files", Wrap(h.ListUserFiles))
	admin.Get("/files", Wrap(h.ListAllFiles))
	admin.Delete("/files/:id", Wrap(h.AdminDeleteFile))

	return app
}
