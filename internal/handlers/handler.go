package handlers

import (
	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
)

// Handler holds the services the HTTP routes are served from.
type Handler struct {
	Auth    *services.AuthService
	Files   *services.FileService
	Links   *services.LinkService
	Pricing *services.PricingService
	Users   *db.Repository[models.User]
}
