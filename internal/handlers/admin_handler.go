package handlers

import (
	"net/http"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListUsers lists all users
func (h *Handler) ListUsers(c *fiber.Ctx) (Response, error) {
	res := h.Users.FindMany(c.UserContext(), bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if res.Status == http.StatusNotFound {
		return Response{Status: http.StatusOK, Message: db.MsgSuccess, Data: []models.User{}}, nil
	}
	return FromResult(res), nil
}

// GetUserByID returns one user
func (h *Handler) GetUserByID(c *fiber.Ctx) (Response, error) {
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}
	return FromResult(h.Users.FindOne(c.UserContext(), bson.M{"_id": id})), nil
}

// ListAllFiles lists every uploaded file
func (h *Handler) ListAllFiles(c *fiber.Ctx) (Response, error) {
	return FromResult(h.Files.ListAll(c.UserContext())), nil
}

// ListUserFiles lists the files of one user
func (h *Handler) ListUserFiles(c *fiber.Ctx) (Response, error) {
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}
	return FromResult(h.Files.ListOwnedBy(c.UserContext(), id)), nil
}

// AdminDeleteFile soft-deletes any file
func (h *Handler) AdminDeleteFile(c *fiber.Ctx) (Response, error) {
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}
	return FromResult(h.Files.AdminDelete(c.UserContext(), id)), nil
}
