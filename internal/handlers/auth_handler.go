package handlers

import (
	"net/http"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
)

func (h *Handler) Register(c *fiber.Ctx) (Response, error) {
	var request services.RegisterInput
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}

	if request.Email == "" || request.Password == "" || request.FirstName == "" || request.LastName == "" {
		return badRequest(utils.MsgMissingFields), nil
	}

	res, pair := h.Auth.Register(c.UserContext(), request, middleware.ClientMeta(c))
	if !res.OK() {
		return FromResult(res), nil
	}

	middleware.SetSessionCookies(c, pair)
	return Response{Status: http.StatusCreated, Message: res.Message, Data: res.Data}, nil
}

func (h *Handler) Login(c *fiber.Ctx) (Response, error) {
	var request services.LoginInput
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}

	if request.Email == "" || request.Password == "" {
		return badRequest(utils.MsgMissingFields), nil
	}

	res, pair := h.Auth.Login(c.UserContext(), request, middleware.ClientMeta(c))
	if res.OK() {
		middleware.SetSessionCookies(c, pair)
	}
	return FromResult(res), nil
}

// Logout always succeeds and always clears the cookies.
func (h *Handler) Logout(c *fiber.Ctx) (Response, error) {
	if refresh := c.Cookies(middleware.RefreshCookie); refresh != "" {
		h.Auth.Logout(c.UserContext(), refresh, middleware.ClientMeta(c))
	}

	middleware.ClearSessionCookies(c)
	return Response{Status: http.StatusOK, Message: db.MsgSuccess}, nil
}

func (h *Handler) Me(c *fiber.Ctx) (Response, error) {
	id, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Users.FindOne(c.UserContext(), bson.M{"_id": id})), nil
}
