package handlers

import (
	"time"

	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
)

func (h *Handler) CreateLink(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}

	var request struct {
		Files     []string `json:"files"`
		ExpiresIn int64    `json:"expires_in"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}
	if len(request.Files) == 0 {
		return badRequest(utils.MsgMissingFields), nil
	}
	if request.ExpiresIn < 0 {
		return badRequest("expires_in must not be negative"), nil
	}
	files, ok := parseObjectIDs(request.Files)
	if !ok {
		return badRequest(MsgInvalidID), nil
	}

	res := h.Links.Create(c.UserContext(), owner, files, time.Duration(request.ExpiresIn)*time.Second)
	if !res.OK() {
		return FromResult(res), nil
	}
	return Response{Status: fiber.StatusCreated, Message: res.Message, Data: res.Data}, nil
}

func (h *Handler) ResolveLink(c *fiber.Ctx) (Response, error) {
	viewer, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Links.Resolve(c.UserContext(), c.Params("link"), viewer)), nil
}

func (h *Handler) DeleteLink(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Links.Delete(c.UserContext(), owner, c.Params("link"))), nil
}
