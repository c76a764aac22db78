package handlers

import (
	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) ListPricing(c *fiber.Ctx) (Response, error) {
	return FromResult(h.Pricing.List(c.UserContext())), nil
}

func (h *Handler) GetStorage(c *fiber.Ctx) (Response, error) {
	user, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Pricing.Allocation(c.UserContext(), user)), nil
}

func (h *Handler) ChangePlan(c *fiber.Ctx) (Response, error) {
	user, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}

	var request struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}
	if request.Plan == "" {
		return badRequest(utils.MsgMissingFields), nil
	}
	plan, err := primitive.ObjectIDFromHex(request.Plan)
	if err != nil {
		return badRequest(MsgInvalidID), nil
	}

	return FromResult(h.Pricing.ChangePlan(c.UserContext(), user, plan)), nil
}
