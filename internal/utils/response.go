package utils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Envelope is the only body shape clients ever receive.
type Envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

const (
	MsgUnauthorized  = "Unauthorized"
	MsgForbidden     = "Forbidden"
	MsgMissingFields = "Missing required fields"
	MsgInvalidBody   = "Invalid request body"
	MsgInternal      = "internal server error"
)

// Respond writes an envelope with the given status.
func Respond(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Status: status, Message: message, Data: data})
}

// RequestID returns the id assigned by the requestid middleware.
func RequestID(c *fiber.Ctx) string {
	id, _ := c.Locals("requestid").(string)
	return id
}

// ErrorHandler is the last line of defense: framework errors keep their
// status, anything else becomes a fixed 500 that never carries error text.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return Respond(c, fe.Code, fe.Message, nil)
	}

	zap.L().Error("Unhandled request error",
		zap.Error(err),
		zap.String("path", c.Path()),
		zap.String("requestID", RequestID(c)),
	)
	return Respond(c, fiber.StatusInternalServerError, MsgInternal, nil)
}
