package handlers

import (
	"net/http"

	"github.com/ayushpanday7/open-drive/internal/db"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Response is what a handler asks the wrapper to write.
type Response struct {
	Status  int
	Message string
	Data    any
}

// HandlerFunc returns the envelope to send. A returned error becomes a
// fixed 500.
type HandlerFunc func(c *fiber.Ctx) (Response, error)

// Wrap adapts a HandlerFunc to fiber.
func Wrap(h HandlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := h(c)
		if err != nil {
			return err
		}
		if res.Status == 0 {
			res.Status = http.StatusOK
		}
		if res.Message == "" {
			res.Message = http.StatusText(res.Status)
		}
		return utils.Respond(c, res.Status, res.Message, res.Data)
	}
}

// FromResult turns a data-access result into a response. Validation
// failures carry their field errors as data.
func FromResult[T any](r db.Result[T]) Response {
	switch {
	case r.OK():
		return Response{Status: r.Status, Message: r.Message, Data: r.Data}
	case r.Status == http.StatusBadRequest && len(r.Errors) > 0:
		return Response{Status: r.Status, Message: r.Message, Data: r.Errors}
	default:
		return Response{Status: r.Status, Message: r.Message}
	}
}

func badRequest(message string) Response {
	return Response{Status: http.StatusBadRequest, Message: message}
}

func unauthorized() Response {
	return Response{Status: http.StatusUnauthorized, Message: utils.MsgUnauthorized}
}
