package handlers

import (
	"fmt"

	"github.com/ayushpanday7/open-drive/internal/middleware"
	"github.com/ayushpanday7/open-drive/internal/models"
	"github.com/ayushpanday7/open-drive/internal/services"
	"github.com/ayushpanday7/open-drive/internal/utils"
	"github.com/gofiber/fiber/v2"
)

const defaultEncoding = "7bit"

// UploadFile handles multipart uploads in the "file" field.
func (h *Handler) UploadFile(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest("Failed to retrieve file"), nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return Response{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	encoding := fileHeader.Header.Get("Content-Transfer-Encoding")
	if encoding == "" {
		encoding = defaultEncoding
	}
	mimeType := fileHeader.Header.Get(fiber.HeaderContentType)
	if mimeType == "" {
		mimeType = fiber.MIMEOctetStream
	}

	res := h.Files.Upload(c.UserContext(), owner, services.Upload{
		FieldName:    "file",
		OriginalName: fileHeader.Filename,
		Encoding:     encoding,
		MimeType:     mimeType,
		Size:         fileHeader.Size,
		Body:         file,
	})
	if !res.OK() {
		return FromResult(res), nil
	}
	return Response{Status: fiber.StatusCreated, Message: res.Message, Data: res.Data}, nil
}

func (h *Handler) ListFiles(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Files.List(c.UserContext(), owner)), nil
}

func (h *Handler) ListSharedFiles(c *fiber.Ctx) (Response, error) {
	user, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	return FromResult(h.Files.Shared(c.UserContext(), user)), nil
}

func (h *Handler) DownloadFile(c *fiber.Ctx) (Response, error) {
	user, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}
	return FromResult(h.Files.Download(c.UserContext(), user, id)), nil
}

func (h *Handler) SetFileVisibility(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}

	var request struct {
		Visibility models.Visibility `json:"visibility"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}
	if request.Visibility == "" {
		return badRequest(utils.MsgMissingFields), nil
	}

	return FromResult(h.Files.SetVisibility(c.UserContext(), owner, id, request.Visibility)), nil
}

func (h *Handler) ShareFile(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}

	var request struct {
		Users []string `json:"users"`
	}
	if err := c.BodyParser(&request); err != nil {
		return badRequest(utils.MsgInvalidBody), nil
	}
	if len(request.Users) == 0 {
		return badRequest(utils.MsgMissingFields), nil
	}
	users, ok := parseObjectIDs(request.Users)
	if !ok {
		return badRequest(MsgInvalidID), nil
	}

	return FromResult(h.Files.Share(c.UserContext(), owner, id, users)), nil
}

func (h *Handler) DeleteFile(c *fiber.Ctx) (Response, error) {
	owner, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(), nil
	}
	id, ok := paramObjectID(c, "id")
	if !ok {
		return badRequest(MsgInvalidID), nil
	}
	return FromResult(h.Files.Delete(c.UserContext(), owner, id)), nil
}
