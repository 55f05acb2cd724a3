package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/fera765/chatstory/internal/service"
	"github.com/fera765/chatstory/pkg/response"
)

type VideoHandler struct {
	library *service.LibraryService
}

func NewVideoHandler(library *service.LibraryService) *VideoHandler {
	return &VideoHandler{library: library}
}

// List handles GET /api/videos: finished videos, newest first.
func (h *VideoHandler) List(c *fiber.Ctx) error {
	videos, err := h.library.ListVideos()
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{"videos": videos})
}

// Download handles GET /api/videos/:name.
func (h *VideoHandler) Download(c *fiber.Ctx) error {
	path, err := h.library.VideoPath(c.Params("name"))
	if err != nil {
		if errors.Is(err, service.ErrVideoNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return c.SendFile(path)
}
