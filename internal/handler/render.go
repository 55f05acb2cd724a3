package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/fera765/chatstory/internal/model"
	"github.com/fera765/chatstory/internal/registry"
	"github.com/fera765/chatstory/internal/service"
	"github.com/fera765/chatstory/pkg/response"
)

type RenderHandler struct {
	service   *service.RenderService
	validator *validator.Validate
}

func NewRenderHandler(svc *service.RenderService, v *validator.Validate) *RenderHandler {
	return &RenderHandler{
		service:   svc,
		validator: v,
	}
}

// Generate handles POST /api/generate: validates the job configuration,
// registers the job and returns its id immediately; generation
// proceeds asynchronously.
func (h *RenderHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := model.ValidateMessages(req.Messages); err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	result, err := h.service.StartGeneration(&req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/status/:jobId for polling clients.
func (h *RenderHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(jobID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

func formatValidationErrors(err error) []fiber.Map {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	out := make([]fiber.Map, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fiber.Map{
			"field": fe.Field(),
			"rule":  fe.Tag(),
		})
	}
	return out
}
