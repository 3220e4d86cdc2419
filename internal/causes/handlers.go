package causes

import (
	"carrykind-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/causes/create (PUBLISH_CAUSE permission via middleware)
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		IsOnline    bool   `json:"is_online"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return response.Error(c, "name is required", 400, nil)
	}

	cause, err := h.Service.Create(c.Context(), CreateInput{
		Name:        body.Name,
		Description: body.Description,
		IsOnline:    body.IsOnline,
	})
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.SuccessCreated(c, "Cause published successfully", cause, nil)
}

// GET /api/v1/causes (public; admins pass ?all=true to include offline causes)
func (h *Handlers) List(c *fiber.Ctx) error {
	onlineOnly := c.Query("all") != "true"
	causes, err := h.Service.List(c.Context(), onlineOnly)
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Causes fetched successfully", causes, nil)
}

// GET /api/v1/causes/:id (public)
func (h *Handlers) View(c *fiber.Ctx) error {
	causeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid cause id", 400, nil)
	}
	cause, err := h.Service.View(c.Context(), causeID)
	if err != nil {
		if err == ErrCauseNotFound {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Cause fetched successfully", cause, nil)
}

// PATCH /api/v1/causes/:id/online (PUBLISH_CAUSE permission via middleware)
func (h *Handlers) SetOnline(c *fiber.Ctx) error {
	causeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Invalid cause id", 400, nil)
	}
	var body struct {
		IsOnline bool `json:"is_online"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "is_online is required", 400, nil)
	}

	cause, err := h.Service.SetOnline(c.Context(), causeID, body.IsOnline)
	if err != nil {
		if err == ErrCauseNotFound {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Cause updated successfully", cause, nil)
}
