package sponsorships

import (
	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/pkg/response"
	"carrykind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/sponsorships/submit (auth required)
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body struct {
		CauseID      string `json:"cause_id"`
		SponsorName  string `json:"sponsor_name"`
		SponsorEmail string `json:"sponsor_email"`
		ToteQuantity int    `json:"tote_quantity"`
	}
	if err := c.BodyParser(&body); err != nil || body.CauseID == "" || body.SponsorName == "" || body.SponsorEmail == "" {
		return response.Error(c, "cause_id, sponsor_name and sponsor_email are required", 400, nil)
	}
	if !validation.IsValidEmail(body.SponsorEmail) {
		return response.Error(c, "Invalid sponsor email", 400, nil)
	}
	causeID, err := uuid.Parse(body.CauseID)
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}

	sp, err := h.Service.Submit(c.Context(), SubmitInput{
		CauseID:      causeID,
		SponsorName:  body.SponsorName,
		SponsorEmail: body.SponsorEmail,
		ToteQuantity: body.ToteQuantity,
	})
	if err != nil {
		return sponsorshipError(c, err)
	}
	return response.SuccessCreated(c, "Sponsorship submitted for review", sp, nil)
}

// PATCH /api/v1/sponsorships/approve (APPROVE_SPONSORSHIP permission via middleware)
func (h *Handlers) Approve(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "sponsorship_id is required", 400, nil)
	}
	sp, err := h.Service.Approve(c.Context(), id)
	if err != nil {
		return sponsorshipError(c, err)
	}
	return response.Success(c, "Sponsorship approved successfully", sp, nil)
}

// PATCH /api/v1/sponsorships/reject (APPROVE_SPONSORSHIP permission via middleware)
func (h *Handlers) Reject(c *fiber.Ctx) error {
	var body struct {
		SponsorshipID string `json:"sponsorship_id"`
		Reason        string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil || body.SponsorshipID == "" {
		return response.Error(c, "sponsorship_id is required", 400, nil)
	}
	id, err := uuid.Parse(body.SponsorshipID)
	if err != nil {
		return response.Error(c, "Invalid sponsorship_id", 400, nil)
	}

	sp, err := h.Service.Reject(c.Context(), id, body.Reason)
	if err != nil {
		return sponsorshipError(c, err)
	}
	return response.Success(c, "Sponsorship rejected", sp, nil)
}

// PATCH /api/v1/sponsorships/end (APPROVE_SPONSORSHIP permission via middleware)
func (h *Handlers) End(c *fiber.Ctx) error {
	id, ok := parseID(c)
	if !ok {
		return response.Error(c, "sponsorship_id is required", 400, nil)
	}
	sp, err := h.Service.EndCampaign(c.Context(), id)
	if err != nil {
		return sponsorshipError(c, err)
	}
	return response.Success(c, "Sponsorship campaign ended", sp, nil)
}

// GET /api/v1/sponsorships/view-all (VIEW_DATA permission via middleware)
func (h *Handlers) ViewAll(c *fiber.Ctx) error {
	in := ListInput{Status: c.Query("status")}
	if raw := c.Query("cause_id"); raw != "" {
		causeID, err := uuid.Parse(raw)
		if err != nil {
			return response.Error(c, "Invalid cause_id", 400, nil)
		}
		in.CauseID = &causeID
	}
	sponsorships, err := h.Service.List(c.Context(), in)
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Sponsorships fetched successfully", sponsorships, nil)
}

func parseID(c *fiber.Ctx) (uuid.UUID, bool) {
	var body struct {
		SponsorshipID string `json:"sponsorship_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.SponsorshipID == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(body.SponsorshipID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func sponsorshipError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrSponsorshipNotFound, inventory.ErrCauseNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case inventory.ErrInvariantViolation:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	default:
		return response.Error(c, err.Error(), 400, nil)
	}
}
