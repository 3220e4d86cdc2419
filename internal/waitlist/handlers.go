package waitlist

import (
	"time"

	"carrykind-backend/internal/pkg/response"
	"carrykind-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/waitlist/join (public)
func (h *Handlers) Join(c *fiber.Ctx) error {
	var body struct {
		CauseID string `json:"cause_id"`
		Email   string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.CauseID == "" || body.Email == "" {
		return response.Error(c, "cause_id and email are required", 400, nil)
	}
	if !validation.IsValidEmail(body.Email) {
		return response.Error(c, "Invalid email address", 400, nil)
	}
	causeID, err := uuid.Parse(body.CauseID)
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}

	entry, err := h.Service.Join(c.Context(), causeID, body.Email)
	if err != nil {
		if err == ErrDuplicateEntry {
			return response.Error(c, err.Error(), fiber.StatusConflict, nil)
		}
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.SuccessCreated(c, "Joined waitlist successfully", entry, nil)
}

// POST /api/v1/waitlist/leave (public)
func (h *Handlers) Leave(c *fiber.Ctx) error {
	var body struct {
		CauseID string `json:"cause_id"`
		Email   string `json:"email"`
	}
	if err := c.BodyParser(&body); err != nil || body.CauseID == "" || body.Email == "" {
		return response.Error(c, "cause_id and email are required", 400, nil)
	}
	causeID, err := uuid.Parse(body.CauseID)
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}

	if err := h.Service.Leave(c.Context(), causeID, body.Email); err != nil {
		if err == ErrEntryNotFound {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Left waitlist successfully", nil, nil)
}

// CheckTokenResult is returned by the public check-token route so the claim
// page can prefill before the claimant commits.
type CheckTokenResult struct {
	CauseID   string     `json:"cause_id"`
	CauseName string     `json:"cause_name"`
	Email     string     `json:"email"`
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// POST /api/v1/waitlist/public/check-token (no auth)
func (h *Handlers) CheckToken(c *fiber.Ctx) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.Token == "" {
		return response.Error(c, "token is required", 400, nil)
	}

	entry, err := h.Service.ValidateToken(c.Context(), body.Token)
	if err != nil {
		switch err {
		case ErrTokenExpired, ErrTokenUsed:
			return response.Error(c, err.Error(), fiber.StatusGone, nil)
		default:
			return response.Error(c, err.Error(), 400, nil)
		}
	}
	return response.Success(c, "Claim link verified", CheckTokenResult{
		CauseID:   entry.CauseID.String(),
		CauseName: h.Service.causeName(c.Context(), entry.CauseID),
		Email:     entry.Email,
		Valid:     true,
		ExpiresAt: entry.TokenExpiresAt,
	}, nil)
}

// GET /api/v1/waitlist/view?cause_id=... (VIEW_DATA permission via middleware)
func (h *Handlers) View(c *fiber.Ctx) error {
	causeID, err := uuid.Parse(c.Query("cause_id"))
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}
	entries, err := h.Service.ListByCause(c.Context(), causeID)
	if err != nil {
		return response.Error(c, err.Error(), 400, nil)
	}
	return response.Success(c, "Waitlist fetched successfully", entries, nil)
}
