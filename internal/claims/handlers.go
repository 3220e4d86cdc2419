package claims

import (
	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/models"
	"carrykind-backend/internal/pkg/response"
	"carrykind-backend/internal/pkg/validation"
	"carrykind-backend/internal/verification"
	"carrykind-backend/internal/waitlist"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// POST /api/v1/claims/submit (public)
func (h *Handlers) Submit(c *fiber.Ctx) error {
	var body struct {
		CauseID string `json:"cause_id"`
		Email   string `json:"email"`
		Channel string `json:"channel"`
		Token   string `json:"token"`
	}
	if err := c.BodyParser(&body); err != nil || body.CauseID == "" || body.Email == "" || body.Channel == "" {
		return response.Error(c, "cause_id, email and channel are required", 400, nil)
	}
	if !validation.IsValidEmail(body.Email) {
		return response.Error(c, "Invalid email address", 400, nil)
	}
	causeID, err := uuid.Parse(body.CauseID)
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}

	claim, err := h.Service.Submit(c.Context(), SubmitInput{
		CauseID:    causeID,
		Email:      body.Email,
		Channel:    body.Channel,
		MagicToken: body.Token,
	})
	if err != nil {
		return claimError(c, err)
	}
	return response.SuccessCreated(c, "Claim submitted successfully", claim, nil)
}

// POST /api/v1/claims/verify (public)
func (h *Handlers) Verify(c *fiber.Ctx) error {
	var body struct {
		ClaimID string `json:"claim_id"`
		Code    string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil || body.ClaimID == "" || body.Code == "" {
		return response.Error(c, "claim_id and code are required", 400, nil)
	}
	if !validation.IsValidCode(body.Code) {
		return response.Error(c, "Code must be six digits", 400, fiber.Map{"action": "retry-code"})
	}
	claimID, err := uuid.Parse(body.ClaimID)
	if err != nil {
		return response.Error(c, "Invalid claim_id", 400, nil)
	}

	claim, err := h.Service.ConfirmVerification(c.Context(), claimID, body.Code)
	if err != nil {
		return claimError(c, err)
	}
	return response.Success(c, "Claim verified successfully", claim, nil)
}

// POST /api/v1/claims/resend (public)
func (h *Handlers) Resend(c *fiber.Ctx) error {
	var body struct {
		ClaimID string `json:"claim_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ClaimID == "" {
		return response.Error(c, "claim_id is required", 400, nil)
	}
	claimID, err := uuid.Parse(body.ClaimID)
	if err != nil {
		return response.Error(c, "Invalid claim_id", 400, nil)
	}

	claim, err := h.Service.Resend(c.Context(), claimID)
	if err != nil {
		return claimError(c, err)
	}
	return response.Success(c, "Verification code resent", claim, nil)
}

// GET /api/v1/claims/status?cause_id=...&email=... (public)
func (h *Handlers) Status(c *fiber.Ctx) error {
	causeID, err := uuid.Parse(c.Query("cause_id"))
	if err != nil {
		return response.Error(c, "Invalid cause_id", 400, nil)
	}
	email := c.Query("email")
	if email == "" {
		return response.Error(c, "email is required", 400, nil)
	}

	claim, err := h.Service.Status(c.Context(), causeID, email)
	if err != nil {
		return claimError(c, err)
	}
	return response.Success(c, "Claim fetched successfully", claim, nil)
}

// POST /api/v1/claims/cancel (MANAGE_CLAIMS permission via middleware)
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	var body struct {
		ClaimID string `json:"claim_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.ClaimID == "" {
		return response.Error(c, "claim_id is required", 400, nil)
	}
	claimID, err := uuid.Parse(body.ClaimID)
	if err != nil {
		return response.Error(c, "Invalid claim_id", 400, nil)
	}

	claim, err := h.Service.Cancel(c.Context(), claimID)
	if err != nil {
		return claimError(c, err)
	}
	return response.Success(c, "Claim cancelled successfully", claim, nil)
}

// PATCH /api/v1/claims/advance (MANAGE_CLAIMS permission via middleware)
func (h *Handlers) Advance(c *fiber.Ctx) error {
	var body struct {
		ClaimID string `json:"claim_id"`
		To      string `json:"to"`
	}
	if err := c.BodyParser(&body); err != nil || body.ClaimID == "" || body.To == "" {
		return response.Error(c, "claim_id and to are required", 400, nil)
	}
	if body.To != models.ClaimShipped && body.To != models.ClaimDelivered {
		return response.Error(c, "to must be shipped or delivered", 400, nil)
	}
	claimID, err := uuid.Parse(body.ClaimID)
	if err != nil {
		return response.Error(c, "Invalid claim_id", 400, nil)
	}

	claim, err := h.Service.AdvanceFulfilment(c.Context(), claimID, body.To)
	if err != nil {
		return claimError(c, err)
	}
	return response.Success(c, "Claim updated successfully", claim, nil)
}

// claimError maps service errors to the standard envelope. Every recoverable
// kind carries an action the frontend can offer; only ledger invariant
// breaches surface as 500.
func claimError(c *fiber.Ctx, err error) error {
	switch err {
	case inventory.ErrOutOfStock:
		return response.Error(c, err.Error(), fiber.StatusConflict, fiber.Map{"action": "join-waitlist"})
	case ErrDuplicateClaim:
		return response.Error(c, err.Error(), fiber.StatusConflict, fiber.Map{"action": "view-claim"})
	case ErrClaimNotFound, inventory.ErrCauseNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case verification.ErrCodeMismatch, verification.ErrChallengeUsed:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"action": "retry-code"})
	case verification.ErrChallengeExpired, ErrResendLimit:
		return response.Error(c, err.Error(), fiber.StatusGone, fiber.Map{"action": "join-waitlist"})
	case waitlist.ErrTokenInvalid, waitlist.ErrTokenExpired, waitlist.ErrTokenUsed:
		return response.Error(c, err.Error(), fiber.StatusGone, nil)
	case inventory.ErrInvariantViolation:
		return response.Error(c, "Internal Server Error", fiber.StatusInternalServerError, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
}
