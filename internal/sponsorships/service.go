package sponsorships

import (
	"context"
	"strings"
	"time"

	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/models"
	"carrykind-backend/internal/waitlist"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service drives the sponsorship state machine: pending → approved|rejected,
// approved → ended. Transitions are admin-triggered and one-way; a rejected
// sponsorship needs a fresh submission.
type Service struct {
	DB       *gorm.DB
	Ledger   *inventory.Service
	Waitlist *waitlist.Service
}

type SubmitInput struct {
	CauseID      uuid.UUID
	SponsorName  string
	SponsorEmail string
	ToteQuantity int
}

// Submit records a new sponsorship pending admin review. No inventory effect
// until approval.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Sponsorship, error) {
	if in.ToteQuantity < 1 {
		return nil, ErrInvalidQuantity
	}
	var cause models.Cause
	if err := s.DB.WithContext(ctx).Where("cause_id = ?", in.CauseID).First(&cause).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, inventory.ErrCauseNotFound
		}
		return nil, err
	}

	sp := &models.Sponsorship{
		CauseID:      in.CauseID,
		SponsorName:  in.SponsorName,
		SponsorEmail: strings.ToLower(in.SponsorEmail),
		ToteQuantity: in.ToteQuantity,
		Status:       models.SponsorshipPending,
		LogoStatus:   models.LogoPending,
	}
	if err := s.DB.WithContext(ctx).Create(sp).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

// Approve funds the cause: the sponsorship's totes are added to the pool and
// the waitlist gets a promotion pass, since capacity just increased.
func (s *Service) Approve(ctx context.Context, sponsorshipID uuid.UUID) (*models.Sponsorship, error) {
	sp, err := s.find(ctx, sponsorshipID)
	if err != nil {
		return nil, err
	}
	if sp.Status != models.SponsorshipPending {
		return nil, ErrNotPending
	}

	// Inventory first: a failed grow leaves the sponsorship pending and the
	// approval retriable, instead of an approved row that never funded.
	if err := s.Ledger.Grow(ctx, sp.CauseID, sp.ToteQuantity); err != nil {
		return nil, err
	}

	now := time.Now()
	sp.Status = models.SponsorshipApproved
	sp.LogoStatus = models.LogoApproved
	sp.ApprovedAt = &now
	if err := s.DB.WithContext(ctx).Save(sp).Error; err != nil {
		return nil, err
	}
	if _, err := s.Waitlist.TryPromote(ctx, sp.CauseID); err != nil {
		return nil, err
	}
	log.Info().Str("sponsorship_id", sp.SponsorshipID.String()).Int("tote_quantity", sp.ToteQuantity).Msg("Sponsorship approved")
	return sp, nil
}

// Reject declines a pending sponsorship. The reason is kept for the
// sponsor-facing resubmission flow; inventory is untouched.
func (s *Service) Reject(ctx context.Context, sponsorshipID uuid.UUID, reason string) (*models.Sponsorship, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, ErrReasonRequired
	}
	sp, err := s.find(ctx, sponsorshipID)
	if err != nil {
		return nil, err
	}
	if sp.Status != models.SponsorshipPending {
		return nil, ErrNotPending
	}

	sp.Status = models.SponsorshipRejected
	sp.LogoStatus = models.LogoRejected
	sp.RejectReason = &reason
	if err := s.DB.WithContext(ctx).Save(sp).Error; err != nil {
		return nil, err
	}
	return sp, nil
}

// EndCampaign retires an approved sponsorship. Still-unclaimed totes come
// back out of the pool; totes already claimed or on hold stay with their
// claimants and are recorded as unrecovered. Existing claims are never
// revoked.
func (s *Service) EndCampaign(ctx context.Context, sponsorshipID uuid.UUID) (*models.Sponsorship, error) {
	sp, err := s.find(ctx, sponsorshipID)
	if err != nil {
		return nil, err
	}
	if sp.Status != models.SponsorshipApproved {
		return nil, ErrNotApproved
	}

	result, err := s.Ledger.Shrink(ctx, sp.CauseID, sp.ToteQuantity)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sp.Status = models.SponsorshipEnded
	sp.EndedAt = &now
	sp.UnrecoveredTotes = result.Shortfall
	if err := s.DB.WithContext(ctx).Save(sp).Error; err != nil {
		return nil, err
	}
	log.Info().Str("sponsorship_id", sp.SponsorshipID.String()).Int("removed", result.Removed).Int("unrecovered", result.Shortfall).Msg("Sponsorship ended")
	return sp, nil
}

type ListInput struct {
	CauseID *uuid.UUID
	Status  string
}

// List returns sponsorships for the admin dashboard, newest first.
func (s *Service) List(ctx context.Context, in ListInput) ([]models.Sponsorship, error) {
	q := s.DB.WithContext(ctx).Model(&models.Sponsorship{})
	if in.CauseID != nil {
		q = q.Where("cause_id = ?", *in.CauseID)
	}
	if in.Status != "" {
		q = q.Where("status = ?", in.Status)
	}
	var sponsorships []models.Sponsorship
	if err := q.Order("created_at DESC").Find(&sponsorships).Error; err != nil {
		return nil, err
	}
	return sponsorships, nil
}

func (s *Service) find(ctx context.Context, id uuid.UUID) (*models.Sponsorship, error) {
	var sp models.Sponsorship
	if err := s.DB.WithContext(ctx).Where("sponsorship_id = ?", id).First(&sp).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrSponsorshipNotFound
		}
		return nil, err
	}
	return &sp, nil
}
