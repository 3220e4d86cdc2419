package claims

import (
	"context"
	"strings"
	"time"

	"carrykind-backend/internal/emails"
	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/models"
	"carrykind-backend/internal/pkg/locks"
	"carrykind-backend/internal/verification"
	"carrykind-backend/internal/waitlist"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	defaultPendingTimeout = 30 * time.Minute
	defaultMaxResends     = 3

	purposeClaim = "claim-verification"
)

// Service admits claims from every entry channel through one path, so the
// one-tote-per-person rule and the ledger invariants hold no matter where a
// claim comes from. QR and sponsor-link claims are pre-validated by physical
// proximity and verify immediately; magic-link claims ride the reservation
// the waitlist already holds; direct claims go through an emailed code.
type Service struct {
	DB       *gorm.DB
	Ledger   *inventory.Service
	Gateway  *verification.Service
	Waitlist *waitlist.Service
	Emails   emails.Sender

	PendingTimeout time.Duration
	MaxResends     int

	// claimLocks serializes submits per (cause, email) so two racing submits
	// cannot both pass the duplicate check.
	claimLocks *locks.PerKey
}

func NewService(db *gorm.DB, ledger *inventory.Service, gateway *verification.Service, wl *waitlist.Service, sender emails.Sender) *Service {
	return &Service{
		DB:             db,
		Ledger:         ledger,
		Gateway:        gateway,
		Waitlist:       wl,
		Emails:         sender,
		PendingTimeout: defaultPendingTimeout,
		MaxResends:     defaultMaxResends,
		claimLocks:     locks.NewPerKey(),
	}
}

type SubmitInput struct {
	CauseID    uuid.UUID
	Email      string
	Channel    string
	MagicToken string
}

// Submit admits a claim request. OutOfStock is the caller's cue to offer the
// waitlist, never a dead end.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*models.Claim, error) {
	switch in.Channel {
	case models.ChannelDirect, models.ChannelQR, models.ChannelMagicLink, models.ChannelSponsorLink:
	default:
		return nil, ErrInvalidChannel
	}
	normalized := strings.ToLower(in.Email)

	unlock := s.claimLocks.Lock(in.CauseID.String() + "|" + normalized)
	defer unlock()

	if err := s.checkNoActiveClaim(ctx, in.CauseID, normalized); err != nil {
		return nil, err
	}

	var reservationID uuid.UUID
	if in.Channel == models.ChannelMagicLink {
		if in.MagicToken == "" {
			return nil, ErrTokenRequired
		}
		entry, err := s.Waitlist.ValidateToken(ctx, in.MagicToken)
		if err != nil {
			return nil, err
		}
		if entry.Email != normalized {
			return nil, ErrTokenEmailMismatch
		}
		if entry.ReservationID == nil {
			return nil, waitlist.ErrTokenInvalid
		}
		// The tote was already reserved at promotion time; consuming the
		// token hands that hold to this claim.
		entry, err = s.Waitlist.ConsumeToken(ctx, in.MagicToken)
		if err != nil {
			return nil, err
		}
		reservationID = *entry.ReservationID
	} else {
		res, err := s.Ledger.Reserve(ctx, in.CauseID, 1)
		if err != nil {
			return nil, err
		}
		reservationID = res.ReservationID
	}

	claim := &models.Claim{
		CauseID:       in.CauseID,
		Email:         normalized,
		Channel:       in.Channel,
		Status:        models.ClaimReserved,
		ReservationID: &reservationID,
	}
	if err := s.DB.WithContext(ctx).Create(claim).Error; err != nil {
		_ = s.Ledger.Release(ctx, reservationID)
		return nil, err
	}

	switch in.Channel {
	case models.ChannelDirect:
		challengeID, code, err := s.Gateway.IssueChallenge(ctx, "email", normalized, purposeClaim)
		if err != nil {
			s.unwind(ctx, claim)
			return nil, err
		}
		claim.Status = models.ClaimPendingVerification
		claim.ChallengeID = &challengeID
		if err := s.DB.WithContext(ctx).Save(claim).Error; err != nil {
			s.unwind(ctx, claim)
			return nil, err
		}
		s.sendCode(ctx, claim, code)
	default:
		// qr, sponsor-link and magic-link are pre-validated; no code step.
		if err := s.finalize(ctx, claim); err != nil {
			return nil, err
		}
	}

	log.Info().Str("claim_id", claim.ClaimID.String()).Str("channel", claim.Channel).Str("status", claim.Status).Msg("Claim submitted")
	return claim, nil
}

// ConfirmVerification checks the code for a pending claim. Mismatched or
// replayed codes leave the claim pending and retriable; an expired challenge
// expires the claim and frees its tote the same way the timeout sweep does.
func (s *Service) ConfirmVerification(ctx context.Context, claimID uuid.UUID, code string) (*models.Claim, error) {
	claim, err := s.findClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimPendingVerification || claim.ChallengeID == nil {
		return nil, ErrNotPending
	}

	err = s.Gateway.Verify(ctx, *claim.ChallengeID, code)
	switch err {
	case nil:
	case verification.ErrChallengeExpired:
		if expireErr := s.expire(ctx, claim); expireErr != nil {
			return nil, expireErr
		}
		return nil, err
	default:
		return nil, err
	}

	if err := s.finalize(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// Resend replaces the pending claim's challenge with a fresh one. After
// MaxResends the claim expires and its tote goes back to the pool.
func (s *Service) Resend(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.findClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != models.ClaimPendingVerification || claim.ChallengeID == nil {
		return nil, ErrNotPending
	}
	if claim.ResendCount >= s.MaxResends {
		if err := s.expire(ctx, claim); err != nil {
			return nil, err
		}
		return nil, ErrResendLimit
	}

	challengeID, code, err := s.Gateway.Resend(ctx, *claim.ChallengeID)
	if err == verification.ErrChallengeExpired {
		// Old challenge already gone; mint a fresh one for the same identity.
		challengeID, code, err = s.Gateway.IssueChallenge(ctx, "email", claim.Email, purposeClaim)
	}
	if err != nil {
		return nil, err
	}

	claim.ChallengeID = &challengeID
	claim.ResendCount++
	if err := s.DB.WithContext(ctx).Save(claim).Error; err != nil {
		return nil, err
	}
	s.sendCode(ctx, claim, code)
	return claim, nil
}

// Cancel is the admin path out of any pre-shipped state. The reservation is
// released only if still held; Release is idempotent so racing a sweep is
// harmless.
func (s *Service) Cancel(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	claim, err := s.findClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	switch claim.Status {
	case models.ClaimShipped, models.ClaimDelivered:
		return nil, ErrAlreadyShipped
	case models.ClaimCancelled, models.ClaimExpired:
		return claim, nil
	}

	claim.Status = models.ClaimCancelled
	if err := s.DB.WithContext(ctx).Save(claim).Error; err != nil {
		return nil, err
	}
	if claim.ReservationID != nil {
		if err := s.Ledger.Release(ctx, *claim.ReservationID); err != nil {
			return nil, err
		}
	}
	if _, err := s.Waitlist.TryPromote(ctx, claim.CauseID); err != nil {
		return nil, err
	}
	log.Info().Str("claim_id", claim.ClaimID.String()).Msg("Claim cancelled")
	return claim, nil
}

// AdvanceFulfilment moves a verified claim through shipped and delivered.
// Pure bookkeeping; the tote was committed at verification.
func (s *Service) AdvanceFulfilment(ctx context.Context, claimID uuid.UUID, to string) (*models.Claim, error) {
	claim, err := s.findClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}
	valid := (to == models.ClaimShipped && claim.Status == models.ClaimVerified) ||
		(to == models.ClaimDelivered && claim.Status == models.ClaimShipped)
	if !valid {
		return nil, ErrInvalidTransition
	}
	claim.Status = to
	if err := s.DB.WithContext(ctx).Save(claim).Error; err != nil {
		return nil, err
	}
	return claim, nil
}

// Status returns the active claim for (cause, email), for the "view your
// existing claim" recovery path.
func (s *Service) Status(ctx context.Context, causeID uuid.UUID, email string) (*models.Claim, error) {
	var claim models.Claim
	err := s.DB.WithContext(ctx).
		Where("cause_id = ? AND email = ? AND status IN ?", causeID, strings.ToLower(email), models.ActiveClaimStatuses).
		Order("created_at DESC").
		First(&claim).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrClaimNotFound
	} else if err != nil {
		return nil, err
	}
	return &claim, nil
}

// SweepStalled expires claims stuck in pending-verification past the timeout
// so a stalled OTP never locks a tote out of the pool.
func (s *Service) SweepStalled(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.PendingTimeout)
	var stalled []models.Claim
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND updated_at < ?", models.ClaimPendingVerification, cutoff).
		Find(&stalled).Error; err != nil {
		return 0, err
	}

	swept := 0
	for i := range stalled {
		if err := s.expire(ctx, &stalled[i]); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}

// finalize commits the claim's reservation and marks it verified.
func (s *Service) finalize(ctx context.Context, claim *models.Claim) error {
	if claim.ReservationID != nil {
		if err := s.Ledger.Commit(ctx, *claim.ReservationID); err != nil {
			return err
		}
	}
	now := time.Now()
	claim.Status = models.ClaimVerified
	claim.VerifiedAt = &now
	if err := s.DB.WithContext(ctx).Save(claim).Error; err != nil {
		return err
	}
	if s.Emails != nil {
		if err := s.Emails.SendClaimConfirmed(ctx, claim.Email, s.causeName(ctx, claim.CauseID)); err != nil {
			log.Warn().Err(err).Str("claim_id", claim.ClaimID.String()).Msg("Claim confirmation email failed")
		}
	}
	return nil
}

// expire releases the claim's tote and re-runs waitlist promotion.
func (s *Service) expire(ctx context.Context, claim *models.Claim) error {
	result := s.DB.WithContext(ctx).Model(&models.Claim{}).
		Where("claim_id = ? AND status IN ?", claim.ClaimID, []string{models.ClaimReserved, models.ClaimPendingVerification}).
		Update("status", models.ClaimExpired)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Someone else resolved it first (verify, cancel or another sweep).
		return nil
	}
	claim.Status = models.ClaimExpired
	if claim.ReservationID != nil {
		if err := s.Ledger.Release(ctx, *claim.ReservationID); err != nil {
			return err
		}
	}
	log.Info().Str("claim_id", claim.ClaimID.String()).Msg("Claim expired; tote released")
	if _, err := s.Waitlist.TryPromote(ctx, claim.CauseID); err != nil {
		return err
	}
	return nil
}

// unwind cancels a half-created claim after challenge setup fails. A bare
// release would leave the row active in reserved status, locking the identity
// out of the cause with ErrDuplicateClaim forever.
func (s *Service) unwind(ctx context.Context, claim *models.Claim) {
	if err := s.DB.WithContext(ctx).Model(&models.Claim{}).
		Where("claim_id = ?", claim.ClaimID).
		Update("status", models.ClaimCancelled).Error; err != nil {
		log.Error().Err(err).Str("claim_id", claim.ClaimID.String()).Msg("Failed to cancel claim after challenge error")
	}
	if claim.ReservationID != nil {
		_ = s.Ledger.Release(ctx, *claim.ReservationID)
	}
}

func (s *Service) checkNoActiveClaim(ctx context.Context, causeID uuid.UUID, email string) error {
	var existing models.Claim
	err := s.DB.WithContext(ctx).
		Where("cause_id = ? AND email = ? AND status IN ?", causeID, email, models.ActiveClaimStatuses).
		First(&existing).Error
	if err == nil {
		return ErrDuplicateClaim
	} else if err != gorm.ErrRecordNotFound {
		return err
	}
	return nil
}

func (s *Service) findClaim(ctx context.Context, claimID uuid.UUID) (*models.Claim, error) {
	var claim models.Claim
	if err := s.DB.WithContext(ctx).Where("claim_id = ?", claimID).First(&claim).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

func (s *Service) sendCode(ctx context.Context, claim *models.Claim, code string) {
	if s.Emails == nil {
		return
	}
	if err := s.Emails.SendClaimCode(ctx, claim.Email, s.causeName(ctx, claim.CauseID), code); err != nil {
		log.Warn().Err(err).Str("claim_id", claim.ClaimID.String()).Msg("Verification code email failed; claim kept pending")
	}
}

func (s *Service) causeName(ctx context.Context, causeID uuid.UUID) string {
	var cause models.Cause
	if err := s.DB.WithContext(ctx).Where("cause_id = ?", causeID).First(&cause).Error; err != nil {
		return "a cause"
	}
	return cause.Name
}
