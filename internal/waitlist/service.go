package waitlist

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"carrykind-backend/internal/emails"
	"carrykind-backend/internal/inventory"
	"carrykind-backend/internal/models"
	"carrykind-backend/internal/pkg/locks"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const tokenExpiry = 48 * time.Hour

// Service is the per-cause waitlist. Positions are assigned at join time and
// never renumbered; promotion walks waiting entries in position order, so a
// later entry is never promoted past an earlier one while totes are scarce.
type Service struct {
	DB           *gorm.DB
	Ledger       *inventory.Service
	Emails       emails.Sender
	ClaimBaseURL string

	// promoteLocks serializes join/promote/consume per cause so two promotion
	// passes cannot hand the same entry two reservations.
	promoteLocks *locks.PerKey
}

func NewService(db *gorm.DB, ledger *inventory.Service, sender emails.Sender, claimBaseURL string) *Service {
	return &Service{
		DB:           db,
		Ledger:       ledger,
		Emails:       sender,
		ClaimBaseURL: claimBaseURL,
		promoteLocks: locks.NewPerKey(),
	}
}

// Join adds an identity to a cause's waitlist at position max+1.
func (s *Service) Join(ctx context.Context, causeID uuid.UUID, email string) (*models.WaitlistEntry, error) {
	normalized := strings.ToLower(email)

	unlock := s.promoteLocks.Lock(causeID.String())
	defer unlock()

	var existing models.WaitlistEntry
	err := s.DB.WithContext(ctx).
		Where("cause_id = ? AND email = ? AND status IN ?", causeID, normalized, []string{models.WaitlistWaiting, models.WaitlistNotified}).
		First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateEntry
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	// Positions of departed entries are never reused, so max over all rows
	// including soft-deleted ones.
	var maxPosition int
	if err := s.DB.WithContext(ctx).Model(&models.WaitlistEntry{}).Unscoped().
		Where("cause_id = ?", causeID).
		Select("COALESCE(MAX(position), 0)").Scan(&maxPosition).Error; err != nil {
		return nil, err
	}

	entry := &models.WaitlistEntry{
		CauseID:  causeID,
		Email:    normalized,
		Position: maxPosition + 1,
		Status:   models.WaitlistWaiting,
	}
	if err := s.DB.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	log.Info().Str("cause_id", causeID.String()).Int("position", entry.Position).Msg("Joined waitlist")
	return entry, nil
}

// Leave soft-removes an identity's entry. A notified entry gives its
// reservation back, which may promote the next person.
func (s *Service) Leave(ctx context.Context, causeID uuid.UUID, email string) error {
	released, err := s.remove(ctx, causeID, strings.ToLower(email))
	if err != nil {
		return err
	}
	if released {
		if _, err := s.TryPromote(ctx, causeID); err != nil {
			return err
		}
	}
	return nil
}

// remove deletes the entry and releases its reservation under the promote
// lock, so it cannot interleave with a ConsumeToken handing that same
// reservation to a claim. The delete is conditional on status for the same
// reason; a row consumed or swept since the read stays untouched. Returns
// whether a reservation went back to the pool.
func (s *Service) remove(ctx context.Context, causeID uuid.UUID, email string) (bool, error) {
	unlock := s.promoteLocks.Lock(causeID.String())
	defer unlock()

	var entry models.WaitlistEntry
	err := s.DB.WithContext(ctx).
		Where("cause_id = ? AND email = ? AND status IN ?", causeID, email, []string{models.WaitlistWaiting, models.WaitlistNotified}).
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return false, ErrEntryNotFound
	} else if err != nil {
		return false, err
	}

	result := s.DB.WithContext(ctx).
		Where("entry_id = ? AND status IN ?", entry.EntryID, []string{models.WaitlistWaiting, models.WaitlistNotified}).
		Delete(&models.WaitlistEntry{})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, ErrEntryNotFound
	}

	if entry.Status == models.WaitlistNotified && entry.ReservationID != nil {
		if err := s.Ledger.Release(ctx, *entry.ReservationID); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// TryPromote reserves one tote per waiting entry in position order until the
// pool runs out or the list is empty. Promoted entries get a single-use 48h
// magic-link token and the invite email; a failed send is logged and the
// promotion stands, since resending the link is always possible.
func (s *Service) TryPromote(ctx context.Context, causeID uuid.UUID) (int, error) {
	unlock := s.promoteLocks.Lock(causeID.String())
	defer unlock()

	promoted := 0
	for {
		var entry models.WaitlistEntry
		err := s.DB.WithContext(ctx).
			Where("cause_id = ? AND status = ?", causeID, models.WaitlistWaiting).
			Order("position ASC").
			First(&entry).Error
		if err == gorm.ErrRecordNotFound {
			break
		} else if err != nil {
			return promoted, err
		}

		res, err := s.Ledger.Reserve(ctx, causeID, 1)
		if err == inventory.ErrOutOfStock {
			break
		} else if err != nil {
			return promoted, err
		}

		token := randomHex(32)
		now := time.Now()
		expiresAt := now.Add(tokenExpiry)
		entry.Status = models.WaitlistNotified
		entry.MagicLinkToken = &token
		entry.TokenExpiresAt = &expiresAt
		entry.ReservationID = &res.ReservationID
		entry.NotifiedAt = &now
		if err := s.DB.WithContext(ctx).Save(&entry).Error; err != nil {
			// Entry untouched; give the tote back so it is not stranded.
			_ = s.Ledger.Release(ctx, res.ReservationID)
			return promoted, err
		}
		promoted++
		log.Info().Str("cause_id", causeID.String()).Int("position", entry.Position).Msg("Waitlist entry promoted")

		if s.Emails != nil {
			link := s.ClaimBaseURL + "/claim?token=" + token
			if err := s.Emails.SendWaitlistInvite(ctx, entry.Email, s.causeName(ctx, causeID), link); err != nil {
				log.Warn().Err(err).Str("entry_id", entry.EntryID.String()).Msg("Waitlist invite email failed; promotion kept")
			}
		}
	}
	return promoted, nil
}

// ValidateToken resolves a magic-link token without consuming it.
func (s *Service) ValidateToken(ctx context.Context, token string) (*models.WaitlistEntry, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	var entry models.WaitlistEntry
	if err := s.DB.WithContext(ctx).Where("magic_link_token = ?", token).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	switch entry.Status {
	case models.WaitlistClaimed:
		return nil, ErrTokenUsed
	case models.WaitlistExpired:
		return nil, ErrTokenExpired
	}
	if entry.TokenExpiresAt == nil || entry.TokenExpiresAt.Before(time.Now()) {
		return nil, ErrTokenExpired
	}
	return &entry, nil
}

// ConsumeToken marks a valid token's entry claimed and hands its reservation
// to the caller. Single-use: a second consume reports the token as used.
func (s *Service) ConsumeToken(ctx context.Context, token string) (*models.WaitlistEntry, error) {
	entry, err := s.ValidateToken(ctx, token)
	if err != nil {
		return nil, err
	}

	unlock := s.promoteLocks.Lock(entry.CauseID.String())
	defer unlock()

	result := s.DB.WithContext(ctx).Model(&models.WaitlistEntry{}).
		Where("entry_id = ? AND status = ?", entry.EntryID, models.WaitlistNotified).
		Update("status", models.WaitlistClaimed)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrTokenUsed
	}
	entry.Status = models.WaitlistClaimed
	return entry, nil
}

// SweepExpired expires notified entries whose token lapsed, releases their
// reservations and re-promotes, so a no-show never strands a tote.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	var lapsed []models.WaitlistEntry
	if err := s.DB.WithContext(ctx).
		Where("status = ? AND token_expires_at < ?", models.WaitlistNotified, time.Now()).
		Find(&lapsed).Error; err != nil {
		return 0, err
	}

	swept := 0
	for _, entry := range lapsed {
		result := s.DB.WithContext(ctx).Model(&models.WaitlistEntry{}).
			Where("entry_id = ? AND status = ?", entry.EntryID, models.WaitlistNotified).
			Update("status", models.WaitlistExpired)
		if result.Error != nil {
			return swept, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		if entry.ReservationID != nil {
			if err := s.Ledger.Release(ctx, *entry.ReservationID); err != nil {
				return swept, err
			}
		}
		swept++
		log.Info().Str("entry_id", entry.EntryID.String()).Int("position", entry.Position).Msg("Waitlist invite expired")
		if _, err := s.TryPromote(ctx, entry.CauseID); err != nil {
			return swept, err
		}
	}
	return swept, nil
}

// ListByCause returns a cause's entries in position order (admin view).
func (s *Service) ListByCause(ctx context.Context, causeID uuid.UUID) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	if err := s.DB.WithContext(ctx).
		Where("cause_id = ?", causeID).
		Order("position ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) causeName(ctx context.Context, causeID uuid.UUID) string {
	var cause models.Cause
	if err := s.DB.WithContext(ctx).Where("cause_id = ?", causeID).First(&cause).Error; err != nil {
		return "a cause"
	}
	return cause.Name
}

func randomHex(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}
