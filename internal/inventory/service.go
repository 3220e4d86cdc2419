package inventory

import (
	"context"
	"encoding/json"

	"carrykind-backend/internal/models"
	"carrykind-backend/internal/pkg/locks"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the per-cause tote ledger. Reserve holds units without claiming
// them so a slow verification never blocks other claimants; Commit and
// Release resolve the hold and are idempotent. All counter mutations for a
// cause run under that cause's mutex plus a DB transaction, so reserve,
// commit, release, grow and shrink are linearizable per cause while
// unrelated causes never contend.
type Service struct {
	DB    *gorm.DB
	locks *locks.PerKey
}

func NewService(db *gorm.DB) *Service {
	return &Service{DB: db, locks: locks.NewPerKey()}
}

// ShrinkResult reports how much a shrink actually removed. Shortfall > 0
// means that many totes were already claimed or reserved and stay out.
type ShrinkResult struct {
	Removed   int `json:"removed"`
	Shortfall int `json:"shortfall"`
}

// Reserve atomically moves n totes from available to reserved and returns the
// reservation. Fails with ErrOutOfStock (no side effects) when fewer than n
// are available.
func (s *Service) Reserve(ctx context.Context, causeID uuid.UUID, n int) (*models.Reservation, error) {
	unlock := s.locks.Lock(causeID.String())
	defer unlock()

	var res *models.Reservation
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cause, err := loadCause(tx, causeID)
		if err != nil {
			return err
		}
		if cause.AvailableTotes < n {
			return ErrOutOfStock
		}
		cause.AvailableTotes -= n
		cause.ReservedTotes += n
		if err := checkCounters(cause); err != nil {
			return err
		}
		if err := tx.Save(cause).Error; err != nil {
			return err
		}
		res = &models.Reservation{CauseID: causeID, Quantity: n, Status: models.ReservationHeld}
		if err := tx.Create(res).Error; err != nil {
			return err
		}
		return appendEvent(tx, causeID, models.LedgerReserved, &res.ReservationID, map[string]interface{}{
			"quantity":  n,
			"available": cause.AvailableTotes,
			"reserved":  cause.ReservedTotes,
		})
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("cause_id", causeID.String()).Str("reservation_id", res.ReservationID.String()).Int("quantity", n).Msg("Totes reserved")
	return res, nil
}

// Commit moves a held reservation's units from reserved to claimed.
// Committing an already-committed reservation is a no-op; committing a
// released one is refused.
func (s *Service) Commit(ctx context.Context, reservationID uuid.UUID) error {
	res, err := s.findReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(res.CauseID.String())
	defer unlock()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
			return err
		}
		switch r.Status {
		case models.ReservationCommitted:
			return nil
		case models.ReservationReleased:
			return ErrReservationReleased
		}
		cause, err := loadCause(tx, r.CauseID)
		if err != nil {
			return err
		}
		cause.ReservedTotes -= r.Quantity
		cause.ClaimedTotes += r.Quantity
		if err := checkCounters(cause); err != nil {
			return err
		}
		if err := tx.Save(cause).Error; err != nil {
			return err
		}
		r.Status = models.ReservationCommitted
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		return appendEvent(tx, r.CauseID, models.LedgerCommitted, &r.ReservationID, map[string]interface{}{
			"quantity": r.Quantity,
			"claimed":  cause.ClaimedTotes,
			"reserved": cause.ReservedTotes,
		})
	})
}

// Release returns a held reservation's units to the pool. Idempotent: a
// reservation that is no longer held (already released or committed) is left
// untouched, so a timeout sweep racing a user cancel cannot double-credit.
func (s *Service) Release(ctx context.Context, reservationID uuid.UUID) error {
	res, err := s.findReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	unlock := s.locks.Lock(res.CauseID.String())
	defer unlock()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r models.Reservation
		if err := tx.Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
			return err
		}
		if r.Status != models.ReservationHeld {
			return nil
		}
		cause, err := loadCause(tx, r.CauseID)
		if err != nil {
			return err
		}
		cause.ReservedTotes -= r.Quantity
		cause.AvailableTotes += r.Quantity
		if err := checkCounters(cause); err != nil {
			return err
		}
		if err := tx.Save(cause).Error; err != nil {
			return err
		}
		r.Status = models.ReservationReleased
		if err := tx.Save(&r).Error; err != nil {
			return err
		}
		return appendEvent(tx, r.CauseID, models.LedgerReleased, &r.ReservationID, map[string]interface{}{
			"quantity":  r.Quantity,
			"available": cause.AvailableTotes,
			"reserved":  cause.ReservedTotes,
		})
	})
}

// Grow adds n totes to a cause's pool (sponsorship approved).
func (s *Service) Grow(ctx context.Context, causeID uuid.UUID, n int) error {
	unlock := s.locks.Lock(causeID.String())
	defer unlock()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cause, err := loadCause(tx, causeID)
		if err != nil {
			return err
		}
		cause.TotalTotes += n
		cause.AvailableTotes += n
		if err := checkCounters(cause); err != nil {
			return err
		}
		if err := tx.Save(cause).Error; err != nil {
			return err
		}
		return appendEvent(tx, causeID, models.LedgerGrown, nil, map[string]interface{}{
			"quantity":  n,
			"total":     cause.TotalTotes,
			"available": cause.AvailableTotes,
		})
	})
	if err != nil {
		return err
	}
	log.Info().Str("cause_id", causeID.String()).Int("quantity", n).Msg("Tote pool grown")
	return nil
}

// Shrink removes up to n totes (sponsorship ended). It removes
// min(n, available) and reports the shortfall; claimed and reserved units are
// never taken back.
func (s *Service) Shrink(ctx context.Context, causeID uuid.UUID, n int) (ShrinkResult, error) {
	unlock := s.locks.Lock(causeID.String())
	defer unlock()

	var result ShrinkResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cause, err := loadCause(tx, causeID)
		if err != nil {
			return err
		}
		removed := n
		if cause.AvailableTotes < removed {
			removed = cause.AvailableTotes
		}
		cause.TotalTotes -= removed
		cause.AvailableTotes -= removed
		if err := checkCounters(cause); err != nil {
			return err
		}
		if err := tx.Save(cause).Error; err != nil {
			return err
		}
		result = ShrinkResult{Removed: removed, Shortfall: n - removed}
		return appendEvent(tx, causeID, models.LedgerShrunk, nil, map[string]interface{}{
			"requested": n,
			"removed":   removed,
			"shortfall": result.Shortfall,
			"total":     cause.TotalTotes,
			"available": cause.AvailableTotes,
		})
	})
	if err != nil {
		return ShrinkResult{}, err
	}
	if result.Shortfall > 0 {
		log.Warn().Str("cause_id", causeID.String()).Int("shortfall", result.Shortfall).Msg("Shrink left unrecovered totes")
	}
	return result, nil
}

func (s *Service) findReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	var r models.Reservation
	if err := s.DB.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&r).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	return &r, nil
}

func loadCause(tx *gorm.DB, causeID uuid.UUID) (*models.Cause, error) {
	var cause models.Cause
	if err := tx.Where("cause_id = ?", causeID).First(&cause).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCauseNotFound
		}
		return nil, err
	}
	return &cause, nil
}

// checkCounters refuses to persist negative or mismatched counters. Failing
// the transaction here is the fail-closed path for any ledger bug.
func checkCounters(c *models.Cause) error {
	if c.TotalTotes < 0 || c.ClaimedTotes < 0 || c.AvailableTotes < 0 || c.ReservedTotes < 0 {
		return ErrInvariantViolation
	}
	if c.TotalTotes != c.ClaimedTotes+c.AvailableTotes+c.ReservedTotes {
		return ErrInvariantViolation
	}
	return nil
}

func appendEvent(tx *gorm.DB, causeID uuid.UUID, eventType string, reservationID *uuid.UUID, payload map[string]interface{}) error {
	b, _ := json.Marshal(payload)
	return tx.Create(&models.LedgerEvent{
		CauseID:       causeID,
		EventType:     eventType,
		ReservationID: reservationID,
		EventData:     datatypes.JSON(b),
	}).Error
}
