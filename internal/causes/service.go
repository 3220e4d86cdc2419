package causes

import (
	"context"
	"errors"

	"carrykind-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrCauseNotFound = errors.New("Cause not found")
var ErrNameRequired = errors.New("Cause name is required")

// Service manages cause publication. Tote counters belong to the inventory
// ledger; this service never touches them.
type Service struct {
	DB *gorm.DB
}

type CreateInput struct {
	Name        string
	Description string
	IsOnline    bool
}

// Create publishes a cause with an empty pool; sponsorship approvals fund it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Cause, error) {
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	cause := &models.Cause{
		Name:        in.Name,
		Description: in.Description,
		IsOnline:    in.IsOnline,
	}
	if err := s.DB.WithContext(ctx).Create(cause).Error; err != nil {
		return nil, err
	}
	return cause, nil
}

// List returns causes, optionally only those visible to claimants.
func (s *Service) List(ctx context.Context, onlineOnly bool) ([]models.Cause, error) {
	q := s.DB.WithContext(ctx).Model(&models.Cause{})
	if onlineOnly {
		q = q.Where("is_online = ?", true)
	}
	var causes []models.Cause
	if err := q.Order("created_at DESC").Find(&causes).Error; err != nil {
		return nil, err
	}
	return causes, nil
}

// View returns one cause with its live counters.
func (s *Service) View(ctx context.Context, causeID uuid.UUID) (*models.Cause, error) {
	var cause models.Cause
	if err := s.DB.WithContext(ctx).Where("cause_id = ?", causeID).First(&cause).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrCauseNotFound
		}
		return nil, err
	}
	return &cause, nil
}

// SetOnline toggles claimant visibility.
func (s *Service) SetOnline(ctx context.Context, causeID uuid.UUID, online bool) (*models.Cause, error) {
	cause, err := s.View(ctx, causeID)
	if err != nil {
		return nil, err
	}
	cause.IsOnline = online
	if err := s.DB.WithContext(ctx).Save(cause).Error; err != nil {
		return nil, err
	}
	return cause, nil
}
