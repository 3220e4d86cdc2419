package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation statuses. Commit and release are idempotent: repeating either
// on an already-resolved reservation is a no-op.
const (
	ReservationHeld      = "held"
	ReservationCommitted = "committed"
	ReservationReleased  = "released"
)

// Reservation is a temporary exclusive hold on inventory units of a cause.
// The row id doubles as the reservation token handed to callers.
type Reservation struct {
	ReservationID uuid.UUID `gorm:"column:reservation_id;type:uuid;primaryKey" json:"reservation_id"`
	CauseID       uuid.UUID `gorm:"column:cause_id;type:uuid;not null;index" json:"cause_id"`
	Quantity      int       `gorm:"column:quantity;not null;default:1" json:"quantity"`
	Status        string    `gorm:"column:status;not null;default:'held'" json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Reservation) TableName() string {
	return "Reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ReservationID == uuid.Nil {
		r.ReservationID = uuid.New()
	}
	return nil
}
