package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Ledger event types, one per inventory operation.
const (
	LedgerReserved  = "RESERVED"
	LedgerCommitted = "COMMITTED"
	LedgerReleased  = "RELEASED"
	LedgerGrown     = "GROWN"
	LedgerShrunk    = "SHRUNK"
)

// LedgerEvent is the append-only audit trail of inventory mutations.
type LedgerEvent struct {
	EventID       uuid.UUID      `gorm:"column:event_id;type:uuid;primaryKey" json:"event_id"`
	CauseID       uuid.UUID      `gorm:"column:cause_id;type:uuid;not null;index" json:"cause_id"`
	EventType     string         `gorm:"column:event_type;not null" json:"event_type"`
	ReservationID *uuid.UUID     `gorm:"column:reservation_id;type:uuid" json:"reservation_id"`
	EventData     datatypes.JSON `gorm:"column:event_data" json:"event_data"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (LedgerEvent) TableName() string {
	return "LedgerEvents"
}

func (e *LedgerEvent) BeforeCreate(tx *gorm.DB) error {
	if e.EventID == uuid.Nil {
		e.EventID = uuid.New()
	}
	return nil
}
