package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cause is a campaign totes are distributed for. The four counters form the
// ledger: total_totes == claimed_totes + available_totes + reserved_totes.
// Counters are mutated only through the inventory ledger, never directly.
type Cause struct {
	CauseID        uuid.UUID      `gorm:"column:cause_id;type:uuid;primaryKey" json:"cause_id"`
	Name           string         `gorm:"column:name;not null" json:"name"`
	Description    string         `gorm:"column:description" json:"description"`
	TotalTotes     int            `gorm:"column:total_totes;not null;default:0" json:"total_totes"`
	ClaimedTotes   int            `gorm:"column:claimed_totes;not null;default:0" json:"claimed_totes"`
	AvailableTotes int            `gorm:"column:available_totes;not null;default:0" json:"available_totes"`
	ReservedTotes  int            `gorm:"column:reserved_totes;not null;default:0" json:"reserved_totes"`
	IsOnline       bool           `gorm:"column:is_online;not null;default:false" json:"is_online"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Cause) TableName() string {
	return "Causes"
}

func (c *Cause) BeforeCreate(tx *gorm.DB) error {
	if c.CauseID == uuid.Nil {
		c.CauseID = uuid.New()
	}
	return nil
}
