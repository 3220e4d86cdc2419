package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Waitlist entry statuses.
const (
	WaitlistWaiting  = "waiting"
	WaitlistNotified = "notified"
	WaitlistClaimed  = "claimed"
	WaitlistExpired  = "expired"
)

// WaitlistEntry is one identity's place in line for a cause. Position is
// assigned at join time and never renumbered; gaps are fine. A notified entry
// holds a reservation and a single-use magic-link token until the token
// expires or the claim completes.
type WaitlistEntry struct {
	EntryID        uuid.UUID      `gorm:"column:entry_id;type:uuid;primaryKey" json:"entry_id"`
	CauseID        uuid.UUID      `gorm:"column:cause_id;type:uuid;not null;index" json:"cause_id"`
	Email          string         `gorm:"column:email;not null;index" json:"email"`
	Position       int            `gorm:"column:position;not null" json:"position"`
	Status         string         `gorm:"column:status;not null;default:'waiting'" json:"status"`
	MagicLinkToken *string        `gorm:"column:magic_link_token;index" json:"-"`
	TokenExpiresAt *time.Time     `gorm:"column:token_expires_at" json:"token_expires_at"`
	ReservationID  *uuid.UUID     `gorm:"column:reservation_id;type:uuid" json:"-"`
	NotifiedAt     *time.Time     `gorm:"column:notified_at" json:"notified_at"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (WaitlistEntry) TableName() string {
	return "WaitlistEntries"
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.EntryID == uuid.Nil {
		w.EntryID = uuid.New()
	}
	return nil
}
