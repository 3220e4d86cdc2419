package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sponsorship statuses. Transitions are one-way: pending → approved|rejected,
// approved → ended. A rejected sponsorship requires a new submission.
const (
	SponsorshipPending  = "pending"
	SponsorshipApproved = "approved"
	SponsorshipRejected = "rejected"
	SponsorshipEnded    = "ended"
)

// Logo review statuses (sponsor resubmission flow is handled by the frontend).
const (
	LogoPending  = "pending"
	LogoApproved = "approved"
	LogoRejected = "rejected"
)

// Sponsorship is a funded commitment of N totes to a cause, subject to admin
// approval. UnrecoveredTotes records the shortfall when a campaign ends with
// more totes claimed than the sponsorship could take back.
type Sponsorship struct {
	SponsorshipID    uuid.UUID      `gorm:"column:sponsorship_id;type:uuid;primaryKey" json:"sponsorship_id"`
	CauseID          uuid.UUID      `gorm:"column:cause_id;type:uuid;not null;index" json:"cause_id"`
	SponsorName      string         `gorm:"column:sponsor_name;not null" json:"sponsor_name"`
	SponsorEmail     string         `gorm:"column:sponsor_email;not null" json:"sponsor_email"`
	ToteQuantity     int            `gorm:"column:tote_quantity;not null" json:"tote_quantity"`
	Status           string         `gorm:"column:status;not null;default:'pending'" json:"status"`
	LogoStatus       string         `gorm:"column:logo_status;not null;default:'pending'" json:"logo_status"`
	RejectReason     *string        `gorm:"column:reject_reason" json:"reject_reason"`
	UnrecoveredTotes int            `gorm:"column:unrecovered_totes;not null;default:0" json:"unrecovered_totes"`
	ApprovedAt       *time.Time     `gorm:"column:approved_at" json:"approved_at"`
	EndedAt          *time.Time     `gorm:"column:ended_at" json:"ended_at"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Sponsorship) TableName() string {
	return "Sponsorships"
}

func (s *Sponsorship) BeforeCreate(tx *gorm.DB) error {
	if s.SponsorshipID == uuid.Nil {
		s.SponsorshipID = uuid.New()
	}
	return nil
}
