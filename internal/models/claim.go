package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Claim entry channels.
const (
	ChannelDirect      = "direct"
	ChannelQR          = "qr"
	ChannelMagicLink   = "magic-link"
	ChannelSponsorLink = "sponsor-link"
	ChannelWaitlist    = "waitlist"
)

// Claim statuses. reserved → pending-verification → verified → shipped →
// delivered; cancelled/expired are reachable from reserved and
// pending-verification only.
const (
	ClaimReserved            = "reserved"
	ClaimPendingVerification = "pending-verification"
	ClaimVerified            = "verified"
	ClaimShipped             = "shipped"
	ClaimDelivered           = "delivered"
	ClaimCancelled           = "cancelled"
	ClaimExpired             = "expired"
)

// Claim is one identity's request for one tote from a cause. While active it
// exclusively owns the reservation referenced by ReservationID.
type Claim struct {
	ClaimID       uuid.UUID      `gorm:"column:claim_id;type:uuid;primaryKey" json:"claim_id"`
	CauseID       uuid.UUID      `gorm:"column:cause_id;type:uuid;not null;index" json:"cause_id"`
	Email         string         `gorm:"column:email;not null;index" json:"email"`
	Channel       string         `gorm:"column:channel;not null" json:"channel"`
	Status        string         `gorm:"column:status;not null;default:'reserved'" json:"status"`
	ReservationID *uuid.UUID     `gorm:"column:reservation_id;type:uuid" json:"reservation_id"`
	ChallengeID   *string        `gorm:"column:challenge_id" json:"-"`
	ResendCount   int            `gorm:"column:resend_count;not null;default:0" json:"resend_count"`
	VerifiedAt    *time.Time     `gorm:"column:verified_at" json:"verified_at"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Claim) TableName() string {
	return "Claims"
}

func (c *Claim) BeforeCreate(tx *gorm.DB) error {
	if c.ClaimID == uuid.Nil {
		c.ClaimID = uuid.New()
	}
	return nil
}

// ActiveClaimStatuses are the non-terminal statuses counted by the
// one-claim-per-identity-per-cause rule.
var ActiveClaimStatuses = []string{
	ClaimReserved, ClaimPendingVerification, ClaimVerified, ClaimShipped, ClaimDelivered,
}
