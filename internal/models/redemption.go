package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Redemption records that one user consumed one claim code. The composite
// unique index is the final guard against double redemption, independent of
// the code's use limit.
type Redemption struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ClaimableStampID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_redemptions_claim_user" json:"claimable_stamp_id"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_redemptions_claim_user" json:"user_id"`
	RedeemedAt       time.Time `gorm:"not null" json:"redeemed_at"`
}

func (r *Redemption) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return
}
