package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Coupon is the reward for a full card, 1:1 with the card it redeemed.
// The unique index on StampCardID settles races between concurrent issue
// attempts; IsUsed is an administrative audit flag.
type Coupon struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	StampCardID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"stamp_card_id"`
	Code        string    `gorm:"unique;not null" json:"code"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	IsUsed      bool      `gorm:"not null;default:false" json:"is_used"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (coupon *Coupon) BeforeCreate(tx *gorm.DB) (err error) {
	if coupon.ID == uuid.Nil {
		coupon.ID = uuid.New()
	}
	return
}
