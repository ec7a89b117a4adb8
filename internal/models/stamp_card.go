package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CardCapacity is the number of entries that fill a stamp card.
const CardCapacity = 10

// StampCard holds up to CardCapacity entries for one user. A user has at
// most one card with IsRedeemed = false; the partial unique index below is
// the arbiter when two requests race on card creation.
type StampCard struct {
	ID         uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;index:idx_stamp_cards_active_user,unique,where:is_redeemed = false" json:"user_id"`
	User       *User        `gorm:"foreignKey:UserID" json:"-"`
	IsRedeemed bool         `gorm:"not null;default:false" json:"is_redeemed"`
	Entries    []StampEntry `gorm:"foreignKey:StampCardID" json:"entries,omitempty"`
	Coupon     *Coupon      `gorm:"foreignKey:StampCardID" json:"coupon,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (card *StampCard) BeforeCreate(tx *gorm.DB) (err error) {
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	return
}
