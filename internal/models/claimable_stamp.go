package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ClaimableStamp is a shareable redemption code bound to one event.
// CurrentUses only moves up, and only inside a committed redemption.
type ClaimableStamp struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ClaimCode   string    `gorm:"unique;not null" json:"claim_code"`
	EventID     uuid.UUID `gorm:"type:uuid;not null;index" json:"event_id"`
	Event       *Event    `gorm:"foreignKey:EventID" json:"event,omitempty"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	MaxUses     *int      `json:"max_uses,omitempty"` // nil = unlimited
	CurrentUses int       `gorm:"not null;default:0" json:"current_uses"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (claim *ClaimableStamp) BeforeCreate(tx *gorm.DB) (err error) {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	return
}
