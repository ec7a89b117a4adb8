package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StampEntry is one unit of credit on a card. Exactly one of EventID and
// AdminNote is meaningful: event stamps come from redemptions or batch
// enrollment, note stamps from direct admin grants. The composite unique
// index blocks a second stamp for the same event on the same card; NULL
// event ids (admin grants) never collide.
type StampEntry struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	StampCardID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_stamp_entries_card_event" json:"stamp_card_id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	EventID     *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_stamp_entries_card_event" json:"event_id,omitempty"`
	Event       *Event     `gorm:"foreignKey:EventID" json:"event,omitempty"`
	AdminNote   *string    `json:"admin_note,omitempty"`
	IsViewed    bool       `gorm:"not null;default:false" json:"is_viewed"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (entry *StampEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	return
}
