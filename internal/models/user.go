package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

type User struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	PhoneNumber string      `gorm:"unique;not null" json:"phone_number"`
	Nickname    string      `json:"nickname"`
	Status      string      `gorm:"not null;default:'active'" json:"status"`
	Cards       []StampCard `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) (err error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return
}
