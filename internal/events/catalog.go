// Package events exposes the event catalog consumed by the stamp core:
// names for notifications and end dates for claim-code expiry defaults.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/models"
)

var ErrNotFound = errors.New("event not found")

// Info is the catalog's view of an event.
type Info struct {
	ID      uuid.UUID
	Name    string
	EndDate time.Time
}

// Catalog looks up events for the stamp core.
type Catalog interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (Info, error)
}

// GormCatalog serves the catalog from the events table.
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) GetEvent(ctx context.Context, eventID uuid.UUID) (Info, error) {
	var event models.Event
	err := c.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Info{}, ErrNotFound
		}
		return Info{}, fmt.Errorf("get event: %w", err)
	}
	return Info{ID: event.ID, Name: event.Name, EndDate: event.EndDate}, nil
}
