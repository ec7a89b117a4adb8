package stamps

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/models"
)

// Queries are the read-only views served to users. They run outside any
// transaction; redemption-time decisions never trust them.
type Queries struct {
	store *Store
}

func NewQueries(store *Store) *Queries {
	return &Queries{store: store}
}

// ActiveCard returns the user's active card with its entries, or
// ErrNoActiveCard when none exists yet.
func (q *Queries) ActiveCard(ctx context.Context, userID uuid.UUID) (*models.StampCard, error) {
	var card models.StampCard
	err := q.store.DB().WithContext(ctx).
		Preload("Entries", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Entries.Event").
		Where("user_id = ? AND is_redeemed = ?", userID, false).
		First(&card).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoActiveCard
		}
		return nil, fmt.Errorf("load active card: %w", err)
	}
	return &card, nil
}

// Coupons lists the coupons issued on the user's cards, newest first.
func (q *Queries) Coupons(ctx context.Context, userID uuid.UUID, limit int) ([]models.Coupon, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var coupons []models.Coupon
	err := q.store.DB().WithContext(ctx).
		Joins("JOIN stamp_cards ON stamp_cards.id = coupons.stamp_card_id").
		Where("stamp_cards.user_id = ?", userID).
		Order("coupons.created_at DESC").
		Limit(limit).
		Find(&coupons).Error
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}
