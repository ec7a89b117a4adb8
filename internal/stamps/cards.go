package stamps

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/models"
)

// CardManager resolves the active (non-redeemed) card of a user, creating
// one lazily on first use. Creation is race-safe: the partial unique index
// on (user_id) WHERE is_redeemed = false settles concurrent creates, and
// the loser adopts the winner's card.
type CardManager struct {
	store *Store
}

func NewCardManager(store *Store) *CardManager {
	return &CardManager{store: store}
}

// GetOrCreateActiveCard returns the user's active card id.
func (m *CardManager) GetOrCreateActiveCard(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var cardID uuid.UUID
	err := m.store.Tx(ctx, func(tx *gorm.DB) error {
		card, err := m.activeCardTx(tx, userID)
		if err != nil {
			return err
		}
		cardID = card.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return cardID, nil
}

// CountEntries returns the entry count of a card.
func (m *CardManager) CountEntries(ctx context.Context, cardID uuid.UUID) (int, error) {
	return m.store.countEntries(m.store.DB().WithContext(ctx), cardID)
}

// activeCardTx is the in-transaction get-or-create. The returned card row
// is locked on postgres, serializing capacity checks for the same user.
func (m *CardManager) activeCardTx(tx *gorm.DB, userID uuid.UUID) (*models.StampCard, error) {
	card, err := m.store.findActiveCard(tx, userID)
	if err == nil {
		return card, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find active card: %w", err)
	}

	if err := m.store.userExists(tx, userID); err != nil {
		return nil, err
	}

	card, err = m.store.createCard(tx, userID)
	if err == nil {
		return card, nil
	}
	if !isDuplicate(err) {
		return nil, fmt.Errorf("create card: %w", err)
	}

	// A concurrent request created the active card first; use theirs.
	card, err = m.store.findActiveCard(tx, userID)
	if err != nil {
		return nil, fmt.Errorf("refetch active card: %w", err)
	}
	return card, nil
}
