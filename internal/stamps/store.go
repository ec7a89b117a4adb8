package stamps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nayoung-dev/stamprally/internal/models"
)

// Store is the ledger's data access layer. It carries no business policy;
// the schema-level unique constraints do the arbitration and every
// violation is translated into the matching typed rejection by the callers.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Tx runs fn inside one transaction. A returned error rolls back fully;
// partial state is never observable outside the closure.
func (s *Store) Tx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

// DB exposes the underlying handle for read-only queries that need no
// transaction boundary.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// lockForUpdate adds FOR UPDATE on postgres. SQLite serializes writers on
// its own and rejects the clause, so it is a postgres-only hint.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// isDuplicate reports a unique-constraint violation. Requires the
// connection to be opened with gorm's TranslateError.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func (s *Store) findActiveCard(tx *gorm.DB, userID uuid.UUID) (*models.StampCard, error) {
	var card models.StampCard
	err := lockForUpdate(tx).
		Where("user_id = ? AND is_redeemed = ?", userID, false).
		First(&card).Error
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *Store) createCard(tx *gorm.DB, userID uuid.UUID) (*models.StampCard, error) {
	card := models.StampCard{UserID: userID}
	if err := tx.Create(&card).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (s *Store) countEntries(tx *gorm.DB, cardID uuid.UUID) (int, error) {
	var count int64
	err := tx.Model(&models.StampEntry{}).
		Where("stamp_card_id = ?", cardID).
		Count(&count).Error
	return int(count), err
}

func (s *Store) createEntry(tx *gorm.DB, entry *models.StampEntry) error {
	return tx.Create(entry).Error
}

func (s *Store) findClaimCode(tx *gorm.DB, code string) (*models.ClaimableStamp, error) {
	var claim models.ClaimableStamp
	err := lockForUpdate(tx).Where("claim_code = ?", code).First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// incrementUsage bumps current_uses atomically, refusing to pass max_uses.
// Zero rows affected means the ceiling was hit by a concurrent redemption.
func (s *Store) incrementUsage(tx *gorm.DB, claimID uuid.UUID) error {
	result := tx.Model(&models.ClaimableStamp{}).
		Where("id = ? AND (max_uses IS NULL OR current_uses < max_uses)", claimID).
		Update("current_uses", gorm.Expr("current_uses + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrCodeExhausted
	}
	return nil
}

func (s *Store) createRedemption(tx *gorm.DB, claimID, userID uuid.UUID, at time.Time) error {
	redemption := models.Redemption{
		ClaimableStampID: claimID,
		UserID:           userID,
		RedeemedAt:       at,
	}
	return tx.Create(&redemption).Error
}

func (s *Store) hasRedemption(tx *gorm.DB, claimID, userID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&models.Redemption{}).
		Where("claimable_stamp_id = ? AND user_id = ?", claimID, userID).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) createCoupon(tx *gorm.DB, coupon *models.Coupon) error {
	return tx.Create(coupon).Error
}

// markCardRedeemed flips is_redeemed exactly once. Zero rows affected means
// another transaction already closed the card.
func (s *Store) markCardRedeemed(tx *gorm.DB, cardID uuid.UUID) error {
	result := tx.Model(&models.StampCard{}).
		Where("id = ? AND is_redeemed = ?", cardID, false).
		Update("is_redeemed", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNoActiveCard
	}
	return nil
}

func (s *Store) couponForCard(tx *gorm.DB, cardID uuid.UUID) (*models.Coupon, error) {
	var coupon models.Coupon
	err := tx.Where("stamp_card_id = ?", cardID).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (s *Store) userExists(tx *gorm.DB, userID uuid.UUID) error {
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}
