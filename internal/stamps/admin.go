package stamps

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/events"
	"github.com/nayoung-dev/stamprally/internal/models"
	"github.com/nayoung-dev/stamprally/internal/notify"
)

// Admin bundles the operator-side mutations. These paths funnel through
// the same capacity and coupon-attachment guards as user redemptions; no
// admin operation may bypass the card invariants.
type Admin struct {
	store   *Store
	cards   *CardManager
	catalog events.Catalog
	sink    notify.Sink
	log     *logrus.Logger
	now     func() time.Time
}

func NewAdmin(store *Store, cards *CardManager, catalog events.Catalog, sink notify.Sink, log *logrus.Logger) *Admin {
	return &Admin{store: store, cards: cards, catalog: catalog, sink: sink, log: log, now: time.Now}
}

// GrantStamp appends a note-labeled entry to the user's active card.
func (a *Admin) GrantStamp(ctx context.Context, userID uuid.UUID, note string) (RedeemResult, error) {
	var result RedeemResult
	err := a.store.Tx(ctx, func(tx *gorm.DB) error {
		card, err := a.cards.activeCardTx(tx, userID)
		if err != nil {
			return err
		}

		count, err := a.store.countEntries(tx, card.ID)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if count >= models.CardCapacity {
			return ErrCardFull
		}

		entry := models.StampEntry{
			StampCardID: card.ID,
			UserID:      userID,
			AdminNote:   &note,
		}
		if err := a.store.createEntry(tx, &entry); err != nil {
			return fmt.Errorf("create entry: %w", err)
		}

		result = RedeemResult{
			CardID:     card.ID,
			EntryCount: count + 1,
			Remaining:  models.CardCapacity - (count + 1),
			CardFull:   count+1 == models.CardCapacity,
		}
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.sink.NotifyStampAcquired(nctx, userID.String(), note, result.EntryCount, result.Remaining); err != nil {
			a.log.WithError(err).WithField("user_id", userID).Warn("stamp notification failed")
		}
	}()
	return result, nil
}

// EnrollmentOutcome reports one participant of a batch enrollment.
type EnrollmentOutcome struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // stamped, duplicate, card_full, user_not_found, error
}

// EnrollParticipants stamps every listed participant for an event. Each
// participant is its own transaction; one user's rejection never unwinds
// another's stamp.
func (a *Admin) EnrollParticipants(ctx context.Context, eventID uuid.UUID, userIDs []uuid.UUID) ([]EnrollmentOutcome, error) {
	if _, err := a.catalog.GetEvent(ctx, eventID); err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	outcomes := make([]EnrollmentOutcome, 0, len(userIDs))
	for _, userID := range userIDs {
		err := a.store.Tx(ctx, func(tx *gorm.DB) error {
			card, err := a.cards.activeCardTx(tx, userID)
			if err != nil {
				return err
			}
			count, err := a.store.countEntries(tx, card.ID)
			if err != nil {
				return err
			}
			if count >= models.CardCapacity {
				return ErrCardFull
			}
			entry := models.StampEntry{
				StampCardID: card.ID,
				UserID:      userID,
				EventID:     &eventID,
			}
			if err := a.store.createEntry(tx, &entry); err != nil {
				if isDuplicate(err) {
					return ErrDuplicateStampForEvent
				}
				return err
			}
			return nil
		})

		outcomes = append(outcomes, EnrollmentOutcome{UserID: userID, Status: enrollStatus(err)})
		if err != nil && !IsRejection(err) {
			a.log.WithError(err).WithField("user_id", userID).Warn("enrollment failed")
		}
	}
	return outcomes, nil
}

func enrollStatus(err error) string {
	switch {
	case err == nil:
		return "stamped"
	case errors.Is(err, ErrDuplicateStampForEvent):
		return "duplicate"
	case errors.Is(err, ErrCardFull):
		return "card_full"
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}

// CreateClaimCode mints a redemption code for an event. A nil expiry
// defaults to the event's end date; a nil maxUses means unlimited.
func (a *Admin) CreateClaimCode(ctx context.Context, eventID uuid.UUID, maxUses *int, expiresAt *time.Time) (*models.ClaimableStamp, error) {
	info, err := a.catalog.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	expiry := info.EndDate
	if expiresAt != nil {
		expiry = *expiresAt
	}

	var claim models.ClaimableStamp
	err = a.store.Tx(ctx, func(tx *gorm.DB) error {
		for attempt := 0; attempt < 2; attempt++ {
			code, err := generateCode("STMP")
			if err != nil {
				return err
			}
			claim = models.ClaimableStamp{
				ClaimCode: code,
				EventID:   eventID,
				ExpiresAt: expiry,
				MaxUses:   maxUses,
			}
			err = tx.Create(&claim).Error
			if err == nil {
				return nil
			}
			if !isDuplicate(err) {
				return fmt.Errorf("create claim code: %w", err)
			}
		}
		return fmt.Errorf("create claim code: code collision persisted")
	})
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// DeleteEntry removes a stamp entry unless its card already has a coupon.
func (a *Admin) DeleteEntry(ctx context.Context, entryID uuid.UUID) error {
	return a.store.Tx(ctx, func(tx *gorm.DB) error {
		var entry models.StampEntry
		if err := lockForUpdate(tx).Where("id = ?", entryID).First(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("find entry: %w", err)
		}

		if err := a.requireNoCoupon(tx, entry.StampCardID); err != nil {
			return err
		}

		return tx.Delete(&models.StampEntry{}, "id = ?", entryID).Error
	})
}

// DeleteCard removes a card and its entries unless a coupon is attached.
func (a *Admin) DeleteCard(ctx context.Context, cardID uuid.UUID) error {
	return a.store.Tx(ctx, func(tx *gorm.DB) error {
		var card models.StampCard
		if err := lockForUpdate(tx).Where("id = ?", cardID).First(&card).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return fmt.Errorf("find card: %w", err)
		}

		if err := a.requireNoCoupon(tx, cardID); err != nil {
			return err
		}

		if err := tx.Delete(&models.StampEntry{}, "stamp_card_id = ?", cardID).Error; err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		return tx.Delete(&models.StampCard{}, "id = ?", cardID).Error
	})
}

func (a *Admin) requireNoCoupon(tx *gorm.DB, cardID uuid.UUID) error {
	_, err := a.store.couponForCard(tx, cardID)
	if err == nil {
		return ErrCouponAttached
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check coupon: %w", err)
	}
	return nil
}

// MarkEntriesViewed flips the read flag on the caller's own entries.
// View state is UI bookkeeping, never part of ledger correctness.
func (a *Admin) MarkEntriesViewed(ctx context.Context, userID uuid.UUID, entryIDs []uuid.UUID) (int, error) {
	if len(entryIDs) == 0 {
		return 0, nil
	}
	result := a.store.DB().WithContext(ctx).
		Model(&models.StampEntry{}).
		Where("id IN ? AND user_id = ?", entryIDs, userID).
		Update("is_viewed", true)
	if result.Error != nil {
		return 0, fmt.Errorf("mark viewed: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
