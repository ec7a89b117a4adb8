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
	"github.com/nayoung-dev/stamprally/internal/metrics"
	"github.com/nayoung-dev/stamprally/internal/models"
	"github.com/nayoung-dev/stamprally/internal/notify"
)

// RedeemResult reports a successful redemption.
type RedeemResult struct {
	CardID     uuid.UUID `json:"card_id"`
	EntryCount int       `json:"entry_count"`
	Remaining  int       `json:"remaining"`
	CardFull   bool      `json:"card_full"`
}

// Engine validates and applies claim-code redemptions. Each redemption is
// one transaction; the unique constraints on stamp entries and redemptions
// are the final arbiter when concurrent attempts race past the pre-checks.
type Engine struct {
	store   *Store
	cards   *CardManager
	catalog events.Catalog
	sink    notify.Sink
	log     *logrus.Logger
	now     func() time.Time
}

func NewEngine(store *Store, cards *CardManager, catalog events.Catalog, sink notify.Sink, log *logrus.Logger) *Engine {
	return &Engine{
		store:   store,
		cards:   cards,
		catalog: catalog,
		sink:    sink,
		log:     log,
		now:     time.Now,
	}
}

// Redeem consumes claimCode for userID: one new stamp entry on the user's
// active card, one usage tick on the code, one redemption record. Rejections
// leave state untouched.
func (e *Engine) Redeem(ctx context.Context, claimCode string, userID uuid.UUID) (RedeemResult, error) {
	start := time.Now()
	var result RedeemResult
	var eventID uuid.UUID

	err := e.store.Tx(ctx, func(tx *gorm.DB) error {
		// Locked re-read of the code row: two concurrent redemptions that
		// both passed a cached check serialize here on postgres.
		claim, err := e.store.findClaimCode(tx, claimCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCodeNotFound
			}
			return fmt.Errorf("find claim code: %w", err)
		}
		eventID = claim.EventID

		if e.now().After(claim.ExpiresAt) {
			return ErrCodeExpired
		}

		redeemed, err := e.store.hasRedemption(tx, claim.ID, userID)
		if err != nil {
			return fmt.Errorf("check redemption: %w", err)
		}
		if redeemed {
			return ErrAlreadyRedeemed
		}

		if claim.MaxUses != nil && claim.CurrentUses >= *claim.MaxUses {
			return ErrCodeExhausted
		}

		card, err := e.cards.activeCardTx(tx, userID)
		if err != nil {
			return err
		}

		count, err := e.store.countEntries(tx, card.ID)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if count >= models.CardCapacity {
			return ErrCardFull
		}

		entry := models.StampEntry{
			StampCardID: card.ID,
			UserID:      userID,
			EventID:     &claim.EventID,
		}
		if err := e.store.createEntry(tx, &entry); err != nil {
			if isDuplicate(err) {
				return ErrDuplicateStampForEvent
			}
			return fmt.Errorf("create entry: %w", err)
		}

		if err := e.store.incrementUsage(tx, claim.ID); err != nil {
			return err
		}

		if err := e.store.createRedemption(tx, claim.ID, userID, e.now()); err != nil {
			if isDuplicate(err) {
				return ErrAlreadyRedeemed
			}
			return fmt.Errorf("create redemption: %w", err)
		}

		result = RedeemResult{
			CardID:     card.ID,
			EntryCount: count + 1,
			Remaining:  models.CardCapacity - (count + 1),
			CardFull:   count+1 == models.CardCapacity,
		}
		return nil
	})

	metrics.RecordRedeem(outcome(err), time.Since(start).Seconds())
	if err != nil {
		return RedeemResult{}, err
	}

	e.notifyStamp(userID, eventID, result)
	return result, nil
}

// notifyStamp runs post-commit only. A notification failure never unwinds a
// committed redemption.
func (e *Engine) notifyStamp(userID, eventID uuid.UUID, result RedeemResult) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		eventName := ""
		if info, err := e.catalog.GetEvent(ctx, eventID); err == nil {
			eventName = info.Name
		} else {
			e.log.WithError(err).WithField("event_id", eventID).Warn("event lookup for notification failed")
		}

		if err := e.sink.NotifyStampAcquired(ctx, userID.String(), eventName, result.EntryCount, result.Remaining); err != nil {
			e.log.WithError(err).WithField("user_id", userID).Warn("stamp notification failed")
		}
	}()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsRejection(err):
		return "rejected"
	default:
		return "error"
	}
}
