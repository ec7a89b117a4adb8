package stamps

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/metrics"
	"github.com/nayoung-dev/stamprally/internal/models"
	"github.com/nayoung-dev/stamprally/internal/notify"
)

// codeAlphabet excludes 0/O and 1/I; codes get read aloud and retyped.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeBodyLength = 10

// IssuerConfig carries the issuance policy knobs.
type IssuerConfig struct {
	CodePrefix  string
	Description string
	ExpiryDays  int
}

// Issuer converts a full card into exactly one coupon. The unique index on
// coupons.stamp_card_id is the correctness guarantee for the 1:1 rule; the
// random code generator is not trusted for uniqueness.
type Issuer struct {
	store *Store
	cards *CardManager
	sink  notify.Sink
	log   *logrus.Logger
	cfg   IssuerConfig
	now   func() time.Time
}

func NewIssuer(store *Store, cards *CardManager, sink notify.Sink, log *logrus.Logger, cfg IssuerConfig) *Issuer {
	if cfg.CodePrefix == "" {
		cfg.CodePrefix = "RWD"
	}
	if cfg.ExpiryDays <= 0 {
		cfg.ExpiryDays = 30
	}
	return &Issuer{store: store, cards: cards, sink: sink, log: log, cfg: cfg, now: time.Now}
}

// IssueCoupon closes the user's full active card and attaches one coupon.
func (i *Issuer) IssueCoupon(ctx context.Context, userID uuid.UUID) (*models.Coupon, error) {
	start := time.Now()
	var coupon *models.Coupon

	err := i.store.Tx(ctx, func(tx *gorm.DB) error {
		card, err := i.store.findActiveCard(tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoActiveCard
			}
			return fmt.Errorf("find active card: %w", err)
		}

		count, err := i.store.countEntries(tx, card.ID)
		if err != nil {
			return fmt.Errorf("count entries: %w", err)
		}
		if count < models.CardCapacity {
			return ErrCardNotFull
		}

		if err := i.store.markCardRedeemed(tx, card.ID); err != nil {
			return err
		}

		coupon, err = i.insertCoupon(tx, card.ID)
		return err
	})

	metrics.RecordIssue(outcome(err), time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	i.notifyCoupon(userID, coupon)
	return coupon, nil
}

// insertCoupon writes the coupon row, retrying once when the random code
// itself collides. A duplicate on the card binding means another issuance
// won and is authoritative.
func (i *Issuer) insertCoupon(tx *gorm.DB, cardID uuid.UUID) (*models.Coupon, error) {
	for attempt := 0; attempt < 2; attempt++ {
		code, err := generateCode(i.cfg.CodePrefix)
		if err != nil {
			return nil, err
		}

		coupon := models.Coupon{
			StampCardID: cardID,
			Code:        code,
			Description: i.cfg.Description,
			ExpiresAt:   i.now().AddDate(0, 0, i.cfg.ExpiryDays),
		}
		err = i.store.createCoupon(tx, &coupon)
		if err == nil {
			return &coupon, nil
		}
		if !isDuplicate(err) {
			return nil, fmt.Errorf("create coupon: %w", err)
		}
		if _, findErr := i.store.couponForCard(tx, cardID); findErr == nil {
			return nil, ErrAlreadyIssued
		}
		// Code collision; retry with a fresh one.
	}
	return nil, fmt.Errorf("create coupon: code collision persisted")
}

// SetCouponUsed toggles the administrative used flag. The card's
// is_redeemed stays one-way: un-marking a coupon re-opens redemption
// bookkeeping only, never the card itself.
func (i *Issuer) SetCouponUsed(ctx context.Context, couponID uuid.UUID, used bool) (*models.Coupon, error) {
	var coupon models.Coupon
	err := i.store.Tx(ctx, func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).Where("id = ?", couponID).First(&coupon).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCouponNotFound
			}
			return fmt.Errorf("find coupon: %w", err)
		}
		if coupon.IsUsed == used {
			return nil
		}
		if err := tx.Model(&coupon).Update("is_used", used).Error; err != nil {
			return fmt.Errorf("update coupon: %w", err)
		}
		coupon.IsUsed = used
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (i *Issuer) notifyCoupon(userID uuid.UUID, coupon *models.Coupon) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := i.sink.NotifyCouponIssued(ctx, userID.String(), coupon.Description, coupon.ExpiresAt); err != nil {
			i.log.WithError(err).WithField("user_id", userID).Warn("coupon notification failed")
		}
	}()
}

// generateCode builds prefix-XXXXXXXXXX from the unambiguous alphabet.
func generateCode(prefix string) (string, error) {
	buf := make([]byte, codeBodyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	body := make([]byte, codeBodyLength)
	for i, b := range buf {
		body[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return prefix + "-" + string(body), nil
}
