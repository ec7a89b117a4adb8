// Package stamps implements the stamp/coupon ledger: claim-code redemption,
// card management, coupon issuance and the admin operations around them.
// All multi-step writes run inside a single database transaction and the
// schema's unique constraints are the final arbiter under concurrency;
// the pre-checks in this package only exist to fail fast.
package stamps

import "errors"

// Rejection kinds surfaced to callers. Check with errors.Is; each maps to
// one stable user-facing message in the HTTP layer.
var (
	// Redemption rejections.
	ErrCodeNotFound           = errors.New("claim code not found")
	ErrCodeExpired            = errors.New("claim code expired")
	ErrCodeExhausted          = errors.New("claim code use limit reached")
	ErrAlreadyRedeemed        = errors.New("claim code already redeemed by this user")
	ErrDuplicateStampForEvent = errors.New("card already has a stamp for this event")
	ErrCardFull               = errors.New("stamp card is full")

	// Issuance rejections.
	ErrNoActiveCard  = errors.New("no active stamp card")
	ErrCardNotFull   = errors.New("stamp card is not full")
	ErrAlreadyIssued = errors.New("coupon already issued for this card")

	// Admin rejections.
	ErrCouponAttached = errors.New("a coupon is attached; deletion is blocked")
	ErrCouponNotFound = errors.New("coupon not found")
	ErrEventNotFound  = errors.New("event not found")
	ErrUserNotFound   = errors.New("user not found")
)

// IsRejection reports whether err is one of the typed policy rejections,
// as opposed to a transient store failure the caller may retry.
func IsRejection(err error) bool {
	for _, rejection := range []error{
		ErrCodeNotFound, ErrCodeExpired, ErrCodeExhausted,
		ErrAlreadyRedeemed, ErrDuplicateStampForEvent, ErrCardFull,
		ErrNoActiveCard, ErrCardNotFull, ErrAlreadyIssued,
		ErrCouponAttached, ErrCouponNotFound, ErrEventNotFound, ErrUserNotFound,
	} {
		if errors.Is(err, rejection) {
			return true
		}
	}
	return false
}
