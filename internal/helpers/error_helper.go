package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nayoung-dev/stamprally/internal/stamps"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: customMessage,
	})
}

// rejectionStatus maps each ledger rejection to one stable status and
// message. Transient store failures deliberately read differently so a
// retryable failure is never mistaken for a policy violation.
var rejectionStatus = map[error]struct {
	code    int
	message string
}{
	stamps.ErrCodeNotFound:           {http.StatusNotFound, "Claim code not found."},
	stamps.ErrCodeExpired:            {http.StatusGone, "Claim code has expired."},
	stamps.ErrCodeExhausted:          {http.StatusConflict, "Claim code has reached its use limit."},
	stamps.ErrAlreadyRedeemed:        {http.StatusConflict, "You have already redeemed this code."},
	stamps.ErrDuplicateStampForEvent: {http.StatusConflict, "Your card already has a stamp for this event."},
	stamps.ErrCardFull:               {http.StatusConflict, "Your stamp card is full. Redeem it for a coupon first."},
	stamps.ErrNoActiveCard:           {http.StatusNotFound, "You have no active stamp card."},
	stamps.ErrCardNotFull:            {http.StatusConflict, "Your stamp card is not full yet."},
	stamps.ErrAlreadyIssued:          {http.StatusConflict, "A coupon was already issued for this card."},
	stamps.ErrCouponAttached:         {http.StatusConflict, "A coupon is attached. Deletion is blocked."},
	stamps.ErrCouponNotFound:         {http.StatusNotFound, "Coupon not found."},
	stamps.ErrEventNotFound:          {http.StatusNotFound, "Event not found."},
	stamps.ErrUserNotFound:           {http.StatusNotFound, "User not found."},
}

// RespondWithLedgerError translates a stamps error into its HTTP shape.
func RespondWithLedgerError(c *gin.Context, err error) {
	for rejection, status := range rejectionStatus {
		if errors.Is(err, rejection) {
			RespondWithError(c, status.code, status.message)
			return
		}
	}
	RespondWithError(c, http.StatusServiceUnavailable, "Temporary problem. Please try again.")
}
