package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/nayoung-dev/stamprally/internal/helpers"
)

// RedeemRateLimit caps the redemption route. Claim codes circulate
// publicly, so scanning bursts are expected; rejected requests get a 429
// rather than queueing into the database.
func RedeemRateLimit(perSecond float64, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	return func(c *gin.Context) {
		if !limiter.Allow() {
			helpers.RespondWithError(c, http.StatusTooManyRequests, "Too many requests. Please slow down.")
			c.Abort()
			return
		}
		c.Next()
	}
}
