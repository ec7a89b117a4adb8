package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nayoung-dev/stamprally/internal/helpers"
	"github.com/nayoung-dev/stamprally/internal/middleware"
	"github.com/nayoung-dev/stamprally/internal/stamps"
)

// CouponHandler serves the user-facing coupon endpoints.
type CouponHandler struct {
	issuer  *stamps.Issuer
	queries *stamps.Queries
}

func NewCouponHandler(issuer *stamps.Issuer, queries *stamps.Queries) *CouponHandler {
	return &CouponHandler{issuer: issuer, queries: queries}
}

func (h *CouponHandler) Issue(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	coupon, err := h.issuer.IssueCoupon(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Coupon issued successfully.",
		"coupon":  coupon,
	})
}

func (h *CouponHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	limit, err := helpers.StringToInt(c.DefaultQuery("limit", "20"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	coupons, err := h.queries.Coupons(c.Request.Context(), userID, limit)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"coupons": coupons})
}
