package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nayoung-dev/stamprally/internal/helpers"
	"github.com/nayoung-dev/stamprally/internal/models"
	"github.com/nayoung-dev/stamprally/internal/stamps"
)

// AdminHandler serves the operator endpoints. Every mutation goes through
// the ledger's guarded operations; there is no direct-write path.
type AdminHandler struct {
	db     *gorm.DB
	admin  *stamps.Admin
	issuer *stamps.Issuer
}

func NewAdminHandler(db *gorm.DB, admin *stamps.Admin, issuer *stamps.Issuer) *AdminHandler {
	return &AdminHandler{db: db, admin: admin, issuer: issuer}
}

type CreateEventRequest struct {
	Name           string      `json:"name" binding:"required"`
	Description    string      `json:"description"`
	StartDate      time.Time   `json:"start_date"`
	EndDate        time.Time   `json:"end_date" binding:"required"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type CreateClaimCodeRequest struct {
	EventID   uuid.UUID  `json:"event_id" binding:"required"`
	MaxUses   *int       `json:"max_uses"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type GrantStampRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Note   string    `json:"note" binding:"required"`
}

type SetCouponUsedRequest struct {
	Used *bool `json:"used" binding:"required"`
}

func (h *AdminHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	event := models.Event{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	var outcomes []stamps.EnrollmentOutcome
	if len(req.ParticipantIDs) > 0 {
		var err error
		outcomes, err = h.admin.EnrollParticipants(c.Request.Context(), event.ID, req.ParticipantIDs)
		if err != nil {
			helpers.RespondWithLedgerError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Event created successfully.",
		"event":      event,
		"enrollment": outcomes,
	})
}

func (h *AdminHandler) CreateClaimCode(c *gin.Context) {
	var req CreateClaimCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Event id is required.")
		return
	}

	claim, err := h.admin.CreateClaimCode(c.Request.Context(), req.EventID, req.MaxUses, req.ExpiresAt)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Claim code created successfully.",
		"claim":   claim,
	})
}

func (h *AdminHandler) GrantStamp(c *gin.Context) {
	var req GrantStampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. User id and note are required.")
		return
	}

	result, err := h.admin.GrantStamp(c.Request.Context(), req.UserID, req.Note)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stamp granted successfully.",
		"result":  result,
	})
}

func (h *AdminHandler) SetCouponUsed(c *gin.Context) {
	couponID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid coupon id.")
		return
	}

	var req SetCouponUsedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Used flag is required.")
		return
	}

	coupon, err := h.issuer.SetCouponUsed(c.Request.Context(), couponID, *req.Used)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon updated successfully.",
		"coupon":  coupon,
	})
}

func (h *AdminHandler) DeleteEntry(c *gin.Context) {
	entryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid entry id.")
		return
	}

	if err := h.admin.DeleteEntry(c.Request.Context(), entryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Entry not found.")
			return
		}
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Entry deleted successfully."})
}

func (h *AdminHandler) DeleteCard(c *gin.Context) {
	cardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid card id.")
		return
	}

	if err := h.admin.DeleteCard(c.Request.Context(), cardID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Card not found.")
			return
		}
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Card deleted successfully."})
}
