package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nayoung-dev/stamprally/internal/helpers"
	"github.com/nayoung-dev/stamprally/internal/middleware"
	"github.com/nayoung-dev/stamprally/internal/stamps"
)

// StampHandler serves the user-facing stamp endpoints.
type StampHandler struct {
	engine  *stamps.Engine
	queries *stamps.Queries
	admin   *stamps.Admin
}

func NewStampHandler(engine *stamps.Engine, queries *stamps.Queries, admin *stamps.Admin) *StampHandler {
	return &StampHandler{engine: engine, queries: queries, admin: admin}
}

type RedeemRequest struct {
	Code string `json:"code" binding:"required"`
}

type MarkViewedRequest struct {
	EntryIDs []uuid.UUID `json:"entry_ids" binding:"required"`
}

func (h *StampHandler) Redeem(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Claim code is required.")
		return
	}

	result, err := h.engine.Redeem(c.Request.Context(), req.Code, userID)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stamp added successfully.",
		"result":  result,
	})
}

func (h *StampHandler) GetCard(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	card, err := h.queries.ActiveCard(c.Request.Context(), userID)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

func (h *StampHandler) MarkViewed(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	var req MarkViewedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Entry ids are required.")
		return
	}

	updated, err := h.admin.MarkEntriesViewed(c.Request.Context(), userID, req.EntryIDs)
	if err != nil {
		helpers.RespondWithLedgerError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}
