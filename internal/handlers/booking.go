package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/services"
)

type BookingHandler struct {
	svc services.BookingService
}

func NewBookingHandler(svc services.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
	ConsultantID string         `json:"consultant_id"`
	StartsAt     time.Time      `json:"starts_at"`
	EndsAt       time.Time      `json:"ends_at"`
	Notes        map[string]any `json:"notes"`
}

// POST /api/bookings
func (h *BookingHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	consultantID, err := uuid.Parse(req.ConsultantID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid consultant id", "code": "BAD_REQUEST"}})
		return
	}
	booking, err := h.svc.Create(c.Request.Context(), rd.AccountID, consultantID, req.StartsAt, req.EndsAt, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"booking": booking})
}

// GET /api/bookings
func (h *BookingHandler) ListMine(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	bookings, err := h.svc.ListMine(c.Request.Context(), rd.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GET /api/bookings/consultant
func (h *BookingHandler) ListForConsultant(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	bookings, err := h.svc.ListForConsultant(c.Request.Context(), rd.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// POST /api/bookings/:id/cancel
func (h *BookingHandler) Cancel(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid booking id", "code": "BAD_REQUEST"}})
		return
	}
	booking, err := h.svc.Cancel(c.Request.Context(), rd.AccountID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// POST /api/bookings/:id/complete
func (h *BookingHandler) Complete(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid booking id", "code": "BAD_REQUEST"}})
		return
	}
	booking, err := h.svc.Complete(c.Request.Context(), rd.AccountID, bookingID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}
