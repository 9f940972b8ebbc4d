package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/services"
)

type WalletHandler struct {
	svc services.WalletService
}

func NewWalletHandler(svc services.WalletService) *WalletHandler {
	return &WalletHandler{svc: svc}
}

// GET /api/wallet
func (h *WalletHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	wallet, err := h.svc.Get(c.Request.Context(), rd.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

type topupRequest struct {
	Amount int64 `json:"amount"`
}

// POST /api/wallet/topup
func (h *WalletHandler) Topup(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	wallet, err := h.svc.Topup(c.Request.Context(), rd.AccountID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet": wallet})
}

// GET /api/wallet/transactions
func (h *WalletHandler) Transactions(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	entries, err := h.svc.Transactions(c.Request.Context(), rd.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": entries})
}
