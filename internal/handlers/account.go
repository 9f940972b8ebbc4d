package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/konsulo/konsulo-backend/internal/services"
)

type AccountHandler struct {
	svc services.AccountService
}

func NewAccountHandler(svc services.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GET /api/me
func (h *AccountHandler) GetMe(c *gin.Context) {
	account, err := h.svc.GetMe(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}

type updateMeRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// PATCH /api/me
func (h *AccountHandler) UpdateMe(c *gin.Context) {
	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	account, err := h.svc.UpdateMe(c.Request.Context(), req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}
