package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/konsulo/konsulo-backend/internal/services"
)

type AdminHandler struct {
	authSvc         services.AdminAuthService
	verificationSvc services.VerificationService
}

func NewAdminHandler(authSvc services.AdminAuthService, verificationSvc services.VerificationService) *AdminHandler {
	return &AdminHandler{authSvc: authSvc, verificationSvc: verificationSvc}
}

type adminSignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// POST /api/admin/signup
func (h *AdminHandler) Signup(c *gin.Context) {
	var req adminSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	admin, err := h.authSvc.Signup(c.Request.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"admin": admin})
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/admin/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	token, expiresAt, err := h.authSvc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

// GET /api/admin/verifications/pending
func (h *AdminHandler) PendingOverview(c *gin.Context) {
	consultants, enterprises, err := h.verificationSvc.PendingOverview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultants": consultants, "enterprises": enterprises})
}

// GET /api/admin/consultants/pending
func (h *AdminHandler) PendingConsultants(c *gin.Context) {
	profiles, err := h.verificationSvc.PendingConsultants(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultants": profiles})
}

// GET /api/admin/enterprises/pending
func (h *AdminHandler) PendingEnterprises(c *gin.Context) {
	enterprises, err := h.verificationSvc.PendingEnterprises(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enterprises": enterprises})
}

// POST /api/admin/consultants/:id/verify
func (h *AdminHandler) VerifyConsultant(c *gin.Context) {
	profileID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid consultant profile id", "code": "BAD_REQUEST"}})
		return
	}
	profile, err := h.verificationSvc.VerifyConsultant(c.Request.Context(), profileID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// POST /api/admin/enterprises/:id/verify
func (h *AdminHandler) VerifyEnterprise(c *gin.Context) {
	enterpriseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid enterprise id", "code": "BAD_REQUEST"}})
		return
	}
	enterprise, err := h.verificationSvc.VerifyEnterprise(c.Request.Context(), enterpriseID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enterprise": enterprise})
}
