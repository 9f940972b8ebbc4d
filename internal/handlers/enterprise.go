package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/services"
)

type EnterpriseHandler struct {
	svc services.EnterpriseService
}

func NewEnterpriseHandler(svc services.EnterpriseService) *EnterpriseHandler {
	return &EnterpriseHandler{svc: svc}
}

type createEnterpriseRequest struct {
	Name string `json:"name"`
}

// POST /api/enterprises
func (h *EnterpriseHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req createEnterpriseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	enterprise, err := h.svc.Create(c.Request.Context(), rd.AccountID, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"enterprise": enterprise})
}

// GET /api/enterprises/mine
func (h *EnterpriseHandler) GetOwned(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	enterprise, err := h.svc.GetOwned(c.Request.Context(), rd.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enterprise": enterprise})
}

type inviteMemberRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// POST /api/enterprises/:id/members
func (h *EnterpriseHandler) InviteMember(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	enterpriseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid enterprise id", "code": "BAD_REQUEST"}})
		return
	}
	var req inviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	invite, err := h.svc.InviteMember(c.Request.Context(), rd.AccountID, enterpriseID, req.Email, req.FirstName, req.LastName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"invite": invite})
}

// GET /api/enterprises/invites/:token
func (h *EnterpriseHandler) LookupInvite(c *gin.Context) {
	invite, err := h.svc.LookupInvite(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite": invite})
}

type memberFirstLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/enterprises/members/first-login
func (h *EnterpriseHandler) MemberFirstLogin(c *gin.Context) {
	var req memberFirstLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	account, err := h.svc.MemberFirstLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": account})
}
