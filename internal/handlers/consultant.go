package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/konsulo/konsulo-backend/internal/requestdata"
	"github.com/konsulo/konsulo-backend/internal/services"
)

type ConsultantHandler struct {
	svc services.ConsultantService
}

func NewConsultantHandler(svc services.ConsultantService) *ConsultantHandler {
	return &ConsultantHandler{svc: svc}
}

type createProfileRequest struct {
	Headline    string   `json:"headline"`
	Bio         string   `json:"bio"`
	HourlyRate  int64    `json:"hourly_rate"`
	Specialties []string `json:"specialties"`
}

// POST /api/consultants/profile
func (h *ConsultantHandler) CreateProfile(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	var req createProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "invalid request body", "code": "BAD_REQUEST"}})
		return
	}
	profile, err := h.svc.CreateProfile(c.Request.Context(), rd.AccountID, req.Headline, req.Bio, req.HourlyRate, req.Specialties)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"profile": profile})
}

// POST /api/consultants/documents (multipart: kind, file)
func (h *ConsultantHandler) SubmitDocument(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "missing document file", "code": "BAD_REQUEST"}})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": "unreadable document file", "code": "BAD_REQUEST"}})
		return
	}
	defer file.Close()

	doc, svcErr := h.svc.SubmitDocument(c.Request.Context(), rd.AccountID, c.PostForm("kind"), fileHeader.Filename, file)
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"document": doc})
}

// GET /api/consultants
func (h *ConsultantHandler) ListVerified(c *gin.Context) {
	profiles, err := h.svc.ListVerified(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consultants": profiles})
}
