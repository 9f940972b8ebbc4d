package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/konsulo/konsulo-backend/internal/apierr"
)

// respondError maps any service error onto the wire envelope. Unknown
// errors become 500 STORAGE_ERROR via apierr.From.
func respondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	c.JSON(ae.Status, gin.H{"error": gin.H{"message": ae.Error(), "code": ae.Code}})
}
