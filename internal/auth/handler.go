package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// Ping endpoint
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "auth service alive!"})
}

// Me returns the caller and the statuses their role may move cases into.
func (h *Handler) Me(c *gin.Context) {
	p, ok := CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	capability, _ := workflows.CapabilityOf(p.Role)
	c.JSON(http.StatusOK, gin.H{
		"user":            p,
		"capability":      capability,
		"allowed_targets": workflows.AllowedTargets(p.Role),
	})
}
