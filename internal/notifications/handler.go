package notifications

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/httpx"
)

// Handler handles HTTP requests for notifications
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new notifications handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers notification routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.connect)

	notifications := router.Group("/notifications")
	{
		notifications.GET("", h.list)
		notifications.PUT("/:id/read", h.markRead)
	}
}

// connect handles GET /api/v1/ws
func (h *Handler) connect(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	if _, err := h.service.WebSocket().HandleConnection(c.Writer, c.Request, p.UserID); err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Uint("user_id", p.UserID), zap.Error(err))
	}
}

// list handles GET /api/v1/notifications
func (h *Handler) list(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	items, err := h.service.GetUserNotifications(c.Request.Context(), p.UserID, ListOptions{
		UnreadOnly: unread,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		httpx.RespondError(c, h.logger, "list notifications", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items, "limit": limit, "offset": offset})
}

// markRead handles PUT /api/v1/notifications/:id/read
func (h *Handler) markRead(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	if err := h.service.MarkNotificationAsRead(c.Request.Context(), p.UserID, id); err != nil {
		httpx.RespondError(c, h.logger, "mark notification read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "notification marked as read"})
}
