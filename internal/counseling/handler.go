package counseling

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/httpx"
)

// Handler handles HTTP requests for counseling forms
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new counseling handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers counseling routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/cases/:id/counseling-form", h.openForm)

	forms := router.Group("/counseling-forms")
	{
		forms.PUT("/:id/sections/:section", h.saveSection)
		forms.PUT("/:id/complete", h.complete)
	}
}

// SaveSectionRequest is the body of PUT /counseling-forms/:id/sections/:section
type SaveSectionRequest struct {
	Data json.RawMessage `json:"data" binding:"required"`
}

// openForm handles GET /api/v1/cases/:id/counseling-form
func (h *Handler) openForm(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	caseID, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.service.OpenForm(c.Request.Context(), caseID, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "open counseling form", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// saveSection handles PUT /api/v1/counseling-forms/:id/sections/:section
func (h *Handler) saveSection(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	formID, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}
	var req SaveSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	section, err := h.service.SaveSection(c.Request.Context(), formID, c.Param("section"), req.Data, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "save counseling section", err)
		return
	}
	c.JSON(http.StatusOK, section)
}

// complete handles PUT /api/v1/counseling-forms/:id/complete
func (h *Handler) complete(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	formID, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	form, err := h.service.Complete(c.Request.Context(), formID, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "complete counseling form", err)
		return
	}
	c.JSON(http.StatusOK, form)
}
