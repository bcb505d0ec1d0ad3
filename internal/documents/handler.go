package documents

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/cases/:id/cover-letter", h.Generate)
	rg.GET("/cases/:id/cover-letters", h.List)
	rg.GET("/cover-letters/:id/download", h.Download)
}

// Generate handles POST /api/v1/cases/:id/cover-letter
func (h *Handler) Generate(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	caseID, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	letter, updated, err := h.service.GenerateCoverLetter(c.Request.Context(), caseID, req, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "generate cover letter", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"cover_letter": letter, "case": updated})
}

// List handles GET /api/v1/cases/:id/cover-letters
func (h *Handler) List(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	caseID, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	letters, err := h.service.ListCoverLetters(c.Request.Context(), caseID, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "list cover letters", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": letters})
}

// Download handles GET /api/v1/cover-letters/:id/download
func (h *Handler) Download(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cover letter id"})
		return
	}

	letter, body, err := h.service.Download(c.Request.Context(), id, cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "download cover letter", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", letter.FileName))
	c.Data(http.StatusOK, pdfContentType, body)
}
