package cases

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/httpx"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// Handler handles HTTP requests for case workflow operations
type Handler struct {
	engine *Engine
	logger *zap.Logger
}

// NewHandler creates a new cases handler
func NewHandler(engine *Engine, logger *zap.Logger) *Handler {
	return &Handler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers case routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/identifications", h.createIdentification)

	cases := router.Group("/cases")
	{
		cases.POST("/intake", h.intake)
		cases.GET("/:id", h.getCase)
		cases.GET("/:id/next-statuses", h.nextStatuses)
		cases.POST("/:id/transition", h.transition)
		cases.POST("/:id/assign", h.assign)
		cases.GET("/:id/status-history", h.statusHistory)
		cases.GET("/:id/status-history/export", h.exportStatusHistory)
		cases.GET("/:id/comments", h.comments)
	}
}

// TransitionRequest is the body of POST /cases/:id/transition
type TransitionRequest struct {
	ToStatus string `json:"to_status" binding:"required"`
	Comment  string `json:"comment"`
}

// IntakeRequest is the body of POST /cases/intake
type IntakeRequest struct {
	IdentificationID  uint   `json:"identification_id" binding:"required"`
	EligibilityStatus string `json:"eligibility_status" binding:"required"`
}

// createIdentification handles POST /api/v1/identifications
func (h *Handler) createIdentification(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	var ident Identification
	if err := c.ShouldBindJSON(&ident); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.RegisterIdentification(c.Request.Context(), &ident, ActorFrom(p)); err != nil {
		httpx.RespondError(c, h.logger, "create identification", err)
		return
	}
	c.JSON(http.StatusCreated, ident)
}

// intake handles POST /api/v1/cases/intake
func (h *Handler) intake(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	var req IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.engine.CreateFromIdentification(c.Request.Context(), req.IdentificationID, req.EligibilityStatus, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "intake", err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// getCase handles GET /api/v1/cases/:id
func (h *Handler) getCase(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	found, err := h.engine.GetCase(c.Request.Context(), id, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "get case", err)
		return
	}
	c.JSON(http.StatusOK, found)
}

// nextStatuses handles GET /api/v1/cases/:id/next-statuses
func (h *Handler) nextStatuses(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	next, err := h.engine.LegalNextStatuses(c.Request.Context(), id, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "next statuses", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"case_id": id, "next_statuses": next})
}

// transition handles POST /api/v1/cases/:id/transition
func (h *Handler) transition(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.engine.Transition(c.Request.Context(), id, workflows.Status(req.ToStatus), ActorFrom(p), req.Comment)
	if err != nil {
		httpx.RespondError(c, h.logger, "transition", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// assign handles POST /api/v1/cases/:id/assign
func (h *Handler) assign(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}
	var req Assignment
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.engine.AssignPersonnel(c.Request.Context(), id, req, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "assign", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// statusHistory handles GET /api/v1/cases/:id/status-history
func (h *Handler) statusHistory(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	history, err := h.engine.StatusHistory(c.Request.Context(), id, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "status history", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": history, "total": len(history)})
}

// comments handles GET /api/v1/cases/:id/comments
func (h *Handler) comments(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	comments, err := h.engine.Comments(c.Request.Context(), id, ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "case comments", err)
		return
	}
	if comments == nil {
		comments = []CaseComment{}
	}
	c.JSON(http.StatusOK, gin.H{"data": comments, "total": len(comments)})
}

// exportStatusHistory handles GET /api/v1/cases/:id/status-history/export?format=xlsx|csv
func (h *Handler) exportStatusHistory(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	id, ok := httpx.UintParam(c, "id")
	if !ok {
		return
	}

	format := ExportFormat(c.DefaultQuery("format", string(FormatXLSX)))
	export, err := h.engine.ExportStatusHistory(c.Request.Context(), id, ActorFrom(p), format)
	if err != nil {
		httpx.RespondError(c, h.logger, "export status history", err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+export.FileName)
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
