package dashboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/cases"
	"baaseteen/case-portal/case-portal-backend/internal/httpx"
)

// Handler serves dashboard aggregates
type Handler struct {
	aggregator *Aggregator
	logger     *zap.Logger
}

func NewHandler(aggregator *Aggregator, logger *zap.Logger) *Handler {
	return &Handler{aggregator: aggregator, logger: logger}
}

// RegisterRoutes registers dashboard routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/dashboard/cases", h.caseSummary)
}

// caseSummary handles GET /api/v1/dashboard/cases?case_type=&refresh=true
func (h *Handler) caseSummary(c *gin.Context) {
	p, ok := httpx.Principal(c)
	if !ok {
		return
	}
	if c.Query("refresh") == "true" {
		h.aggregator.Invalidate()
	}

	summary, err := h.aggregator.GetCaseSummary(c.Request.Context(), c.Query("case_type"), cases.ActorFrom(p))
	if err != nil {
		httpx.RespondError(c, h.logger, "case summary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
