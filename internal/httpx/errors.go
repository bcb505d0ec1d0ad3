package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"baaseteen/case-portal/case-portal-backend/internal/auth"
	"baaseteen/case-portal/case-portal-backend/pkg/workflows"
)

// RespondError maps workflow errors onto HTTP responses. Unexpected errors
// are logged and reported without internal detail.
func RespondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var forbidden *workflows.ForbiddenError
	var transition *workflows.TransitionError
	var incomplete *workflows.IncompleteSectionsError
	var txErr *workflows.TransactionError

	switch {
	case errors.As(err, &transition):
		c.JSON(http.StatusForbidden, gin.H{
			"error":            transition.Error(),
			"reason":           "workflow",
			"current_status":   transition.Current,
			"attempted_status": transition.Attempted,
			"gate":             transition.Gate,
		})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Error(), "reason": "permission"})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":            incomplete.Error(),
			"missing_sections": incomplete.Missing,
		})
	case errors.Is(err, workflows.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, workflows.ErrFormLocked), errors.Is(err, workflows.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflows.ErrInvalidStatus), errors.Is(err, workflows.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &txErr):
		logger.Error("Transaction failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "the operation could not be completed, nothing was changed; please retry"})
	default:
		logger.Error("Request failed", zap.String("op", op), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// Principal returns the authenticated caller, answering 401 when absent.
func Principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := auth.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return auth.Principal{}, false
	}
	return p, true
}

// UintParam parses a positive integer path parameter.
func UintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(v), true
}
