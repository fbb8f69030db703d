package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"texpro/internal/domain"
)

func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	c.JSON(statusCode, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}

// FromDomainError maps the shared error set to an HTTP response.
func FromDomainError(c *gin.Context, err error) {
	var (
		illegal    *domain.IllegalTransitionError
		constraint *domain.ConstraintViolationError
		blocked    *domain.CannotProceedError
		dependency *domain.DependencyError
	)

	switch {
	case errors.Is(err, domain.ErrNotFound):
		Error(c, http.StatusNotFound, "NOT_FOUND", "Entity not found")
	case errors.Is(err, domain.ErrConflictingWrite):
		Error(c, http.StatusConflict, "CONFLICTING_WRITE", "Concurrent update, please retry")
	case errors.Is(err, domain.ErrCancelled):
		Error(c, http.StatusRequestTimeout, "CANCELLED", "Request cancelled")
	case errors.As(err, &illegal):
		ErrorWithDetails(c, http.StatusConflict, "ILLEGAL_TRANSITION", err.Error(), gin.H{
			"from": illegal.From,
			"to":   illegal.To,
		})
	case errors.As(err, &constraint):
		ErrorWithDetails(c, http.StatusUnprocessableEntity, "CONSTRAINT_VIOLATION", err.Error(), gin.H{
			"field":  constraint.Field,
			"reason": constraint.Reason,
		})
	case errors.As(err, &blocked):
		ErrorWithDetails(c, http.StatusConflict, "CANNOT_PROCEED", err.Error(), gin.H{
			"reasons": blocked.Reasons,
		})
	case errors.As(err, &dependency):
		Error(c, http.StatusBadGateway, "DEPENDENCY_ERROR", "Downstream dependency failed")
	default:
		Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}
