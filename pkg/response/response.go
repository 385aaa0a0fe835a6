package response

import (
	"net/http"

	"anoa.com/blooddonation/pkg/apperror"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextUserID is the gin context key holding the authenticated user id.
const ContextUserID = "user_id"

var logger = zap.NewNop()

// SetLogger sets the logger used for internal errors.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, exists := c.Get(ContextUserID)
	if !exists {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	str, ok := userIDStr.(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userID, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	return userID, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code == http.StatusInternalServerError {
		logger.Error("internal error",
			zap.String("path", c.FullPath()),
			zap.String("method", c.Request.Method),
			zap.Error(err),
		)
		c.JSON(code, gin.H{"error": apperror.ErrInternal.Error(), "kind": apperror.KindInternal})
		return
	}

	c.JSON(code, gin.H{"error": err.Error(), "kind": apperror.Kind(err)})
}

// ValidationError writes a 400 with the validation kind.
func ValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "kind": apperror.KindValidation})
}
