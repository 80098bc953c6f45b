package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/itemshare/item-share-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error sends a JSON error response. AppError values map to their embedded
// status code. Anything else is an unexpected failure (usually the database
// being unreachable) and is reported as 503 so callers know a retry may
// succeed, unlike the 4xx business errors.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message})
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service temporarily unavailable"})
}
