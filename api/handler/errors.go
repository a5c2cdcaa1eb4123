package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/vidtrack/models"
)

// respondError writes err as a JSON error body with a status derived from
// its code. Untyped errors become INTERNAL_ERROR.
func respondError(c *gin.Context, err error) {
	var trackErr *models.TrackError
	if !errors.As(err, &trackErr) {
		trackErr = models.NewTrackError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(trackErr), models.ErrorResponse{
		Success: false,
		Error:   trackErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.TrackError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeNotSupported:
		return http.StatusConflict // 409
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

var errNoSession = models.NewTrackError(models.ErrCodeNotFound, "no tracking session is running", nil)
