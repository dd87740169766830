package httpserver

import (
	"errors"
	"net/http"

	"commerce-backoffice/internal/domain"
	paymentsvc "commerce-backoffice/internal/service/payment"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrStagingNotFound),
		errors.Is(err, domain.ErrGatewayNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrInvalidCurrencyCode),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, paymentsvc.ErrNotReversible):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGatewayDisabled):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError maps err to a status and a JSON body. Internal errors are
// logged and answered with a generic message.
func writeError(c *gin.Context, logger zerolog.Logger, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("httpserver: request failed")
		msg := "internal error"
		if status == http.StatusServiceUnavailable {
			msg = "service not configured"
		}
		c.AbortWithStatusJSON(status, gin.H{"error": msg})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
