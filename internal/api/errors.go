package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/frame-dx-server/internal/domain"
	"github.com/frame-dx-server/internal/middleware"
)

var errFeedbackDisabled = fmt.Errorf("feedback storage is disabled: %w", domain.ErrUnavailable)

func requestID(c *gin.Context) string {
	return c.GetString(middleware.CorrelationIDKey)
}

// statusFor maps an API error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case domain.ErrCodeInvalidRequest, domain.ErrCodeInvalidFrameGraph:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case domain.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as an APIError body. Internal errors are logged
// and their detail is withheld from the client.
func (s *Server) respondError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, domain.NewAPIError(
			domain.ErrCodeInvalidRequest, "request body too large", err.Error(), requestID(c)))
		return
	}

	code := domain.ErrorCode(err)
	status := statusFor(code)

	details := err.Error()
	if status >= http.StatusInternalServerError && code != domain.ErrCodeUnavailable {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID(c),
			"path":       c.FullPath(),
		}).Error("Request failed")
		details = ""
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, messageFor(code), details, requestID(c)))
}

func messageFor(code string) string {
	switch code {
	case domain.ErrCodeInvalidRequest:
		return "invalid request"
	case domain.ErrCodeInvalidFrameGraph:
		return "invalid frame graph"
	case domain.ErrCodeNotFound:
		return "not found"
	case domain.ErrCodeUnavailable:
		return "service unavailable"
	case domain.ErrCodeRateLimit:
		return "rate limit exceeded"
	default:
		return "internal server error"
	}
}

func invalidRequest(field, message string, value interface{}) error {
	return domain.NewValidationError(field, message, value)
}
