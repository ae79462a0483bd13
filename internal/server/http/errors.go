package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/and161185/pinboard/internal/convert"
	"github.com/and161185/pinboard/internal/errs"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// statusFor maps the error taxonomy to HTTP. Specific causes win over failure classes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrStorageSetup), errors.Is(err, errs.ErrAuth):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// kindOf names the failure class for clients.
func kindOf(err error) string {
	switch {
	case errors.Is(err, errs.ErrAuth), errors.Is(err, errs.ErrUnauthorized), errors.Is(err, errs.ErrRateLimited):
		return "auth"
	case errors.Is(err, errs.ErrStorageSetup):
		return "storage_setup"
	case errors.Is(err, errs.ErrUpload):
		return "upload"
	case errors.Is(err, errs.ErrDatabase):
		return "database"
	case errors.Is(err, errs.ErrResolution):
		return "resolution"
	case errors.Is(err, errs.ErrValidation):
		return "validation"
	default:
		return ""
	}
}

// message hides internal details of unexpected failures.
func message(err error, status int) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return "internal error"
	}
	return err.Error()
}

func errorBody(msg, kind string) convert.Error { return convert.Error{Error: msg, Kind: kind} }

func (s *Server) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("api", zap.String("route", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorBody(message(err, status), kindOf(err)))
}
