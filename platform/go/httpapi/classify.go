package httpapi

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-fieldops/platform/go/apperr"
	"github.com/zenGate-Global/palmyra-fieldops/platform/go/logging"
)

// Classify maps an error to a status code and a caller-safe message.
// Anything not recognised is an infrastructure failure.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, MsgUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden, MsgForbidden
	case apperr.IsValidation(err):
		return http.StatusBadRequest, MsgInvalidPayload
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, apperr.ErrConflict):
		if msg, ok := apperr.PublicMessage(err); ok {
			return http.StatusConflict, msg
		}
		return http.StatusConflict, MsgConflict
	default:
		return http.StatusInternalServerError, MsgInternal
	}
}

// Failure describes how a handler reports a failed operation.
type Failure struct {
	// Operation is logged to identify the handler.
	Operation string
	// NotFound replaces the generic not-found message, e.g. "Customer not found".
	NotFound string
	// Invalid replaces the validation message, e.g. MsgInvalidQuery for listings.
	Invalid string
	// Logger is used when the request carries no logger.
	Logger *zap.Logger
}

// Fail classifies err, logs it at a level matching its class and writes the error body.
func Fail(w http.ResponseWriter, r *http.Request, err error, f Failure) {
	status, message := Classify(err)
	if status == http.StatusBadRequest && f.Invalid != "" {
		message = f.Invalid
	}
	if status == http.StatusNotFound && f.NotFound != "" {
		if msg, ok := apperr.PublicMessage(err); ok {
			message = msg
		} else {
			message = f.NotFound
		}
	}

	logger := logging.FromRequest(r, f.Logger)
	fields := []zap.Field{
		zap.String("operation", f.Operation),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("operation failed", fields...)
	case status == http.StatusNotFound:
		logger.Info("resource not found", fields...)
	default:
		logger.Warn("request rejected", fields...)
	}

	WriteError(w, status, message)
}
