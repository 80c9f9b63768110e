package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/upb/chat-relay/services"
	"github.com/upb/chat-relay/utils"
)

// StatusForError returns the HTTP status a service error is reported with
func StatusForError(err error) int {
	switch {
	case services.IsValidationError(err):
		return http.StatusBadRequest
	case services.IsPayloadTooLargeError(err):
		return http.StatusRequestEntityTooLarge
	case services.IsRateLimitError(err):
		return http.StatusTooManyRequests
	case services.IsQuotaError(err):
		return http.StatusPaymentRequired
	case services.IsExternalError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError maps domain errors to HTTP responses.
// Domain errors are reported with their caller-facing message only; the
// upstream cause is logged, never returned.
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	status := StatusForError(err)
	message := services.GetErrorMessage(err)

	switch {
	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		message = "An internal error occurred"

	case message == "":
		// Unknown error type - log and return internal error
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		message = "An unexpected error occurred"

	default:
		logger.Debug("handled service error",
			zap.String("type", string(services.GetErrorType(err))),
			zap.Int("status", status),
			zap.Error(err))
	}

	var writeErr error
	switch status {
	case http.StatusBadRequest:
		writeErr = utils.WriteBadRequest(w, message)
	case http.StatusInternalServerError:
		writeErr = utils.WriteInternalServerError(w, message)
	default:
		writeErr = utils.WriteError(w, status, message, nil)
	}
	if writeErr != nil {
		logger.Error("failed to write error response", zap.Int("status", status), zap.Error(writeErr))
	}
}
