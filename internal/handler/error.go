package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fiscaliza-obras/fiscaliza/internal/domain"
)

// =============================================================================
// Error Responses
// =============================================================================

// errorBody is the JSON envelope for all error responses.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorCodeToHTTPStatus maps a domain error code to an HTTP status code.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes err as a JSON error response with the appropriate
// status code. Internal errors are logged with their full chain; the client
// only sees the generic message.
func ErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	code := domain.ErrorCode(err)
	status := ErrorCodeToHTTPStatus(code)

	logError(r, logger, status, err)

	writeJSONError(w, status, code, domain.ErrorMessage(err))
}

// UnauthorizedResponse writes a 401 response for unauthenticated requests.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Unauthorized("handler.auth", "Autenticação necessária."))
}

// ForbiddenResponse writes a 403 response for requests lacking permission.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	ErrorResponse(w, r, logger, domain.Forbidden("handler.auth", "Acesso restrito a administradores."))
}

// NotFoundResponse writes a 404 response for unknown routes.
func NotFoundResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger) {
	writeJSONError(w, http.StatusNotFound, domain.ENOTFOUND, "Recurso não encontrado.")
}

// InternalErrorResponse writes a 500 response, logging the underlying error.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	ErrorResponse(w, r, logger, domain.Internal(err, "handler", "internal error"))
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

func logError(r *http.Request, logger *slog.Logger, status int, err error) {
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"error", err,
	}

	if status >= 500 {
		logger.Error("request failed", attrs...)
	} else {
		logger.Info("request rejected", attrs...)
	}
}
