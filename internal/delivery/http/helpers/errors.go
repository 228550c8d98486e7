package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventticketing/internal/domain"
)

// StatusForError maps a domain error to its HTTP status and error code.
func StatusForError(err error) (int, string) {
	if errors.Is(err, domain.ErrInvalidCredential) {
		return http.StatusUnauthorized, ErrCodeUnauthorized
	}
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound, ErrCodeNotFound
	case domain.ErrConflict:
		return http.StatusConflict, ErrCodeConflict
	case domain.ErrForbidden:
		return http.StatusForbidden, ErrCodeForbidden
	case domain.ErrValidationFailed:
		return http.StatusBadRequest, ErrCodeBadRequest
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// WriteDomainError writes err as a JSON error envelope. Server errors are
// logged and their message replaced so storage details do not leak.
func WriteDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := StatusForError(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "internal server error")
		return
	}
	WriteJSONError(w, status, code, err.Error())
}
