package httpadapter

import (
	"net/http"

	"github.com/kirillkom/evidence-assistant/internal/core/domain"
)

var statusByKind = map[error]int{
	domain.ErrInvalidInput:  http.StatusBadRequest,
	domain.ErrTooLarge:      http.StatusRequestEntityTooLarge,
	domain.ErrUnauthorized:  http.StatusUnauthorized,
	domain.ErrNotFound:      http.StatusNotFound,
	domain.ErrExtraction:    http.StatusUnprocessableEntity,
	domain.ErrUpstream:      http.StatusBadGateway,
	domain.ErrTemporary:     http.StatusServiceUnavailable,
	domain.ErrConfiguration: http.StatusInternalServerError,
}

func mapErrorToHTTPStatus(err error) int {
	if status, ok := statusByKind[domain.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logFor(r).Error("http_handler_error",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
