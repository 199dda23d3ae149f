package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/saivathsal/radix-server/internal/core/domain"
)

// writeError translates domain error kinds into HTTP responses. Anything
// unclassified is reported as a 500 without leaking the underlying error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case domain.IsKind(err, domain.ErrUnauthorized):
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
	case domain.IsKind(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "access denied")
	case domain.IsKind(err, domain.ErrReportNotFound), domain.IsKind(err, domain.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "not found")
	case domain.IsKind(err, domain.ErrConflict):
		writeMessage(w, http.StatusConflict, "already exists")
	case errors.As(err, new(*http.MaxBytesError)):
		writeMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		slog.Error("request failed",
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
