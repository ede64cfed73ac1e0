package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pysugar/drivesweep/internal/auth/google"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/pysugar/drivesweep/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(err error) int {
	var remote *drive.RemoteAPIError
	switch {
	case errors.Is(err, cleanup.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, cleanup.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cleanup.ErrUnauthenticated), errors.Is(err, google.ErrInvalidState):
		return http.StatusUnauthorized
	case errors.As(err, &remote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("❌ Request failed")
		msg = "Internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
