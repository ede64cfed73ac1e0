package handlers

import (
	"net/http"

	"github.com/pysugar/drivesweep/internal/api/middleware"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/version"
)

// MeHandler returns the signed-in user's identity.
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			writeError(w, r, cleanup.ErrUnauthenticated)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":           user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"googleUserID": user.GoogleUserID,
			"lastScanTime": user.LastScanTime,
		})
	}
}

// VersionHandler reports build info.
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	}
}
