package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/pysugar/drivesweep/internal/api/middleware"
	"github.com/pysugar/drivesweep/internal/bulk"
	"github.com/pysugar/drivesweep/internal/cleanup"
	"github.com/pysugar/drivesweep/internal/db/models"
)

// DriveService is the cleanup surface the drive routes call.
type DriveService interface {
	Scan(ctx context.Context, email string) (cleanup.ScanResult, error)
	ListUnused(ctx context.Context, email string) ([]models.File, error)
	ListShared(ctx context.Context, email string, scope cleanup.SharedScope) ([]models.File, error)
	ListLarge(ctx context.Context, email string, minSize int64) (cleanup.LargeFiles, error)
	GetStats(ctx context.Context, email string) (cleanup.Stats, error)
	GetFile(ctx context.Context, email, fileID string) (*models.File, error)
	BulkDelete(ctx context.Context, email string, fileIDs []string) (bulk.Result, error)
	BulkTrash(ctx context.Context, email string, fileIDs []string) (bulk.Result, error)
	BulkUnshare(ctx context.Context, email string, fileIDs []string) (bulk.Result, error)
}

type bulkFunc func(ctx context.Context, email string, fileIDs []string) (bulk.Result, error)

type bulkRequest struct {
	FileIDs []string `json:"fileIds"`
}

// BulkResponse reports per-file outcomes with explicit counts.
type BulkResponse struct {
	Success      bool     `json:"success"`
	Succeeded    []string `json:"succeeded"`
	Failed       []string `json:"failed"`
	DeletedCount int      `json:"deletedCount"`
	FailedCount  int      `json:"failedCount"`
}

func sessionEmail(r *http.Request) (string, error) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		return "", cleanup.ErrUnauthenticated
	}
	return user.Email, nil
}

// ScanHandler lists the user's Drive and reconciles it.
func ScanHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.Scan(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Scan completed",
			"total":    res.Total,
			"upserted": res.Upserted,
			"skipped":  res.Skipped,
			"stale":    res.Stale,
		})
	}
}

// UnusedHandler returns files never viewed or not viewed within the unused window.
func UnusedHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		files, err := svc.ListUnused(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"unusedFiles": files, "count": len(files)})
	}
}

// SharedHandler returns shared files; ?scope=with-me narrows to files owned by others.
func SharedHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		scope, err := cleanup.ParseSharedScope(r.URL.Query().Get("scope"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		files, err := svc.ListShared(r.Context(), email, scope)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sharedFiles": files, "count": len(files), "scope": scope})
	}
}

// LargeHandler returns files above ?minSize= bytes, largest first.
func LargeHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		var minSize int64
		if raw := r.URL.Query().Get("minSize"); raw != "" {
			minSize, err = strconv.ParseInt(raw, 10, 64)
			if err != nil || minSize < 0 {
				writeError(w, r, fmt.Errorf("%w: minSize must be a non-negative integer", cleanup.ErrValidation))
				return
			}
		}
		large, err := svc.ListLarge(r.Context(), email, minSize)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"largeFiles": large.Files,
			"count":      len(large.Files),
			"totalSize":  large.TotalSize,
			"minSize":    large.MinSize,
		})
	}
}

// StatsHandler returns aggregate stats.
func StatsHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		st, err := svc.GetStats(r.Context(), email)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// FileHandler returns one stored file.
func FileHandler(svc DriveService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f, err := svc.GetFile(r.Context(), email, chi.URLParam(r, "fileId"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

// DeleteHandler permanently deletes the posted fileIds.
func DeleteHandler(svc DriveService) http.HandlerFunc { return bulkHandler(svc.BulkDelete) }

// TrashHandler trashes the posted fileIds.
func TrashHandler(svc DriveService) http.HandlerFunc { return bulkHandler(svc.BulkTrash) }

// RemoveHandler unshares the posted fileIds from the user.
func RemoveHandler(svc DriveService) http.HandlerFunc { return bulkHandler(svc.BulkUnshare) }

func bulkHandler(run bulkFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := sessionEmail(r)
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req bulkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: body must be {\"fileIds\": [...]}", cleanup.ErrValidation))
			return
		}

		res, err := run(r.Context(), email, req.FileIDs)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, BulkResponse{
			Success:      len(res.Failed) == 0,
			Succeeded:    res.Succeeded,
			Failed:       res.Failed,
			DeletedCount: len(res.Succeeded),
			FailedCount:  len(res.Failed),
		})
	}
}
