package drive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu       sync.Mutex
	deleted  []string
	trashed  []string
	revoked  []string
	failFile string
}

func (f *fakeDrive) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /files", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "trashed = false" {
			http.Error(w, "unexpected query", http.StatusBadRequest)
			return
		}
		if r.URL.Query().Get("pageToken") == "" {
			writeJSON(w, map[string]any{
				"nextPageToken": "page-2",
				"files": []map[string]any{{
					"id":             "f1",
					"name":           "report.pdf",
					"mimeType":       "application/pdf",
					"size":           "2048",
					"modifiedTime":   "2024-01-02T03:04:05.000Z",
					"viewedByMeTime": "2024-02-01T00:00:00.000Z",
					"owners":         []map[string]any{{"emailAddress": "u@x.com"}},
					"permissions": []map[string]any{
						{"id": "p-owner", "emailAddress": "u@x.com", "role": "owner",
							"permissionDetails": []map[string]any{{"role": "owner"}}},
						{"id": "p-reader", "emailAddress": "friend@x.com", "role": "reader"},
					},
				}},
			})
			return
		}
		writeJSON(w, map[string]any{
			"files": []map[string]any{{"id": "f2", "name": "Doc", "mimeType": "application/vnd.google-apps.document"}},
		})
	})
	mux.HandleFunc("DELETE /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if id == f.failFile {
			writeGoogleError(w, http.StatusForbidden, "insufficientFilePermissions")
			return
		}
		f.mu.Lock()
		f.deleted = append(f.deleted, id)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PATCH /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["trashed"] != true {
			http.Error(w, "expected trashed=true", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.trashed = append(f.trashed, r.PathValue("id"))
		f.mu.Unlock()
		writeJSON(w, map[string]any{"id": r.PathValue("id"), "trashed": true})
	})
	mux.HandleFunc("GET /files/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "missing" {
			writeGoogleError(w, http.StatusNotFound, "notFound")
			return
		}
		writeJSON(w, map[string]any{"id": r.PathValue("id"), "name": "single"})
	})
	mux.HandleFunc("GET /files/{id}/permissions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"permissions": []map[string]any{
				{"id": "p1", "emailAddress": "owner@x.com", "role": "owner"},
				{"id": "p2", "emailAddress": "u@x.com", "role": "reader"},
			},
		})
	})
	mux.HandleFunc("DELETE /files/{id}/permissions/{pid}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.revoked = append(f.revoked, r.PathValue("id")+"/"+r.PathValue("pid"))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeGoogleError(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": reason,
			"errors":  []map[string]any{{"reason": reason, "message": reason}},
		},
	})
}

func newTestSource(t *testing.T, fake *fakeDrive) *GoogleSource {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	src, err := NewGoogleSource(context.Background(), srv.Client(), option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return src
}

func TestGoogleSource_ListFollowsPagesAndMapsFields(t *testing.T) {
	src := newTestSource(t, &fakeDrive{})

	files, err := src.List(context.Background())
	require.NoError(t, err)
	require.Len(t, files, 2)

	f1 := files[0]
	assert.Equal(t, "f1", f1.ID)
	assert.Equal(t, "2048", f1.Size)
	assert.Equal(t, "2024-02-01T00:00:00.000Z", f1.ViewedByMeTime)
	require.Len(t, f1.Owners, 1)
	assert.Equal(t, "u@x.com", f1.Owners[0].Email)
	require.Len(t, f1.Permissions, 2)
	assert.Equal(t, RoleOwner, f1.Permissions[0].Role)
	require.Len(t, f1.Permissions[0].Details, 1)
	assert.Empty(t, f1.Permissions[0].Details[0].InheritedFrom)
	assert.Equal(t, "reader", f1.Permissions[1].Role)

	f2 := files[1]
	assert.Equal(t, "f2", f2.ID)
	assert.Empty(t, f2.Size, "native docs report no size")
	assert.Empty(t, f2.Owners)
}

func TestGoogleSource_Mutations(t *testing.T) {
	fake := &fakeDrive{failFile: "locked"}
	src := newTestSource(t, fake)
	ctx := context.Background()

	require.NoError(t, src.Delete(ctx, "f1"))
	require.NoError(t, src.Trash(ctx, "f2"))
	require.NoError(t, src.DeletePermission(ctx, "f3", "p2"))

	assert.Equal(t, []string{"f1"}, fake.deleted)
	assert.Equal(t, []string{"f2"}, fake.trashed)
	assert.Equal(t, []string{"f3/p2"}, fake.revoked)

	err := src.Delete(ctx, "locked")
	require.Error(t, err)
	var remote *RemoteAPIError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "delete", remote.Op)
	assert.Equal(t, "locked", remote.FileID)
}

func TestGoogleSource_ListPermissionsAndGet(t *testing.T) {
	src := newTestSource(t, &fakeDrive{})
	ctx := context.Background()

	perms, err := src.ListPermissions(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, perms, 2)
	assert.Equal(t, "p2", perms[1].ID)
	assert.Equal(t, "u@x.com", perms[1].Email)

	got, err := src.Get(ctx, "f9")
	require.NoError(t, err)
	assert.Equal(t, "single", got.Name)

	_, err = src.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, IsRateLimited(err))
}
