// Package drive is the remote file source: the Drive listing and the mutations a cleanup applies to it.
package drive

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

const (
	RoleOwner = "owner"

	// FolderMimeType marks Drive folders.
	FolderMimeType = "application/vnd.google-apps.folder"
)

// RemoteFile is one file as reported by the Drive listing. Empty strings mean the field was absent.
type RemoteFile struct {
	ID             string
	Name           string
	MimeType       string
	Size           string
	ModifiedTime   string
	ViewedByMeTime string
	Owners         []Owner
	Permissions    []Permission
}

type Owner struct {
	Email string
}

// Permission is one sharing grant on a file.
type Permission struct {
	ID      string
	Email   string
	Role    string
	Details []PermissionDetail
}

// PermissionDetail explains where a grant comes from; InheritedFrom is empty for direct grants.
type PermissionDetail struct {
	Role          string
	InheritedFrom string
}

// Source is the remote side of a cleanup, bound to one user's credentials.
type Source interface {
	List(ctx context.Context) ([]RemoteFile, error)
	Get(ctx context.Context, fileID string) (*RemoteFile, error)
	Delete(ctx context.Context, fileID string) error
	Trash(ctx context.Context, fileID string) error
	ListPermissions(ctx context.Context, fileID string) ([]Permission, error)
	DeletePermission(ctx context.Context, fileID, permissionID string) error
}

// Factory builds a Source for the given credentials.
type Factory func(ctx context.Context, token *oauth2.Token) (Source, error)

// RemoteAPIError wraps a failed Drive call.
type RemoteAPIError struct {
	Op     string
	FileID string
	Err    error
}

func (e *RemoteAPIError) Error() string {
	if e.FileID == "" {
		return fmt.Sprintf("drive %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("drive %s %s: %v", e.Op, e.FileID, e.Err)
}

func (e *RemoteAPIError) Unwrap() error { return e.Err }

func remoteErr(op, fileID string, err error) error {
	if err == nil {
		return nil
	}
	return &RemoteAPIError{Op: op, FileID: fileID, Err: err}
}

// IsNotFound reports whether err is a Drive 404.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsRateLimited reports whether Drive rejected the call for quota reasons.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests) || hasReason(err, "userRateLimitExceeded", "rateLimitExceeded")
}

func hasStatus(err error, code int) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

func hasReason(err error, reasons ...string) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	for _, item := range gErr.Errors {
		for _, r := range reasons {
			if item.Reason == r {
				return true
			}
		}
	}
	return false
}
