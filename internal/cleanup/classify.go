// Package cleanup classifies Drive files, reconciles listings into the metadata store
// and derives the unused, large and shared views a cleanup works from.
package cleanup

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/drive"
)

const (
	DefaultName     = "Untitled"
	DefaultMimeType = "unknown"
	DefaultSize     = "0"
)

// Classify derives the stored form of one remote file for the syncing user.
// The returned file has no UserID or ID; the caller scopes it.
func Classify(raw drive.RemoteFile, syncingUserEmail string) (models.File, error) {
	if raw.ID == "" {
		return models.File{}, fmt.Errorf("%w: file without id", ErrValidation)
	}

	modified, err := parseTimestamp(raw.ModifiedTime)
	if err != nil {
		return models.File{}, fmt.Errorf("%w: file %s modifiedTime: %v", ErrValidation, raw.ID, err)
	}
	viewed, err := parseTimestamp(raw.ViewedByMeTime)
	if err != nil {
		return models.File{}, fmt.Errorf("%w: file %s viewedByMeTime: %v", ErrValidation, raw.ID, err)
	}

	f := models.File{
		FileID:           raw.ID,
		Name:             orDefault(raw.Name, DefaultName),
		MimeType:         orDefault(raw.MimeType, DefaultMimeType),
		Size:             orDefault(raw.Size, DefaultSize),
		LastModifiedTime: modified,
		LastViewedTime:   viewed,
	}

	if len(raw.Owners) > 0 {
		owner := raw.Owners[0].Email
		f.OwnerEmail = &owner
		f.IsOwnedByUser = owner == syncingUserEmail
	}

	for _, p := range raw.Permissions {
		if p.Role != drive.RoleOwner {
			f.IsShared = true
		}
		for _, d := range p.Details {
			if d.Role == drive.RoleOwner && d.InheritedFrom == "" {
				f.CanDelete = true
			}
		}
	}

	// No signal grants trash rights yet.
	f.CanTrash = false
	return f, nil
}

// ParseSize reads a stored size string; unparsable or negative values count as zero.
func ParseSize(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseTimestamp(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
