package models

import (
	"time"

	"gorm.io/gorm/clause"
)

// File is the local mirror of one Drive file, scoped to a single user.
// The combination of (UserID, FileID) is unique.
type File struct {
	ID               string     `gorm:"primaryKey" json:"id"` // UUID
	UserID           string     `gorm:"uniqueIndex:idx_user_file;index:idx_files_user;index:idx_user_viewed,priority:1;not null" json:"userId"`
	FileID           string     `gorm:"uniqueIndex:idx_user_file;not null" json:"fileid"`
	Name             string     `json:"name"`
	MimeType         string     `json:"mimeType"`
	Size             string     `gorm:"not null;default:'0'" json:"size"` // decimal bytes
	LastModifiedTime *time.Time `json:"lastModifiedTime"`
	LastViewedTime   *time.Time `gorm:"index:idx_user_viewed,priority:2" json:"lastViewedTime"` // nil = never viewed
	IsOwnedByUser    bool       `gorm:"default:false" json:"isOwnedByUser"`
	IsShared         bool       `gorm:"default:false" json:"isShared"`
	CanDelete        bool       `gorm:"default:false" json:"canDelete"`
	CanTrash         bool       `gorm:"default:false" json:"canTrash"`
	OwnerEmail       *string    `json:"ownerEmail"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// FileNaturalKey is the conflict target for file upserts.
var FileNaturalKey = []clause.Column{{Name: "user_id"}, {Name: "file_id"}}

// FileMutableColumns are overwritten when an upsert hits an existing row.
var FileMutableColumns = []string{
	"name",
	"mime_type",
	"size",
	"last_modified_time",
	"last_viewed_time",
	"is_owned_by_user",
	"is_shared",
	"can_delete",
	"can_trash",
	"owner_email",
	"updated_at",
}
