package models

import "time"

// User stores the Google identity, its OAuth tokens and the local session.
type User struct {
	ID                   string     `gorm:"primaryKey" json:"id"` // UUID
	Name                 string     `json:"name"`
	Email                string     `gorm:"uniqueIndex;not null" json:"email"`
	GoogleUserID         string     `gorm:"uniqueIndex;not null" json:"googleUserID"`
	AccessToken          string     `json:"-"`
	RefreshToken         string     `json:"-"`
	AccessTokenExpiresAt time.Time  `json:"-"`
	SessionToken         string     `gorm:"index" json:"-"`
	LastScanTime         *time.Time `json:"lastScanTime"`
	Files                []File     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}
