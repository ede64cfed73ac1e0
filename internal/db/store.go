package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pysugar/drivesweep/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a user or file row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the metadata store for users and their files.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// FileQuery selects a subset of one user's files.
type FileQuery struct {
	UserID string
	// UnusedBefore keeps files never viewed or last viewed strictly before the cutoff.
	UnusedBefore *time.Time
	Shared       *bool
	Owned        *bool
	FileIDs      []string
	// Columns restricts the projection; empty means all columns.
	Columns []string
	OrderBy string
}

func (s *Store) scoped(ctx context.Context, q FileQuery) *gorm.DB {
	tx := s.db.WithContext(ctx).Model(&models.File{}).Where("user_id = ?", q.UserID)
	if q.UnusedBefore != nil {
		tx = tx.Where("(last_viewed_time IS NULL OR last_viewed_time < ?)", q.UnusedBefore.UTC())
	}
	if q.Shared != nil {
		tx = tx.Where("is_shared = ?", *q.Shared)
	}
	if q.Owned != nil {
		tx = tx.Where("is_owned_by_user = ?", *q.Owned)
	}
	if len(q.FileIDs) > 0 {
		tx = tx.Where("file_id IN ?", q.FileIDs)
	}
	return tx
}

// FindFiles returns the files matching q.
func (s *Store) FindFiles(ctx context.Context, q FileQuery) ([]models.File, error) {
	tx := s.scoped(ctx, q)
	if len(q.Columns) > 0 {
		tx = tx.Select(q.Columns)
	}
	order := q.OrderBy
	if order == "" {
		order = "name ASC"
	}

	var files []models.File
	if err := tx.Order(order).Find(&files).Error; err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}
	return files, nil
}

// CountFiles counts the files matching q.
func (s *Store) CountFiles(ctx context.Context, q FileQuery) (int64, error) {
	var count int64
	if err := s.scoped(ctx, q).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return count, nil
}

// FindFile loads a single file by its Drive id.
func (s *Store) FindFile(ctx context.Context, userID, fileID string) (*models.File, error) {
	var file models.File
	err := s.db.WithContext(ctx).Where("user_id = ? AND file_id = ?", userID, fileID).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find file %s: %w", fileID, err)
	}
	return &file, nil
}

// UpsertFile inserts the file or overwrites the metadata of the row with the same (user_id, file_id).
func (s *Store) UpsertFile(ctx context.Context, file *models.File) error {
	if file.ID == "" {
		file.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   models.FileNaturalKey,
		DoUpdates: clause.AssignmentColumns(models.FileMutableColumns),
	}).Create(file).Error
	if err != nil {
		return fmt.Errorf("upsert file %s: %w", file.FileID, err)
	}
	return nil
}

// DeleteFile removes one local file row. Deleting a missing row is not an error.
func (s *Store) DeleteFile(ctx context.Context, userID, fileID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND file_id = ?", userID, fileID).
		Delete(&models.File{}).Error
	if err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// FindUserByEmail looks a user up by email.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

// FindUserBySession looks a user up by its opaque session token.
func (s *Store) FindUserBySession(ctx context.Context, sessionToken string) (*models.User, error) {
	if sessionToken == "" {
		return nil, ErrNotFound
	}
	return s.findUser(ctx, "session_token = ?", sessionToken)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// SaveUser persists every column of the user.
func (s *Store) SaveUser(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("save user %s: %w", user.Email, err)
	}
	return nil
}

// UpsertUserByGoogleID saves the user, reusing the existing row for the same Google account.
func (s *Store) UpsertUserByGoogleID(ctx context.Context, user *models.User) error {
	var existing models.User
	err := s.db.WithContext(ctx).Where("google_user_id = ?", user.GoogleUserID).First(&existing).Error
	switch {
	case err == nil:
		user.ID = existing.ID
		user.CreatedAt = existing.CreatedAt
		user.LastScanTime = existing.LastScanTime
		if user.RefreshToken == "" {
			user.RefreshToken = existing.RefreshToken
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		user.ID = uuid.New().String()
	default:
		return fmt.Errorf("find user by google id: %w", err)
	}
	return s.SaveUser(ctx, user)
}

// UpdateLastScan stamps the user's last scan time.
func (s *Store) UpdateLastScan(ctx context.Context, userID string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_scan_time", at.UTC())
	if res.Error != nil {
		return fmt.Errorf("update last scan: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the user; the files cascade.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
