package cleanup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pysugar/drivesweep/internal/db"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db.NewStore(database)
}

func seedUser(t *testing.T, s *db.Store, email string) *models.User {
	t.Helper()
	user := &models.User{
		Email:                email,
		Name:                 "Test User",
		GoogleUserID:         "g-" + email,
		SessionToken:         uuid.NewString(),
		AccessToken:          "access",
		RefreshToken:         "refresh",
		AccessTokenExpiresAt: fixedNow.Add(time.Hour),
	}
	require.NoError(t, s.SaveUser(context.Background(), user))
	return user
}

func ptrTime(t time.Time) *time.Time { return &t }

func fileIDs(files []models.File) []string {
	ids := make([]string, 0, len(files))
	for _, f := range files {
		ids = append(ids, f.FileID)
	}
	return ids
}
