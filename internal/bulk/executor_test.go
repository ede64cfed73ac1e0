package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/pysugar/drivesweep/internal/db"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeSource struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]bool
	block   map[string]bool
	perms   map[string][]drive.Permission
	revoked []string
}

func (f *fakeSource) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeSource) outcome(ctx context.Context, id string) error {
	if f.block[id] {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.fail[id] {
		return &drive.RemoteAPIError{Op: "test", FileID: id, Err: errors.New("boom")}
	}
	return nil
}

func (f *fakeSource) List(ctx context.Context) ([]drive.RemoteFile, error) { return nil, nil }

func (f *fakeSource) Get(ctx context.Context, fileID string) (*drive.RemoteFile, error) {
	return nil, errors.New("not used")
}

func (f *fakeSource) Delete(ctx context.Context, fileID string) error {
	f.record("delete:" + fileID)
	return f.outcome(ctx, fileID)
}

func (f *fakeSource) Trash(ctx context.Context, fileID string) error {
	f.record("trash:" + fileID)
	return f.outcome(ctx, fileID)
}

func (f *fakeSource) ListPermissions(ctx context.Context, fileID string) ([]drive.Permission, error) {
	f.record("permissions:" + fileID)
	if err := f.outcome(ctx, fileID); err != nil {
		return nil, err
	}
	return f.perms[fileID], nil
}

func (f *fakeSource) DeletePermission(ctx context.Context, fileID, permissionID string) error {
	f.record("revoke:" + fileID)
	f.mu.Lock()
	f.revoked = append(f.revoked, fileID+"/"+permissionID)
	f.mu.Unlock()
	return nil
}

func newTestStore(t *testing.T) *db.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db.NewStore(database)
}

func seed(t *testing.T, s *db.Store, files ...models.File) *models.User {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Email: "u@x.com", GoogleUserID: "g-1"}
	require.NoError(t, s.SaveUser(ctx, user))
	for i := range files {
		files[i].UserID = user.ID
		require.NoError(t, s.UpsertFile(ctx, &files[i]))
	}
	return user
}

func remaining(t *testing.T, s *db.Store, userID string) []string {
	t.Helper()
	files, err := s.FindFiles(context.Background(), db.FileQuery{UserID: userID, OrderBy: "file_id ASC"})
	require.NoError(t, err)
	ids := []string{}
	for _, f := range files {
		ids = append(ids, f.FileID)
	}
	return ids
}

func TestExecute_DeleteIsolatesFailure(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "f1"}, models.File{FileID: "f2"})
	src := &fakeSource{fail: map[string]bool{"f2": true}}

	res, err := NewExecutor(s, Options{}).Execute(context.Background(), user, src, []string{"f1", "f2"}, ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, res.Succeeded)
	assert.Equal(t, []string{"f2"}, res.Failed)
	assert.Equal(t, []string{"f2"}, remaining(t, s, user.ID))
}

func TestExecute_FailureIsolationAcrossActions(t *testing.T) {
	for _, action := range []Action{ActionDelete, ActionTrash} {
		for _, concurrency := range []int{1, 4} {
			t.Run(fmt.Sprintf("%s/concurrency=%d", action, concurrency), func(t *testing.T) {
				s := newTestStore(t)
				var files []models.File
				var ids []string
				for i := 0; i < 6; i++ {
					id := fmt.Sprintf("f%d", i)
					files = append(files, models.File{FileID: id})
					ids = append(ids, id)
				}
				user := seed(t, s, files...)
				src := &fakeSource{fail: map[string]bool{"f3": true}}

				res, err := NewExecutor(s, Options{Concurrency: concurrency}).Execute(context.Background(), user, src, ids, action)
				require.NoError(t, err)
				assert.Equal(t, []string{"f0", "f1", "f2", "f4", "f5"}, res.Succeeded)
				assert.Equal(t, []string{"f3"}, res.Failed)
				assert.Equal(t, []string{"f3"}, remaining(t, s, user.ID))
			})
		}
	}
}

func TestExecute_UnshareRefusesOwnedFilesWithoutRemoteCalls(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "mine", IsOwnedByUser: true})
	src := &fakeSource{}

	res, err := NewExecutor(s, Options{}).Execute(context.Background(), user, src, []string{"mine", "unknown"}, ActionUnshare)
	require.NoError(t, err)
	assert.Empty(t, res.Succeeded)
	assert.Equal(t, []string{"mine", "unknown"}, res.Failed)
	assert.Empty(t, src.calls)
	assert.Equal(t, []string{"mine"}, remaining(t, s, user.ID))
}

func TestExecute_UnshareRevokesMatchingPermission(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "theirs"}, models.File{FileID: "link-only"}, models.File{FileID: "broken"})
	src := &fakeSource{
		fail: map[string]bool{"broken": true},
		perms: map[string][]drive.Permission{
			"theirs": {
				{ID: "p-owner", Email: "owner@x.com", Role: "owner"},
				{ID: "p-me", Email: "U@X.com", Role: "reader"},
			},
			"link-only": {{ID: "anyone", Role: "reader"}},
		},
	}

	res, err := NewExecutor(s, Options{}).Execute(context.Background(), user, src, []string{"theirs", "link-only", "broken"}, ActionUnshare)
	require.NoError(t, err)
	assert.Equal(t, []string{"theirs", "link-only"}, res.Succeeded)
	assert.Equal(t, []string{"broken"}, res.Failed)
	assert.Equal(t, []string{"theirs/p-me"}, src.revoked)
	assert.Equal(t, []string{"broken"}, remaining(t, s, user.ID))
}

func TestExecute_DuplicatesProcessedOnce(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "f1"})
	src := &fakeSource{}

	res, err := NewExecutor(s, Options{}).Execute(context.Background(), user, src, []string{"f1", "f1"}, ActionTrash)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1"}, res.Succeeded)
	assert.Equal(t, []string{"trash:f1"}, src.calls)
}

func TestExecute_CallTimeoutCountsAsFailure(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "slow"}, models.File{FileID: "fast"})
	src := &fakeSource{block: map[string]bool{"slow": true}}

	start := time.Now()
	res, err := NewExecutor(s, Options{CallTimeout: 20 * time.Millisecond}).Execute(context.Background(), user, src, []string{"slow", "fast"}, ActionDelete)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, []string{"fast"}, res.Succeeded)
	assert.Equal(t, []string{"slow"}, res.Failed)
}

func TestExecute_RunsToCompletionAfterCancel(t *testing.T) {
	s := newTestStore(t)
	user := seed(t, s, models.File{FileID: "f1"}, models.File{FileID: "f2"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewExecutor(s, Options{}).Execute(ctx, user, &fakeSource{}, []string{"f1", "f2"}, ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, res.Succeeded)
}

func TestExecute_UnknownAction(t *testing.T) {
	src := &fakeSource{}
	_, err := NewExecutor(newTestStore(t), Options{}).Execute(context.Background(), &models.User{}, src, []string{"f1"}, Action("shred"))
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Empty(t, src.calls)
}

func TestParseAction(t *testing.T) {
	for _, name := range []string{"delete", "trash", "unshare"} {
		a, err := ParseAction(name)
		require.NoError(t, err)
		assert.Equal(t, Action(name), a)
	}
	_, err := ParseAction("remove")
	assert.ErrorIs(t, err, ErrUnknownAction)
}
