package cleanup

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pysugar/drivesweep/internal/db"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/pysugar/drivesweep/internal/logging"
)

// FileStore is the part of the metadata store the engine reads and writes.
type FileStore interface {
	UpsertFile(ctx context.Context, file *models.File) error
	FindFiles(ctx context.Context, q db.FileQuery) ([]models.File, error)
	UpdateLastScan(ctx context.Context, userID string, at time.Time) error
}

// SharedScope selects which shared files a listing returns.
type SharedScope string

const (
	// SharedScopeAny lists files carrying any non-owner grant.
	SharedScopeAny SharedScope = "any"
	// SharedScopeWithMe lists files someone else owns.
	SharedScopeWithMe SharedScope = "with-me"
)

// ParseSharedScope accepts "", "any" and "with-me".
func ParseSharedScope(s string) (SharedScope, error) {
	switch SharedScope(s) {
	case "", SharedScopeAny:
		return SharedScopeAny, nil
	case SharedScopeWithMe:
		return SharedScopeWithMe, nil
	}
	return "", fmt.Errorf("%w: unknown shared scope %q", ErrValidation, s)
}

// ReconcileResult counts what a reconcile pass did.
type ReconcileResult struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

// LargeFiles is the large-file view, largest first.
type LargeFiles struct {
	Files     []models.File `json:"files"`
	TotalSize int64         `json:"totalSize"`
	MinSize   int64         `json:"minSize"`
}

// Stats aggregates one user's stored files.
type Stats struct {
	TotalFiles       int64      `json:"totalFiles"`
	UnusedCount      int64      `json:"unusedFiles"`
	NeverViewedCount int64      `json:"neverViewedFiles"`
	SharedCount      int64      `json:"sharedFiles"`
	TotalSizeBytes   int64      `json:"totalSize"`
	UnusedSizeBytes  int64      `json:"unusedSize"`
	LastScanTime     *time.Time `json:"lastScanTime"`
}

// Engine reconciles remote listings into the store and derives views from it.
type Engine struct {
	store FileStore
	now   func() time.Time
}

func NewEngine(store FileStore) *Engine {
	return &Engine{store: store, now: time.Now}
}

// WithClock overrides the time source used to stamp scans.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Reconcile classifies each raw file and upserts it for the user.
// Malformed files and failed rows are skipped; rows missing from raws are kept.
func (e *Engine) Reconcile(ctx context.Context, user *models.User, raws []drive.RemoteFile) (ReconcileResult, error) {
	logger := logging.FromContext(ctx)

	var (
		res       ReconcileResult
		attempted int
		lastErr   error
	)
	for _, raw := range raws {
		file, err := Classify(raw, user.Email)
		if err != nil {
			logger.Warn().Err(err).Str("email", user.Email).Msg("⚠️ Skipping malformed file")
			res.Skipped++
			continue
		}
		file.UserID = user.ID

		attempted++
		if err := e.store.UpsertFile(ctx, &file); err != nil {
			logger.Warn().Err(err).Str("file_id", file.FileID).Msg("⚠️ Failed to store file")
			res.Skipped++
			lastErr = err
			continue
		}
		res.Upserted++
	}

	if attempted > 0 && res.Upserted == 0 {
		return res, fmt.Errorf("reconcile: every row failed: %w", lastErr)
	}

	now := e.now().UTC()
	if err := e.store.UpdateLastScan(ctx, user.ID, now); err != nil {
		return res, fmt.Errorf("reconcile: %w", err)
	}
	user.LastScanTime = &now

	logger.Info().Str("email", user.Email).Int("upserted", res.Upserted).Int("skipped", res.Skipped).Msg("🔁 Reconciled files")
	return res, nil
}

// Unused returns files never viewed or last viewed strictly before cutoff.
func (e *Engine) Unused(ctx context.Context, userID string, cutoff time.Time) ([]models.File, error) {
	cutoff = cutoff.UTC()
	return e.store.FindFiles(ctx, db.FileQuery{UserID: userID, UnusedBefore: &cutoff})
}

// Large returns files of at least minSize bytes, largest first, with their summed size.
func (e *Engine) Large(ctx context.Context, userID string, minSize int64) (LargeFiles, error) {
	all, err := e.store.FindFiles(ctx, db.FileQuery{UserID: userID})
	if err != nil {
		return LargeFiles{}, err
	}

	out := LargeFiles{Files: []models.File{}, MinSize: minSize}
	for _, f := range all {
		size := ParseSize(f.Size)
		if size < minSize {
			continue
		}
		out.Files = append(out.Files, f)
		out.TotalSize += size
	}
	slices.SortStableFunc(out.Files, func(a, b models.File) int {
		if c := cmp.Compare(ParseSize(b.Size), ParseSize(a.Size)); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out, nil
}

// Shared returns the user's shared files for the given scope.
func (e *Engine) Shared(ctx context.Context, userID string, scope SharedScope) ([]models.File, error) {
	q := db.FileQuery{UserID: userID}
	switch scope {
	case SharedScopeAny, "":
		yes := true
		q.Shared = &yes
	case SharedScopeWithMe:
		no := false
		q.Owned = &no
	default:
		return nil, fmt.Errorf("%w: unknown shared scope %q", ErrValidation, scope)
	}
	return e.store.FindFiles(ctx, q)
}

// Stats aggregates the user's files from a single read so counts and sums agree.
func (e *Engine) Stats(ctx context.Context, user *models.User, cutoff time.Time) (Stats, error) {
	files, err := e.store.FindFiles(ctx, db.FileQuery{
		UserID:  user.ID,
		Columns: []string{"file_id", "size", "last_viewed_time", "is_shared"},
		OrderBy: "file_id ASC",
	})
	if err != nil {
		return Stats{}, err
	}

	st := Stats{LastScanTime: user.LastScanTime}
	for _, f := range files {
		size := ParseSize(f.Size)
		st.TotalFiles++
		st.TotalSizeBytes += size
		if f.IsShared {
			st.SharedCount++
		}
		if IsUnused(&f, cutoff) {
			st.UnusedCount++
			st.UnusedSizeBytes += size
			if f.LastViewedTime == nil {
				st.NeverViewedCount++
			}
		}
	}
	return st, nil
}

// IsUnused applies the unused predicate to one stored file.
func IsUnused(f *models.File, cutoff time.Time) bool {
	return f.LastViewedTime == nil || f.LastViewedTime.Before(cutoff)
}
