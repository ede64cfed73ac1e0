package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pysugar/drivesweep/internal/bulk"
	"github.com/pysugar/drivesweep/internal/cache"
	"github.com/pysugar/drivesweep/internal/config"
	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/pysugar/drivesweep/internal/logging"
	"golang.org/x/oauth2"
)

// Store is everything the service needs from the metadata store.
type Store interface {
	FileStore
	bulk.FileStore
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// Credentials yields a usable token for the user's next Drive calls.
type Credentials interface {
	EnsureFresh(ctx context.Context, user *models.User) *oauth2.Token
}

// Deps wires a Service.
type Deps struct {
	Store    Store
	Creds    Credentials
	Sources  drive.Factory
	Executor *bulk.Executor
	Cache    cache.Cache
	Config   config.CleanupConfig
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Total    int `json:"total"`
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
	// Stale counts listed files not modified within the stale window.
	Stale int `json:"stale"`
}

// Service is the cleanup surface used by the HTTP API and the CLI. Every call is addressed by user email.
type Service struct {
	store    Store
	engine   *Engine
	creds    Credentials
	sources  drive.Factory
	executor *bulk.Executor
	cache    cache.Cache
	cfg      config.CleanupConfig
	now      func() time.Time
}

func NewService(d Deps) *Service {
	c := d.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Service{
		store:    d.Store,
		engine:   NewEngine(d.Store),
		creds:    d.Creds,
		sources:  d.Sources,
		executor: d.Executor,
		cache:    c,
		cfg:      d.Config,
		now:      time.Now,
	}
}

// WithClock overrides the time source for cutoffs and scan stamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.engine.WithClock(now)
	return s
}

// Scan lists the user's Drive and reconciles it into the store.
func (s *Service) Scan(ctx context.Context, email string) (ScanResult, error) {
	user, err := s.user(ctx, email)
	if err != nil {
		return ScanResult{}, err
	}
	src, err := s.source(ctx, user)
	if err != nil {
		return ScanResult{}, err
	}

	logger := logging.FromContext(ctx)
	logger.Info().Str("email", user.Email).Msg("🔍 Scanning Drive")

	raws, err := src.List(ctx)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan %s: %w", user.Email, err)
	}

	rec, err := s.engine.Reconcile(ctx, user, raws)
	if err != nil {
		return ScanResult{}, fmt.Errorf("scan %s: %w", user.Email, err)
	}
	s.invalidate(ctx, user)

	return ScanResult{
		Total:    len(raws),
		Upserted: rec.Upserted,
		Skipped:  rec.Skipped,
		Stale:    countStale(raws, s.now().Add(-s.cfg.StaleModifiedAfter)),
	}, nil
}

// ListUnused returns the user's unused files.
func (s *Service) ListUnused(ctx context.Context, email string) ([]models.File, error) {
	user, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.engine.Unused(ctx, user.ID, s.unusedCutoff())
}

// ListShared returns the user's shared files for scope.
func (s *Service) ListShared(ctx context.Context, email string, scope SharedScope) ([]models.File, error) {
	user, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.engine.Shared(ctx, user.ID, scope)
}

// ListLarge returns files of at least minSize bytes; minSize <= 0 uses the configured threshold.
func (s *Service) ListLarge(ctx context.Context, email string, minSize int64) (LargeFiles, error) {
	user, err := s.user(ctx, email)
	if err != nil {
		return LargeFiles{}, err
	}
	if minSize <= 0 {
		minSize = s.cfg.LargeMinSize
	}
	return s.engine.Large(ctx, user.ID, minSize)
}

// GetStats returns the user's aggregate stats, served from the cache when possible.
func (s *Service) GetStats(ctx context.Context, email string) (Stats, error) {
	user, err := s.user(ctx, email)
	if err != nil {
		return Stats{}, err
	}

	logger := logging.FromContext(ctx)
	key := cache.StatsKey(user.ID)

	var cached Stats
	hit, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		logger.Warn().Err(err).Msg("⚠️ Stats cache read failed")
	}
	if hit {
		return cached, nil
	}

	st, err := s.engine.Stats(ctx, user, s.unusedCutoff())
	if err != nil {
		return Stats{}, err
	}
	if err := s.cache.Set(ctx, key, st); err != nil {
		logger.Warn().Err(err).Msg("⚠️ Stats cache write failed")
	}
	return st, nil
}

// GetFile returns one stored file.
func (s *Service) GetFile(ctx context.Context, email, fileID string) (*models.File, error) {
	if fileID == "" {
		return nil, fmt.Errorf("%w: file id is required", ErrValidation)
	}
	user, err := s.user(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.FindFile(ctx, user.ID, fileID)
}

// BulkDelete permanently deletes the files.
func (s *Service) BulkDelete(ctx context.Context, email string, fileIDs []string) (bulk.Result, error) {
	return s.bulk(ctx, email, fileIDs, bulk.ActionDelete)
}

// BulkTrash moves the files to the trash.
func (s *Service) BulkTrash(ctx context.Context, email string, fileIDs []string) (bulk.Result, error) {
	return s.bulk(ctx, email, fileIDs, bulk.ActionTrash)
}

// BulkUnshare removes files other people shared with the user from the user's view.
func (s *Service) BulkUnshare(ctx context.Context, email string, fileIDs []string) (bulk.Result, error) {
	return s.bulk(ctx, email, fileIDs, bulk.ActionUnshare)
}

func (s *Service) bulk(ctx context.Context, email string, fileIDs []string, action bulk.Action) (bulk.Result, error) {
	if err := validateFileIDs(fileIDs); err != nil {
		return bulk.Result{}, err
	}
	user, err := s.user(ctx, email)
	if err != nil {
		return bulk.Result{}, err
	}
	src, err := s.source(ctx, user)
	if err != nil {
		return bulk.Result{}, err
	}

	res, err := s.executor.Execute(ctx, user, src, fileIDs, action)
	if err != nil {
		return bulk.Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	s.invalidate(ctx, user)
	return res, nil
}

func (s *Service) user(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrValidation)
	}
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", email, err)
	}
	return user, nil
}

// source refreshes credentials once and binds a Source to them.
func (s *Service) source(ctx context.Context, user *models.User) (drive.Source, error) {
	tok := s.creds.EnsureFresh(ctx, user)
	src, err := s.sources(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("drive client for %s: %w", user.Email, err)
	}
	return src, nil
}

func (s *Service) invalidate(ctx context.Context, user *models.User) {
	if err := s.cache.Delete(ctx, cache.StatsKey(user.ID)); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("⚠️ Stats cache invalidation failed")
	}
}

func (s *Service) unusedCutoff() time.Time {
	return s.now().Add(-s.cfg.UnusedAfter)
}

func validateFileIDs(ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: fileIds must be a non-empty list", ErrValidation)
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: fileIds must not contain empty ids", ErrValidation)
		}
	}
	return nil
}

func countStale(raws []drive.RemoteFile, cutoff time.Time) int {
	n := 0
	for _, raw := range raws {
		t, err := parseTimestamp(raw.ModifiedTime)
		if err != nil || t == nil {
			continue
		}
		if t.Before(cutoff) {
			n++
		}
	}
	return n
}
