// Package bulk applies delete, trash and unshare to many files, isolating each file's outcome.
package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pysugar/drivesweep/internal/db/models"
	"github.com/pysugar/drivesweep/internal/drive"
	"github.com/pysugar/drivesweep/internal/logging"
	"golang.org/x/sync/errgroup"
)

// Action is a bulk mutation.
type Action string

const (
	ActionDelete  Action = "delete"
	ActionTrash   Action = "trash"
	ActionUnshare Action = "unshare"
)

// DefaultCallTimeout bounds each remote call.
const DefaultCallTimeout = 30 * time.Second

var (
	// ErrUnknownAction is returned before any call when the action is not supported.
	ErrUnknownAction = errors.New("unknown bulk action")
	// ErrOwnedFile refuses to unshare a file the user owns.
	ErrOwnedFile = errors.New("owned files must be deleted or trashed, not unshared")
)

// ParseAction maps a name to an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionDelete, ActionTrash, ActionUnshare:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// FileStore is the part of the metadata store the executor touches.
type FileStore interface {
	FindFile(ctx context.Context, userID, fileID string) (*models.File, error)
	DeleteFile(ctx context.Context, userID, fileID string) error
}

// Result lists file ids by outcome, in input order.
type Result struct {
	Succeeded []string `json:"succeeded"`
	Failed    []string `json:"failed"`
}

// Options tunes an Executor.
type Options struct {
	// Concurrency above 1 runs that many files at once.
	Concurrency int
	CallTimeout time.Duration
}

// Executor runs bulk actions against a Source and keeps the store in step.
type Executor struct {
	store FileStore
	opts  Options
}

func NewExecutor(store FileStore, opts Options) *Executor {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Executor{store: store, opts: opts}
}

// Execute applies action to each file id independently. A failing file never stops the others.
// Once started the batch runs to completion even if ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, user *models.User, src drive.Source, fileIDs []string, action Action) (Result, error) {
	if _, err := ParseAction(string(action)); err != nil {
		return Result{}, err
	}

	ctx = context.WithoutCancel(ctx)
	ids := dedupe(fileIDs)
	outcomes := make([]error, len(ids))

	if e.opts.Concurrency == 1 {
		for i, id := range ids {
			outcomes[i] = e.apply(ctx, user, src, id, action)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.opts.Concurrency)
		for i, id := range ids {
			g.Go(func() error {
				outcomes[i] = e.apply(ctx, user, src, id, action)
				return nil
			})
		}
		_ = g.Wait()
	}

	logger := logging.FromContext(ctx)
	res := Result{Succeeded: []string{}, Failed: []string{}}
	for i, id := range ids {
		if err := outcomes[i]; err != nil {
			logger.Warn().Err(err).Str("file_id", id).Str("action", string(action)).Msg("❌ Bulk action failed")
			res.Failed = append(res.Failed, id)
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}

	logger.Info().
		Str("email", user.Email).
		Str("action", string(action)).
		Int("succeeded", len(res.Succeeded)).
		Int("failed", len(res.Failed)).
		Msg("🧹 Bulk action finished")
	return res, nil
}

func (e *Executor) apply(ctx context.Context, user *models.User, src drive.Source, fileID string, action Action) error {
	var err error
	switch action {
	case ActionDelete:
		err = e.call(ctx, func(ctx context.Context) error { return src.Delete(ctx, fileID) })
	case ActionTrash:
		err = e.call(ctx, func(ctx context.Context) error { return src.Trash(ctx, fileID) })
	case ActionUnshare:
		err = e.unshare(ctx, user, src, fileID)
	}
	if err != nil {
		return err
	}

	// The remote change is done; a stale row is rewritten or left for the next scan.
	if err := e.store.DeleteFile(ctx, user.ID, fileID); err != nil {
		logging.FromContext(ctx).Error().Err(err).Str("file_id", fileID).Msg("⚠️ Failed to remove local row")
	}
	return nil
}

func (e *Executor) unshare(ctx context.Context, user *models.User, src drive.Source, fileID string) error {
	file, err := e.store.FindFile(ctx, user.ID, fileID)
	if err != nil {
		return fmt.Errorf("unshare %s: %w", fileID, err)
	}
	if file.IsOwnedByUser {
		return fmt.Errorf("unshare %s: %w", fileID, ErrOwnedFile)
	}

	var perms []drive.Permission
	err = e.call(ctx, func(ctx context.Context) error {
		var err error
		perms, err = src.ListPermissions(ctx, fileID)
		return err
	})
	if err != nil {
		return err
	}

	for _, p := range perms {
		if p.Email == "" || !strings.EqualFold(p.Email, user.Email) {
			continue
		}
		return e.call(ctx, func(ctx context.Context) error { return src.DeletePermission(ctx, fileID, p.ID) })
	}
	// Nothing to revoke; the file is already out of the user's view.
	return nil
}

func (e *Executor) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.opts.CallTimeout)
	defer cancel()
	return fn(ctx)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
