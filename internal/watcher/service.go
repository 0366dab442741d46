package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/index"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// Indexer applies a set of changed paths to the index.
type Indexer interface {
	IndexPaths(ctx context.Context, root string, paths []string) (*index.Result, error)
}

// ServiceDeps wires a Service.
type ServiceDeps struct {
	Watcher *Watcher
	Indexer Indexer
	// Store lists indexed paths when a .gitignore changes. Optional.
	Store store.Store
	// InvalidateGitignore drops cached ignore rules. Optional.
	InvalidateGitignore func()
	// OnResult is called after every applied batch. Optional.
	OnResult func(*index.Result)
	// RetryInterval paces retries of batches deferred by another run.
	RetryInterval time.Duration
}

// Service keeps the index in step with a watched tree.
type Service struct {
	deps    ServiceDeps
	backlog map[string]struct{}
}

// NewService validates deps.
func NewService(deps ServiceDeps) (*Service, error) {
	if deps.Watcher == nil || deps.Indexer == nil {
		return nil, fserrors.InternalError("watch service needs a watcher and an indexer", nil)
	}
	if deps.RetryInterval <= 0 {
		deps.RetryInterval = 5 * time.Second
	}
	return &Service{deps: deps, backlog: make(map[string]struct{})}, nil
}

// Run watches and indexes until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	w := s.deps.Watcher
	watchErr := make(chan error, 1)
	go func() { watchErr <- w.Run(ctx) }()

	retry := time.NewTicker(s.deps.RetryInterval)
	defer retry.Stop()

	batches, errs := w.Batches(), w.Errors()
	for batches != nil {
		select {
		case batch, ok := <-batches:
			if !ok {
				batches = nil
				continue
			}
			s.apply(ctx, s.paths(ctx, batch))
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			slog.Warn("watch_error", slog.String("error", err.Error()))
		case <-retry.C:
			if len(s.backlog) > 0 {
				s.apply(ctx, nil)
			}
		}
	}
	return <-watchErr
}

// paths turns a batch into the set of paths to re-check.
func (s *Service) paths(ctx context.Context, batch []Event) []string {
	var out []string
	for _, ev := range batch {
		switch {
		case ev.Operation == OpGitignoreChange:
			out = append(out, s.gitignoreScope(ctx, filepath.Dir(ev.Path))...)
		case ev.IsDir && ev.Operation != OpDelete && ev.Operation != OpRename:
			// Entries of new directories are reported individually.
		default:
			out = append(out, ev.Path)
		}
	}
	return out
}

// gitignoreScope returns every indexed path and every file on disk below
// dir, so that newly ignored files are dropped and newly unignored ones
// are picked up.
func (s *Service) gitignoreScope(ctx context.Context, dir string) []string {
	if s.deps.InvalidateGitignore != nil {
		s.deps.InvalidateGitignore()
	}
	slog.Info("watch_gitignore_changed", slog.String("dir", dir))

	var paths []string
	if s.deps.Store != nil {
		err := s.deps.Store.ScanLightweight(ctx, store.Filter{PathPrefix: dir + string(filepath.Separator)},
			func(rec *store.FileRecord) error {
				paths = append(paths, rec.Path)
				return nil
			})
		if err != nil {
			slog.Warn("watch_gitignore_scan_failed", slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && s.deps.Watcher.filter.skip(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !s.deps.Watcher.filter.skip(path, false) {
			paths = append(paths, path)
		}
		return nil
	})
	return paths
}

// apply indexes paths plus any backlog. A batch refused because another
// run holds the index is kept for the next attempt.
func (s *Service) apply(ctx context.Context, paths []string) {
	for p := range s.backlog {
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		return
	}

	res, err := s.deps.Indexer.IndexPaths(ctx, s.deps.Watcher.Root(), paths)
	switch {
	case errors.Is(err, fserrors.ErrAlreadyRunning):
		for _, p := range paths {
			s.backlog[p] = struct{}{}
		}
		slog.Info("watch_index_deferred", slog.Int("paths", len(s.backlog)))
		return
	case err != nil && ctx.Err() != nil:
		return
	case err != nil:
		slog.Error("watch_index_failed", append([]any{slog.Int("paths", len(paths))}, fserrors.LogAttrs(err)...)...)
	}
	clear(s.backlog)

	if res != nil {
		slog.Info("watch_batch_indexed",
			slog.Int("paths", len(paths)),
			slog.Int("indexed", res.Indexed),
			slog.Int("embedded", res.Embedded),
			slog.Int("deleted", res.Deleted),
			slog.Int("vanished", res.Vanished),
			slog.Int("errors", res.Errors))
		if s.deps.OnResult != nil {
			s.deps.OnResult(res)
		}
	}
}
