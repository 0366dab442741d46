package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

const gitignoreName = ".gitignore"

// Watcher reports debounced changes below one root directory.
type Watcher struct {
	root   string
	opts   Options
	filter *filter

	fsw       *fsnotify.Watcher // nil in polling mode
	debouncer *Debouncer

	batches chan []Event
	errs    chan error

	stopOnce sync.Once
	stopCh   chan struct{}
	dropped  atomic.Uint64
}

// New prepares a watcher for root, which must be an existing directory.
// It falls back to polling when fsnotify is unavailable.
func New(root string, opts Options) (*Watcher, error) {
	opts = opts.withDefaults()

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.FileError(root, "resolve", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fserrors.FileError(abs, "stat", err)
	}
	if !info.IsDir() {
		return nil, fserrors.New(fserrors.ErrCodeInvalidPath, "watch root is not a directory", nil).
			WithDetail("path", abs)
	}

	w := &Watcher{
		root:      abs,
		opts:      opts,
		filter:    newFilter(abs, opts.IgnorePatterns, opts.IgnorePaths),
		debouncer: NewDebouncer(opts.Debounce),
		batches:   make(chan []Event, opts.BufferSize),
		errs:      make(chan error, 16),
		stopCh:    make(chan struct{}),
	}

	if !opts.Polling {
		fsw, err := fsnotify.NewWatcher()
		if err != nil {
			slog.Warn("watch_fsnotify_unavailable", slog.String("error", err.Error()))
		} else {
			w.fsw = fsw
		}
	}
	return w, nil
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string { return w.root }

// Mode returns "fsnotify" or "polling".
func (w *Watcher) Mode() string {
	if w.fsw != nil {
		return "fsnotify"
	}
	return "polling"
}

// Batches delivers debounced events. It is closed when Run returns.
func (w *Watcher) Batches() <-chan []Event { return w.batches }

// Errors delivers non-fatal watch errors. It is closed when Run returns.
func (w *Watcher) Errors() <-chan error { return w.errs }

// Dropped returns the number of batches lost to a full buffer.
func (w *Watcher) Dropped() uint64 { return w.dropped.Load() }

// Stop makes Run return. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

// Run watches until ctx is done or Stop is called. Cancellation is a normal
// stop and returns nil; errors are only returned when watching cannot start.
func (w *Watcher) Run(ctx context.Context) error {
	var fwd sync.WaitGroup
	fwd.Add(1)
	go func() {
		defer fwd.Done()
		w.forward()
	}()

	var err error
	if w.fsw != nil {
		err = w.runFsnotify(ctx)
	} else {
		err = w.runPolling(ctx)
	}

	w.debouncer.Stop()
	fwd.Wait()
	if w.fsw != nil {
		_ = w.fsw.Close()
	}
	close(w.batches)
	close(w.errs)
	return err
}

func (w *Watcher) forward() {
	for batch := range w.debouncer.Output() {
		select {
		case w.batches <- batch:
		default:
			n := w.dropped.Add(1)
			slog.Warn("watch_batch_dropped",
				slog.Int("events", len(batch)),
				slog.Uint64("total_dropped", n))
		}
	}
}

func (w *Watcher) runFsnotify(ctx context.Context) error {
	if err := w.addTree(w.root, false); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	slog.Info("watch_started", slog.String("root", w.root), slog.String("mode", "fsnotify"))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	var op Operation
	switch {
	case ev.Has(fsnotify.Create):
		op = OpCreate
	case ev.Has(fsnotify.Write):
		op = OpModify
	case ev.Has(fsnotify.Remove):
		op = OpDelete
	case ev.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	isDir := false
	if info, err := os.Lstat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	if op == OpCreate && isDir {
		// Files moved in with the directory produce no events of their own.
		if w.filter.skip(ev.Name, true) {
			return
		}
		if err := w.addTree(ev.Name, true); err != nil {
			w.emitError(err)
		}
		return
	}
	w.report(ev.Name, op, isDir)
}

// report filters one change and hands it to the debouncer.
func (w *Watcher) report(path string, op Operation, isDir bool) {
	if w.filter.skip(path, isDir) {
		return
	}
	if filepath.Base(path) == gitignoreName {
		op = OpGitignoreChange
	}
	w.debouncer.Add(Event{Path: path, Operation: op, IsDir: isDir, Time: time.Now()})
}

// addTree watches dir and every non-ignored directory below it. With
// announce set, files found on the way are reported as created.
func (w *Watcher) addTree(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			slog.Debug("watch_walk_error", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if !d.IsDir() {
			if announce {
				w.report(path, OpCreate, false)
			}
			return nil
		}
		if path != w.root && w.filter.skip(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			if path == dir {
				return err
			}
			slog.Warn("watch_add_failed", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *Watcher) emitError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
