package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"
)

type snapshot struct {
	modTime time.Time
	size    int64
	isDir   bool
}

// runPolling walks the tree every PollInterval and reports the difference
// from the previous walk. Used where fsnotify is unavailable, such as some
// network mounts and container volumes.
func (w *Watcher) runPolling(ctx context.Context) error {
	prev, err := w.snapshot()
	if err != nil {
		return err
	}
	slog.Info("watch_started",
		slog.String("root", w.root),
		slog.String("mode", "polling"),
		slog.Duration("interval", w.opts.PollInterval))

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopCh:
			return nil
		case <-ticker.C:
			cur, err := w.snapshot()
			if err != nil {
				w.emitError(err)
				continue
			}
			w.diff(prev, cur)
			prev = cur
		}
	}
}

func (w *Watcher) snapshot() (map[string]snapshot, error) {
	state := make(map[string]snapshot)
	err := filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return err
			}
			return nil
		}
		if path == w.root {
			return nil
		}
		if w.filter.skip(path, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		state[path] = snapshot{modTime: info.ModTime(), size: info.Size(), isDir: d.IsDir()}
		return nil
	})
	return state, err
}

func (w *Watcher) diff(prev, cur map[string]snapshot) {
	for path, s := range cur {
		old, ok := prev[path]
		switch {
		case !ok:
			w.report(path, OpCreate, s.isDir)
		case s.isDir:
			// Directory mtimes change with their entries; the entries are
			// reported themselves.
		case !old.modTime.Equal(s.modTime) || old.size != s.size:
			w.report(path, OpModify, false)
		}
	}
	for path, s := range prev {
		if _, ok := cur[path]; !ok {
			w.report(path, OpDelete, s.isDir)
		}
	}
}
