package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fsindex/internal/index"
	"github.com/Aman-CERP/fsindex/internal/watcher"
)

func TestWatchKeepsIndexCurrent(t *testing.T) {
	tests := []struct {
		name  string
		prune bool
	}{
		{name: "deleted files stay indexed by default", prune: false},
		{name: "deleted files are pruned on request", prune: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			e := newEnv(t, index.WithPruneVanished(tt.prune))

			// Given: a watch service over a polled tree
			w, err := watcher.New(e.root, watcher.Options{
				Polling:      true,
				PollInterval: 30 * time.Millisecond,
				Debounce:     20 * time.Millisecond,
				IgnorePaths:  []string{e.cfg.Paths.DataDir},
			})
			require.NoError(t, err)

			var batches, vanished atomic.Int64
			svc, err := watcher.NewService(watcher.ServiceDeps{
				Watcher: w,
				Indexer: e.orch,
				Store:   e.store,
				OnResult: func(r *index.Result) {
					batches.Add(1)
					vanished.Add(int64(r.Vanished))
				},
			})
			require.NoError(t, err)

			done := make(chan error, 1)
			go func() { done <- svc.Run(ctx) }()

			// When: a file appears (rewritten with growing content until seen, in
			// case the first write lands before the initial snapshot)
			path := filepath.Join(e.root, "fresh.txt")
			content := "x"
			require.Eventually(t, func() bool {
				content += "x"
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					return false
				}
				rec, err := e.store.GetByPath(ctx, path)
				return err == nil && rec != nil
			}, 10*time.Second, 100*time.Millisecond)

			// Then: removing it drops the record only when pruning
			require.NoError(t, os.Remove(path))
			if tt.prune {
				require.Eventually(t, func() bool {
					rec, err := e.store.GetByPath(ctx, path)
					return err == nil && rec == nil
				}, 10*time.Second, 50*time.Millisecond)
			} else {
				require.Eventually(t, func() bool {
					return vanished.Load() > 0
				}, 10*time.Second, 50*time.Millisecond)
				rec, err := e.store.GetByPath(ctx, path)
				require.NoError(t, err)
				assert.NotNil(t, rec)
			}

			// And: files under a directory created later are picked up too
			nested := filepath.Join(e.root, "later", "deep", "doc.md")
			require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
			require.NoError(t, os.WriteFile(nested, []byte(strings.Repeat("d", 10)), 0o644))
			require.Eventually(t, func() bool {
				rec, err := e.store.GetByPath(ctx, nested)
				return err == nil && rec != nil
			}, 10*time.Second, 50*time.Millisecond)

			assert.Positive(t, batches.Load())

			cancel()
			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("service did not stop")
			}
		})
	}
}
