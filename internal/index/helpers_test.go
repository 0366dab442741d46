package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/scanner"
	"github.com/Aman-CERP/fsindex/internal/store"
)

const fakeDims = 8

// fakeEmbedder returns [len(text), 1, 0...] and can be told to fail or
// stall for texts starting with a given file name.
type fakeEmbedder struct {
	failPrefix string
	slowPrefix string
	delay      time.Duration
	calls      atomic.Int64
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls.Add(1)
	if f.failPrefix != "" && strings.HasPrefix(text, f.failPrefix) {
		return nil, errors.New("model exploded")
	}
	if f.slowPrefix != "" && strings.HasPrefix(text, f.slowPrefix) {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	v := make([]float32, fakeDims)
	v[0] = float32(len(text))
	v[1] = 1
	return v, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                  { return fakeDims }
func (f *fakeEmbedder) ModelName() string                { return "fake" }
func (f *fakeEmbedder) Available(_ context.Context) bool { return true }
func (f *fakeEmbedder) Close() error                     { return nil }

// scriptedScanner emits whatever its script sends.
type scriptedScanner struct {
	script func(ctx context.Context, out chan<- scanner.ScanResult)
}

func (s *scriptedScanner) Scan(ctx context.Context, _ *scanner.ScanOptions) (<-chan scanner.ScanResult, error) {
	ch := make(chan scanner.ScanResult)
	go func() {
		defer close(ch)
		s.script(ctx, ch)
	}()
	return ch, nil
}

func (s *scriptedScanner) CountFiles(context.Context, *scanner.ScanOptions) (int, error) {
	return 0, nil
}

func (s *scriptedScanner) Visit(*scanner.ScanOptions, string) (scanner.ScanResult, error) {
	return scanner.ScanResult{}, errors.New("not supported")
}

// notifyingStore signals after every committed batch.
type notifyingStore struct {
	store.Store
	flushed chan int
}

func (s *notifyingStore) BatchUpsert(ctx context.Context, drafts []store.Draft) ([]int64, error) {
	ids, err := s.Store.BatchUpsert(ctx, drafts)
	if err == nil {
		s.flushed <- len(drafts)
	}
	return ids, err
}

// failingStore rejects every batch.
type failingStore struct {
	store.Store
	err error
}

func (s *failingStore) BatchUpsert(context.Context, []store.Draft) ([]int64, error) {
	return nil, s.err
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	dataDir := t.TempDir()
	cfg.Paths.DataDir = dataDir
	cfg.Paths.DBPath = filepath.Join(dataDir, "index.db")
	cfg.Indexing.Workers = 2
	cfg.Embeddings.Timeout = 2 * time.Second
	return cfg
}

func newTestStore(t *testing.T, cfg *config.Config) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(cfg.Paths.DBPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestOrchestrator(t *testing.T, deps Dependencies, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(deps, opts...)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

// writeTree creates files below root. Keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func testRecord(path string, size int64) *store.FileRecord {
	mod := time.Unix(1_700_000_000, 0)
	return &store.FileRecord{
		Path:       path,
		Name:       filepath.Base(path),
		Category:   store.CategoryText,
		Extension:  filepath.Ext(path),
		Size:       size,
		CreatedAt:  mod,
		ModifiedAt: mod,
		AccessedAt: mod,
		ParentDir:  filepath.Dir(path),
		Depth:      1,
		IndexedAt:  mod,
	}
}

func drain(ch <-chan Progress) []Progress {
	var out []Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}
