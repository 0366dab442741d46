package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fsindex/internal/store"
)

// fakeEmbedder maps known texts to fixed vectors.
type fakeEmbedder struct {
	dims        int
	vectors     map[string][]float32
	unavailable bool
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = f.Embed(ctx, text)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int                  { return f.dims }
func (f *fakeEmbedder) ModelName() string                { return "fake" }
func (f *fakeEmbedder) Available(_ context.Context) bool { return !f.unavailable }
func (f *fakeEmbedder) Close() error                     { return nil }

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(path string, cat store.Category, size int64, modUnix int64) *store.FileRecord {
	mod := time.Unix(modUnix, 0)
	return &store.FileRecord{
		Path:       path,
		Name:       filepath.Base(path),
		Category:   cat,
		Extension:  filepath.Ext(path),
		Size:       size,
		CreatedAt:  mod,
		ModifiedAt: mod,
		AccessedAt: mod,
		ParentDir:  filepath.Dir(path),
		Depth:      3,
		IndexedAt:  mod,
	}
}

// seed upserts records and returns their ids keyed by base name.
func seed(t *testing.T, s store.Store, recs ...*store.FileRecord) map[string]int64 {
	t.Helper()
	ids := make(map[string]int64, len(recs))
	for _, r := range recs {
		id, err := s.Upsert(context.Background(), r)
		require.NoError(t, err)
		ids[r.Name] = id
	}
	return ids
}

func paths(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.File.Path
	}
	return out
}

// corpus is shared by the lexical tests.
func corpus() []*store.FileRecord {
	return []*store.FileRecord{
		record("/data/docs/Report_Q1.pdf", store.CategoryDocument, 2048, 1000),
		record("/data/docs/report_q2.pdf", store.CategoryDocument, 10*1024, 2000),
		record("/data/reports/summary.txt", store.CategoryText, 300, 1500),
		record("/data/photos/beach.jpg", store.CategoryImage, 5*1024*1024, 3000),
	}
}
