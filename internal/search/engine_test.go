package search

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"exact", ModeExact, false},
		{"Fuzzy", ModeFuzzy, false},
		{" SEMANTIC ", ModeSemantic, false},
		{"hybrid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, fserrors.ErrInvalidQuery)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, strings.ToLower(strings.TrimSpace(tt.in)), got.String())
		})
	}
}

func TestSearch_InvalidMode(t *testing.T) {
	e := New(newTestStore(t), nil)

	_, err := e.Search(context.Background(), "report", Mode(0), 10)
	assert.ErrorIs(t, err, fserrors.ErrInvalidQuery)

	_, err = e.Search(context.Background(), "report", Mode(9), 10)
	assert.ErrorIs(t, err, fserrors.ErrInvalidQuery)
}

func TestSearch_EmptyQueryReturnsNothing(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)
	e := New(s, nil)

	for _, mode := range []Mode{ModeExact, ModeFuzzy, ModeSemantic} {
		for _, q := range []string{"", "   ", "\t\n"} {
			results, err := e.Search(context.Background(), q, mode, 10)
			require.NoError(t, err, mode.String())
			assert.NotNil(t, results)
			assert.Empty(t, results)
		}
	}
}

func TestSearch_Exact(t *testing.T) {
	// Given: files matching "report" by name and by directory
	s := newTestStore(t)
	seed(t, s, corpus()...)
	e := New(s, nil)
	ctx := context.Background()

	// When: searching case-insensitively
	results, err := e.Search(ctx, "REPORT", ModeExact, 0)
	require.NoError(t, err)

	// Then: newest first
	assert.Equal(t, []string{
		"/data/docs/report_q2.pdf",
		"/data/reports/summary.txt",
		"/data/docs/Report_Q1.pdf",
	}, paths(results))

	// And: the limit bounds the count
	results, err = e.Search(ctx, "report", ModeExact, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// And: a miss is an empty result
	results, err = e.Search(ctx, "nothing-like-this", ModeExact, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ExactTieBreaksOnPath(t *testing.T) {
	s := newTestStore(t)
	seed(t, s,
		record("/b/notes.txt", store.CategoryText, 1, 500),
		record("/a/notes.txt", store.CategoryText, 1, 500),
	)

	results, err := New(s, nil).Search(context.Background(), "notes", ModeExact, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a/notes.txt", "/b/notes.txt"}, paths(results))
}

func TestSearch_Fuzzy(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)
	e := New(s, nil)

	results, err := e.Search(context.Background(), "Report PDF", ModeFuzzy, 10)
	require.NoError(t, err)

	// Raw occurrence counts over "name path"; ties go to the newer file
	assert.Equal(t, []string{
		"/data/docs/report_q2.pdf",
		"/data/docs/Report_Q1.pdf",
		"/data/reports/summary.txt",
	}, paths(results))
	assert.Equal(t, 4.0, results[0].Score)
	assert.Equal(t, 4.0, results[1].Score)
	assert.Equal(t, 1.0, results[2].Score)
}

func TestSearch_FilterAppliesInEveryMode(t *testing.T) {
	s := newTestStore(t)
	ids := seed(t, s, corpus()...)
	ctx := context.Background()
	for _, id := range ids {
		require.NoError(t, s.UpsertEmbedding(ctx, id, []float32{1, 0}))
	}
	e := New(s, &fakeEmbedder{dims: 2, vectors: map[string][]float32{"data": {1, 0}}})

	for _, mode := range []Mode{ModeExact, ModeFuzzy, ModeSemantic} {
		t.Run(mode.String(), func(t *testing.T) {
			results, err := e.SearchRequest(ctx, Request{
				Query:  "data",
				Mode:   mode,
				Filter: store.Filter{Category: store.CategoryImage},
			})
			require.NoError(t, err)
			assert.Equal(t, []string{"/data/photos/beach.jpg"}, paths(results))
		})
	}
}

func TestSearch_FuzzyRanksMoreTermHitsHigher(t *testing.T) {
	// Given: one file matching both terms and one matching only the first
	s := newTestStore(t)
	seed(t, s,
		record("/d/alpha.txt", store.CategoryText, 1, 900),
		record("/d/alpha_beta.txt", store.CategoryText, 1, 100),
	)

	// When
	results, err := New(s, nil).Search(context.Background(), "alpha beta", ModeFuzzy, 10)
	require.NoError(t, err)

	// Then: the two-term match wins despite being older
	require.Len(t, results, 2)
	assert.Equal(t, []string{"/d/alpha_beta.txt", "/d/alpha.txt"}, paths(results))
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Equal(t, 4.0, results[0].Score)
	assert.Equal(t, 2.0, results[1].Score)
}

func TestSearch_LimitBoundsEveryMode(t *testing.T) {
	// Given: far more matching files than any limit under test
	s := newTestStore(t)
	ctx := context.Background()
	drafts := make([]store.Draft, 200)
	for i := range drafts {
		drafts[i] = store.Draft{
			Record: record(fmt.Sprintf("/many/match_%03d.txt", i), store.CategoryText, 1, int64(1000+i)),
			Vector: []float32{1, float32(i)},
		}
	}
	_, err := s.BatchUpsert(ctx, drafts)
	require.NoError(t, err)

	emb := &fakeEmbedder{dims: 2, vectors: map[string][]float32{"match": {1, 0}}}
	e := New(s, emb)

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 7, want: 7},
		{limit: 1, want: 1},
		{limit: 0, want: DefaultLimit},
		{limit: -3, want: DefaultLimit},
	}

	for _, mode := range []Mode{ModeExact, ModeFuzzy, ModeSemantic} {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/limit=%d", mode, tt.limit), func(t *testing.T) {
				results, err := e.Search(ctx, "match", mode, tt.limit)
				require.NoError(t, err)
				assert.Len(t, results, tt.want)
			})
		}
	}
}

func TestSearch_ZeroSizeCapMatchesNothing(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)
	e := New(s, nil)

	req := ParseQuery("report smaller than 0 kb", time.Unix(4000, 0))
	for _, mode := range []Mode{ModeExact, ModeFuzzy} {
		req.Mode = mode
		results, err := e.SearchRequest(context.Background(), req)
		require.NoError(t, err)
		assert.Empty(t, results, mode.String())
	}
}

func TestSearch_ParsedQuery(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)
	e := New(s, nil)

	req := ParseQuery("report files larger than 4kb", time.Unix(4000, 0))
	req.Mode = ModeFuzzy

	results, err := e.SearchRequest(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []string{"/data/docs/report_q2.pdf"}, paths(results))
}

func TestSearch_Semantic(t *testing.T) {
	// Given: vectors at known angles to the query, one file without a vector
	s := newTestStore(t)
	ctx := context.Background()
	ids := seed(t, s,
		record("/v/a.txt", store.CategoryText, 1, 100),
		record("/v/b.txt", store.CategoryText, 1, 100),
		record("/v/c.txt", store.CategoryText, 1, 100),
		record("/v/d.txt", store.CategoryText, 1, 100),
		record("/v/e.txt", store.CategoryText, 1, 100),
	)
	require.NoError(t, s.UpsertEmbedding(ctx, ids["a.txt"], []float32{1, 0, 0}))
	require.NoError(t, s.UpsertEmbedding(ctx, ids["b.txt"], []float32{1, 1, 0}))
	require.NoError(t, s.UpsertEmbedding(ctx, ids["c.txt"], []float32{0, 1, 0}))
	require.NoError(t, s.UpsertEmbedding(ctx, ids["e.txt"], []float32{0, 0, 0}))

	emb := &fakeEmbedder{dims: 3, vectors: map[string][]float32{"alpha": {1, 0, 0}}}
	e := New(s, emb)

	// When
	results, err := e.Search(ctx, "alpha", ModeSemantic, 10)
	require.NoError(t, err)

	// Then: ranked by cosine, unembedded file absent, zero norm scores 0
	assert.Equal(t, []string{"/v/a.txt", "/v/b.txt", "/v/c.txt", "/v/e.txt"}, paths(results))
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-4)
	assert.Zero(t, results[2].Score)
	assert.Zero(t, results[3].Score)

	results, err = e.Search(ctx, "alpha", ModeSemantic, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"/v/a.txt", "/v/b.txt"}, paths(results))
}

func TestSearch_SemanticUnavailable(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)

	tests := []struct {
		name string
		e    *Engine
	}{
		{"nil embedder", New(s, nil)},
		{"embedder down", New(s, &fakeEmbedder{dims: 3, unavailable: true})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := tt.e.Search(context.Background(), "report", ModeSemantic, 10)
			assert.Nil(t, results)
			assert.ErrorIs(t, err, fserrors.ErrEmbeddingUnavailable)
		})
	}
}

func TestSearch_SemanticDimensionMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ids := seed(t, s, record("/v/a.txt", store.CategoryText, 1, 100))
	require.NoError(t, s.UpsertEmbedding(ctx, ids["a.txt"], []float32{1, 0, 0}))

	e := New(s, &fakeEmbedder{dims: 2})

	_, err := e.Search(ctx, "alpha", ModeSemantic, 10)
	assert.ErrorIs(t, err, fserrors.ErrDimensionMismatch)
}

func TestEngine_Stats(t *testing.T) {
	s := newTestStore(t)
	seed(t, s, corpus()...)

	stats, err := New(s, nil).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalFiles)
	assert.Equal(t, 2, stats.CategoryCounts[store.CategoryDocument])
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero norm", []float32{0, 0}, []float32{1, 0}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Cosine(tt.a, tt.b), 1e-9)
		})
	}
}
