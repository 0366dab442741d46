package search

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Aman-CERP/fsindex/internal/embed"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// Engine runs queries against a store. It holds no state of its own and
// is safe for concurrent use; searches may run while an index run writes.
type Engine struct {
	store    store.Store
	embedder embed.Embedder
}

// New creates an Engine. embedder may be nil, in which case semantic
// searches fail with ErrEmbeddingUnavailable.
func New(s store.Store, embedder embed.Embedder) *Engine {
	return &Engine{store: s, embedder: embedder}
}

// Search runs query in mode with no filter.
func (e *Engine) Search(ctx context.Context, query string, mode Mode, limit int) ([]Result, error) {
	return e.SearchRequest(ctx, Request{Query: query, Mode: mode, Limit: limit})
}

// SearchRequest runs req. A blank query yields an empty result and no
// error in every mode; it never lists the whole index.
func (e *Engine) SearchRequest(ctx context.Context, req Request) ([]Result, error) {
	if !req.Mode.valid() {
		return nil, fserrors.New(fserrors.ErrCodeInvalidQuery, "invalid search mode", nil).
			WithDetail("mode", req.Mode.String())
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return []Result{}, nil
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := time.Now()
	var (
		results []Result
		err     error
	)
	switch req.Mode {
	case ModeExact:
		results, err = e.exact(ctx, query, req.Filter, limit)
	case ModeFuzzy:
		results, err = e.fuzzy(ctx, query, req.Filter, limit)
	case ModeSemantic:
		results, err = e.semantic(ctx, query, req.Filter, limit)
	default:
		panic(fmt.Sprintf("search: unhandled mode %d", int(req.Mode)))
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("search_completed",
		slog.String("mode", req.Mode.String()),
		slog.Int("results", len(results)),
		slog.Duration("latency", time.Since(start)))
	return results, nil
}

// exact matches query as a case-insensitive substring of name or path,
// newest first.
func (e *Engine) exact(ctx context.Context, query string, f store.Filter, limit int) ([]Result, error) {
	needle := strings.ToLower(query)

	var results []Result
	err := e.store.ScanLightweight(ctx, f, func(rec *store.FileRecord) error {
		if strings.Contains(strings.ToLower(rec.Name), needle) || strings.Contains(strings.ToLower(rec.Path), needle) {
			results = append(results, Result{File: rec})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int {
		if c := b.File.ModifiedAt.Compare(a.File.ModifiedAt); c != 0 {
			return c
		}
		return strings.Compare(a.File.Path, b.File.Path)
	})
	return truncate(results, limit), nil
}

// fuzzy scores each file by the total number of occurrences of every
// query term in "name path". The score is not normalized by length.
func (e *Engine) fuzzy(ctx context.Context, query string, f store.Filter, limit int) ([]Result, error) {
	terms := strings.Fields(strings.ToLower(query))

	var results []Result
	err := e.store.ScanLightweight(ctx, f, func(rec *store.FileRecord) error {
		haystack := strings.ToLower(rec.Name + " " + rec.Path)
		score := 0
		for _, t := range terms {
			score += strings.Count(haystack, t)
		}
		if score > 0 {
			results = append(results, Result{File: rec, Score: float64(score)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b Result) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.File.ModifiedAt.Compare(a.File.ModifiedAt); c != 0 {
			return c
		}
		return strings.Compare(a.File.Path, b.File.Path)
	})
	return truncate(results, limit), nil
}

// semantic ranks every stored embedding by cosine similarity to the
// query vector. Files without an embedding never appear.
func (e *Engine) semantic(ctx context.Context, query string, f store.Filter, limit int) ([]Result, error) {
	if e.embedder == nil || !e.embedder.Available(ctx) {
		return nil, fserrors.New(fserrors.ErrCodeEmbeddingUnavailable, "semantic search needs an embedding model", nil).
			WithSuggestion("configure embeddings.provider or use --mode fuzzy")
	}

	qvec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		if fserrors.GetCode(err) == "" {
			err = fserrors.New(fserrors.ErrCodeEmbeddingFailed, "failed to embed query", err)
		}
		return nil, err
	}

	if err := e.checkDimensions(ctx, len(qvec)); err != nil {
		return nil, err
	}

	type scored struct {
		id    int64
		score float64
	}
	var hits []scored
	err = e.store.ScanEmbeddings(ctx, f, func(rec store.EmbeddingRecord) error {
		if len(rec.Vector) != len(qvec) {
			return dimensionMismatch(len(rec.Vector), len(qvec))
		}
		hits = append(hits, scored{id: rec.FileID, score: Cosine(qvec, rec.Vector)})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(hits, func(a, b scored) int {
		if c := cmp.Compare(b.score, a.score); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})
	hits = hits[:min(len(hits), limit)]

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.id
	}
	records, err := e.store.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		// Deleted between the two reads.
		if rec, ok := records[h.id]; ok {
			results = append(results, Result{File: rec, Score: h.score})
		}
	}
	return results, nil
}

// checkDimensions compares the query vector with the size pinned in the
// store, if any.
func (e *Engine) checkDimensions(ctx context.Context, dims int) error {
	pinned, err := e.store.GetMeta(ctx, store.MetaDimensions)
	if err != nil || pinned == "" {
		return err
	}
	n, err := strconv.Atoi(pinned)
	if err != nil || n == 0 || n == dims {
		return nil
	}
	return dimensionMismatch(n, dims)
}

func dimensionMismatch(stored, query int) error {
	return fserrors.New(fserrors.ErrCodeDimensionMismatch, "query embedding does not match the index", nil).
		WithDetail("stored", strconv.Itoa(stored)).
		WithDetail("query", strconv.Itoa(query)).
		WithSuggestion("search with the embedding model the index was built with, or re-index with --clear")
}

// Stats returns index statistics.
func (e *Engine) Stats(ctx context.Context) (*store.Stats, error) {
	return e.store.Stats(ctx)
}

func truncate(results []Result, limit int) []Result {
	if results == nil {
		return []Result{}
	}
	return results[:min(len(results), limit)]
}
