// Package index runs indexing passes over a directory tree. A run walks the
// tree with the scanner, embeds eligible files and commits them to the
// store in atomic batches, reporting progress on a channel.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/embed"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/scanner"
	"github.com/Aman-CERP/fsindex/internal/store"
)

const defaultProgressBuffer = 64

// Scanner is the traversal an Orchestrator consumes. *scanner.Scanner
// satisfies it.
type Scanner interface {
	Scan(ctx context.Context, opts *scanner.ScanOptions) (<-chan scanner.ScanResult, error)
	CountFiles(ctx context.Context, opts *scanner.ScanOptions) (int, error)
	Visit(opts *scanner.ScanOptions, path string) (scanner.ScanResult, error)
}

// Dependencies contains the injected collaborators of an Orchestrator.
type Dependencies struct {
	// Store receives the records (required).
	Store store.Store

	// Scanner walks the tree (defaults to scanner.New()).
	Scanner Scanner

	// Embedder generates vectors. Nil disables embeddings.
	Embedder embed.Embedder

	// Config supplies the indexing and embedding settings
	// (defaults to config.NewConfig()).
	Config *config.Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClear deletes every record before each full run.
func WithClear(clear bool) Option {
	return func(o *Orchestrator) { o.clear = clear }
}

// WithLockPath overrides the run lock location (default: <db_path>.lock).
func WithLockPath(path string) Option {
	return func(o *Orchestrator) { o.lockPath = path }
}

// WithPruneVanished makes IndexPaths delete the records of paths that
// vanished or are now skipped. Off by default: such paths are only counted
// in Result.Vanished and left for Prune.
func WithPruneVanished(enabled bool) Option {
	return func(o *Orchestrator) { o.pruneVanished = enabled }
}

// WithProgressBuffer sets the capacity of the progress channel.
func WithProgressBuffer(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.progressBuffer = n
		}
	}
}

// WithTotal enables or disables the concurrent file count that fills
// Progress.Total (enabled by default).
func WithTotal(enabled bool) Option {
	return func(o *Orchestrator) { o.countTotal = enabled }
}

func withClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// Result summarises one run.
type Result struct {
	RunID uuid.UUID
	Root  string

	Indexed  int
	Skipped  int
	Errors   int
	Embedded int
	// Deleted counts records removed because their file vanished.
	Deleted int
	// Vanished counts records whose file is gone or now skipped but which
	// were kept because pruning was not requested.
	Vanished int

	Duration time.Duration
	State    State
}

// Orchestrator drives indexing runs against one store. At most one run is
// active per store, across processes.
type Orchestrator struct {
	store    store.Store
	scanner  Scanner
	embedder embed.Embedder
	cfg      *config.Config

	pool    *ants.Pool
	breaker *fserrors.CircuitBreaker

	lockPath       string
	clear          bool
	pruneVanished  bool
	countTotal     bool
	progressBuffer int
	now            func() time.Time

	running atomic.Bool
	state   atomic.Int32

	mu       sync.Mutex
	progress chan Progress
}

// NewOrchestrator creates an Orchestrator. Call Close to release its
// worker pool.
func NewOrchestrator(deps Dependencies, opts ...Option) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	cfg := deps.Config
	if cfg == nil {
		cfg = config.NewConfig()
	}

	sc := deps.Scanner
	if sc == nil {
		s, err := scanner.New()
		if err != nil {
			return nil, err
		}
		sc = s
	}

	o := &Orchestrator{
		store:          deps.Store,
		scanner:        sc,
		embedder:       deps.Embedder,
		cfg:            cfg,
		countTotal:     true,
		progressBuffer: defaultProgressBuffer,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.lockPath == "" {
		o.lockPath = cfg.Paths.DBPath + ".lock"
	}

	pool, err := ants.NewPool(max(cfg.Indexing.Workers, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}
	o.pool = pool

	o.breaker = fserrors.NewCircuitBreaker("embedder",
		fserrors.WithMaxFailures(cfg.Embeddings.BreakerFailures),
		fserrors.WithResetTimeout(cfg.Embeddings.BreakerReset))
	o.progress = make(chan Progress, o.progressBuffer)

	return o, nil
}

// Close releases the worker pool. The Orchestrator must not be used after.
func (o *Orchestrator) Close() {
	o.pool.Release()
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Progress returns the channel of the current or next run. It is closed
// when that run ends; call Progress again for the following run.
func (o *Orchestrator) Progress() <-chan Progress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress
}

// Run indexes every file below root. It fails immediately with
// ErrAlreadyRunning when another run holds the store. A cancelled ctx
// discards the batch being accumulated; batches already committed stay.
func (o *Orchestrator) Run(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.New(fserrors.ErrCodeInvalidPath, "invalid root", err).WithDetail("path", root)
	}

	lock, err := o.begin()
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New(), Root: absRoot}
	o.mu.Lock()
	progress := o.progress
	o.mu.Unlock()

	slog.Info("index_run_started",
		slog.String("run_id", res.RunID.String()),
		slog.String("root", absRoot),
		slog.Bool("embeddings", o.embeddingsActive()))

	var total atomic.Int64
	rep := newReporter(progress, res.RunID,
		o.cfg.Indexing.ProgressEveryFiles, o.cfg.Indexing.ProgressInterval,
		o.now, func() int { return int(total.Load()) })

	start := o.now()
	processed, runErr := o.run(ctx, absRoot, res, rep, &total)
	res.Duration = o.now().Sub(start)
	runErr = o.finish(ctx, lock, res, runErr, true)

	rep.final(processed)
	o.mu.Lock()
	close(o.progress)
	o.progress = make(chan Progress, o.progressBuffer)
	o.mu.Unlock()

	attrs := []any{
		slog.String("run_id", res.RunID.String()),
		slog.String("state", res.State.String()),
		slog.Int("indexed", res.Indexed),
		slog.Int("skipped", res.Skipped),
		slog.Int("errors", res.Errors),
		slog.Int("embedded", res.Embedded),
		slog.Duration("duration", res.Duration),
	}
	if runErr != nil && res.State == StateFailed {
		slog.Error("index_run_finished", append(attrs, fserrors.LogAttrs(runErr)...)...)
	} else {
		slog.Info("index_run_finished", attrs...)
	}
	return res, runErr
}

// run executes the two pipeline stages and returns the number of files
// handed to the batch stage.
func (o *Orchestrator) run(ctx context.Context, root string, res *Result, rep *reporter, total *atomic.Int64) (int, error) {
	if o.clear {
		if err := o.store.Clear(ctx); err != nil {
			return 0, err
		}
		slog.Info("index_cleared", slog.String("run_id", res.RunID.String()))
	}
	if err := o.prepareEmbeddings(ctx); err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := ScanOptionsFor(o.cfg, root)
	results, err := o.scanner.Scan(runCtx, opts)
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(runCtx)
	queue := make(chan scanner.ScanResult, max(o.cfg.Indexing.QueueSize, 1))

	// Stage 1: traversal. A full queue blocks the walk.
	g.Go(func() error {
		defer close(queue)
		for r := range results {
			select {
			case queue <- r:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if o.countTotal {
		g.Go(func() error {
			n, err := o.scanner.CountFiles(gctx, opts)
			if err == nil {
				total.Store(int64(n))
			}
			return nil
		})
	}

	// Stage 2: batching, embedding and commits.
	var processed int
	g.Go(func() error {
		var err error
		processed, err = o.consume(gctx, queue, res, rep)
		return err
	})

	err = g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return processed, err
}

// consume accumulates batches from queue and flushes each full one.
func (o *Orchestrator) consume(ctx context.Context, queue <-chan scanner.ScanResult, res *Result, rep *reporter) (int, error) {
	batchSize := max(o.cfg.Indexing.BatchSize, 1)
	batch := make([]*store.FileRecord, 0, batchSize)
	processed := 0

	for r := range queue {
		if !o.accept(r, res) {
			continue
		}
		batch = append(batch, r.File)
		processed++
		rep.tick(processed, r.File.Path, StageScanning)

		if len(batch) < batchSize {
			continue
		}
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		// A batch that passed the check above is committed whole.
		if err := o.flush(context.WithoutCancel(ctx), batch, res); err != nil {
			return processed, err
		}
		rep.tick(processed, r.File.Path, StageWriting)
		batch = batch[:0]
	}

	if err := ctx.Err(); err != nil {
		if len(batch) > 0 {
			slog.Info("index_batch_discarded", slog.Int("files", len(batch)))
		}
		return processed, err
	}
	if len(batch) > 0 {
		if err := o.flush(context.WithoutCancel(ctx), batch, res); err != nil {
			return processed, err
		}
	}
	return processed, nil
}

// accept counts a scan result and reports whether it carries a record.
// A record whose hash failed is counted as an error and still indexed.
func (o *Orchestrator) accept(r scanner.ScanResult, res *Result) bool {
	switch {
	case r.Skipped:
		res.Skipped++
		return false
	case r.File == nil:
		res.Errors++
		slog.Warn("index_file_error", append([]any{slog.String("path", r.Path)}, fserrors.LogAttrs(r.Error)...)...)
		return false
	case r.Error != nil:
		res.Errors++
		slog.Warn("index_file_partial", append([]any{slog.String("path", r.Path)}, fserrors.LogAttrs(r.Error)...)...)
	}
	return true
}

// flush embeds the eligible records and commits the batch in one
// transaction. Callers pass a context without cancellation; each model
// call is still bounded by the embedding timeout.
func (o *Orchestrator) flush(ctx context.Context, records []*store.FileRecord, res *Result) error {
	drafts := make([]store.Draft, len(records))
	for i, rec := range records {
		drafts[i].Record = rec
	}

	var embedded, failed int
	if o.embeddingsActive() {
		embedded, failed = o.embedDrafts(ctx, drafts)
	}

	if _, err := o.store.BatchUpsert(ctx, drafts); err != nil {
		return err
	}
	res.Indexed += len(drafts)
	res.Embedded += embedded
	res.Errors += failed

	slog.Debug("index_batch_flushed",
		slog.Int("files", len(drafts)),
		slog.Int("embedded", embedded),
		slog.Int("embed_errors", failed))
	return nil
}

// embedDrafts fills Vector for every eligible draft on the worker pool.
// A failed or timed-out file keeps a nil vector.
func (o *Orchestrator) embedDrafts(ctx context.Context, drafts []store.Draft) (embedded, failed int) {
	var (
		wg        sync.WaitGroup
		nEmbedded atomic.Int64
		nFailed   atomic.Int64
	)

	for i := range drafts {
		rec := drafts[i].Record
		if !embed.Eligible(rec.Size, true, o.cfg.Embeddings.MaxFileBytes) {
			continue
		}

		wg.Add(1)
		task := func() {
			defer wg.Done()
			vec, err := o.embedOne(ctx, rec)
			if err != nil {
				if ctx.Err() == nil {
					nFailed.Add(1)
				}
				return
			}
			drafts[i].Vector = vec
			nEmbedded.Add(1)
		}
		if err := o.pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	return int(nEmbedded.Load()), int(nFailed.Load())
}

func (o *Orchestrator) embedOne(ctx context.Context, rec *store.FileRecord) ([]float32, error) {
	vec, err := fserrors.CircuitExecute(o.breaker, func() ([]float32, error) {
		return embed.EmbedWithTimeout(ctx, o.embedder, embed.FileText(rec), o.cfg.Embeddings.Timeout)
	})
	switch {
	case err == nil:
	case errors.Is(err, fserrors.ErrCircuitOpen):
		slog.Debug("embedding_skipped", slog.String("path", rec.Path), slog.String("reason", "circuit open"))
		return nil, err
	case ctx.Err() != nil:
		return nil, err
	default:
		slog.Warn("embedding_failed", append([]any{slog.String("path", rec.Path)}, fserrors.LogAttrs(err)...)...)
		return nil, err
	}

	if want := o.embedder.Dimensions(); len(vec) != want {
		err := fserrors.New(fserrors.ErrCodeDimensionMismatch, "embedder returned a vector of unexpected size", nil).
			WithDetail("path", rec.Path).
			WithDetail("expected", fmt.Sprint(want)).
			WithDetail("actual", fmt.Sprint(len(vec)))
		slog.Warn("embedding_failed", fserrors.LogAttrs(err)...)
		return nil, err
	}
	return vec, nil
}

// IndexPaths re-extracts the given paths below root and upserts the files
// that exist. Records of vanished or now skipped paths are deleted only
// with WithPruneVanished; otherwise they are counted in Result.Vanished.
func (o *Orchestrator) IndexPaths(ctx context.Context, root string, paths []string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fserrors.New(fserrors.ErrCodeInvalidPath, "invalid root", err).WithDetail("path", root)
	}

	lock, err := o.begin()
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.New(), Root: absRoot}
	start := o.now()
	runErr := o.indexPaths(ctx, absRoot, paths, res)
	res.Duration = o.now().Sub(start)
	runErr = o.finish(ctx, lock, res, runErr, false)

	slog.Debug("index_paths_finished",
		slog.String("run_id", res.RunID.String()),
		slog.Int("paths", len(paths)),
		slog.Int("indexed", res.Indexed),
		slog.Int("deleted", res.Deleted),
		slog.String("state", res.State.String()))
	return res, runErr
}

func (o *Orchestrator) indexPaths(ctx context.Context, root string, paths []string, res *Result) error {
	if err := o.prepareEmbeddings(ctx); err != nil {
		return err
	}

	opts := ScanOptionsFor(o.cfg, root)
	seen := make(map[string]bool, len(paths))
	var records []*store.FileRecord

	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[p] {
			continue
		}
		seen[p] = true

		r, err := o.scanner.Visit(opts, p)
		if err != nil {
			res.Errors++
			slog.Warn("index_path_rejected", append([]any{slog.String("path", p)}, fserrors.LogAttrs(err)...)...)
			continue
		}

		switch {
		case r.File != nil:
			o.accept(r, res)
			records = append(records, r.File)
		case r.Skipped:
			res.Skipped++
			if err := o.vanished(ctx, r.Path, res); err != nil {
				return err
			}
		case errors.Is(r.Error, fs.ErrNotExist):
			if err := o.vanished(ctx, r.Path, res); err != nil {
				return err
			}
		default:
			o.accept(r, res)
		}
	}

	batchSize := max(o.cfg.Indexing.BatchSize, 1)
	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := o.flush(context.WithoutCancel(ctx), records[start:min(start+batchSize, len(records))], res); err != nil {
			return err
		}
	}
	return nil
}

// vanished handles a path that is gone or now skipped: its records are
// removed when pruning was requested and counted otherwise.
func (o *Orchestrator) vanished(ctx context.Context, path string, res *Result) error {
	if o.pruneVanished {
		return o.remove(ctx, path, res)
	}
	n, err := o.countRecords(ctx, path)
	if err != nil {
		return err
	}
	res.Vanished += n
	return nil
}

// countRecords returns the number of records at path or below it.
func (o *Orchestrator) countRecords(ctx context.Context, path string) (int, error) {
	n := 0
	rec, err := o.store.GetByPath(ctx, path)
	if err != nil {
		return 0, err
	}
	if rec != nil {
		n++
	}
	prefix := strings.TrimSuffix(path, string(filepath.Separator)) + string(filepath.Separator)
	err = o.store.ScanLightweight(ctx, store.Filter{PathPrefix: prefix}, func(*store.FileRecord) error {
		n++
		return nil
	})
	return n, err
}

// remove deletes path and every record below it whose file is gone.
func (o *Orchestrator) remove(ctx context.Context, path string, res *Result) error {
	deleted, err := o.store.Delete(ctx, path)
	if err != nil {
		return err
	}
	if deleted {
		res.Deleted++
	}

	n, err := o.store.Prune(ctx, path, fileExists)
	if err != nil {
		return err
	}
	res.Deleted += n
	return nil
}

// Prune removes records below root whose files no longer exist. It holds
// the run lock like a full run.
func (o *Orchestrator) Prune(ctx context.Context, root string) (int, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return 0, fserrors.New(fserrors.ErrCodeInvalidPath, "invalid root", err).WithDetail("path", root)
	}

	lock, err := o.begin()
	if err != nil {
		return 0, err
	}

	res := &Result{RunID: uuid.New(), Root: absRoot}
	n, pruneErr := o.store.Prune(ctx, absRoot, fileExists)
	res.Deleted = n
	pruneErr = o.finish(ctx, lock, res, pruneErr, false)
	return n, pruneErr
}

// prepareEmbeddings fails the run before any write when the store holds
// vectors of another size, and records the model in use.
func (o *Orchestrator) prepareEmbeddings(ctx context.Context) error {
	if !o.embeddingsActive() {
		return nil
	}
	if err := o.store.CheckDimensions(ctx, o.embedder.Dimensions()); err != nil {
		return err
	}
	return o.store.SetMeta(ctx, store.MetaModel, o.embedder.ModelName())
}

func (o *Orchestrator) embeddingsActive() bool {
	return o.embedder != nil && o.cfg.EmbeddingsActive()
}

// begin claims the store for one operation, in-process first and then
// across processes.
func (o *Orchestrator) begin() (*runLock, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, alreadyRunning("another index run is active in this process")
	}

	lock := newRunLock(o.lockPath)
	acquired, err := lock.TryLock()
	if err != nil {
		o.running.Store(false)
		return nil, fserrors.InternalError("failed to acquire run lock", err).WithDetail("path", o.lockPath)
	}
	if !acquired {
		o.running.Store(false)
		return nil, alreadyRunning("another process is indexing this store").WithDetail("lock", o.lockPath)
	}

	o.state.Store(int32(StateRunning))
	return lock, nil
}

// finish settles the terminal state, records run metadata after a
// completed full run and releases the locks.
func (o *Orchestrator) finish(ctx context.Context, lock *runLock, res *Result, err error, full bool) error {
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			slog.Warn("index_unlock_failed", slog.String("error", unlockErr.Error()))
		}
		o.running.Store(false)
	}()

	if err == nil && full {
		err = o.recordRun(ctx, res.Root)
	}

	switch {
	case err == nil:
		res.State = StateCompleted
	case ctx.Err() != nil:
		res.State = StateCancelled
		err = fmt.Errorf("index run cancelled: %w", ctx.Err())
	default:
		res.State = StateFailed
		if fserrors.GetCode(err) == "" {
			err = fserrors.New(fserrors.ErrCodeIndexFailed, "index run failed", err)
		}
	}
	o.state.Store(int32(res.State))
	return err
}

func (o *Orchestrator) recordRun(ctx context.Context, root string) error {
	if err := o.store.SetMeta(ctx, store.MetaLastIndexedAt, o.now().UTC().Format(time.RFC3339Nano)); err != nil {
		return err
	}
	return o.store.SetMeta(ctx, store.MetaLastRoot, root)
}

func alreadyRunning(msg string) *fserrors.FSError {
	return fserrors.New(fserrors.ErrCodeAlreadyRunning, msg, nil).
		WithSuggestion("wait for the running index to finish and retry")
}

// ScanOptionsFor maps the indexing configuration onto scanner options.
func ScanOptionsFor(cfg *config.Config, root string) *scanner.ScanOptions {
	ic := cfg.Indexing
	return &scanner.ScanOptions{
		Root:             root,
		SkipPatterns:     ic.SkipPatterns,
		NoDefaultSkips:   ic.NoDefaultSkips,
		IncludeHidden:    ic.IncludeHidden,
		RespectGitignore: ic.RespectGitignore,
		FollowSymlinks:   ic.FollowSymlinks,
		MaxDepth:         ic.MaxDepth,
		HashMaxBytes:     ic.HashMaxBytes,
	}
}

func fileExists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
