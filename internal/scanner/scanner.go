package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	gitignore "github.com/sabhiram/go-gitignore"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// gitignoreCacheSize is the maximum number of per-directory matchers kept.
const gitignoreCacheSize = 1000

// resultBuffer is the capacity of the channel returned by Scan.
const resultBuffer = 64

// Scanner discovers files and extracts their metadata.
type Scanner struct {
	// gitignoreCache holds the compiled .gitignore of each visited
	// directory, nil when the directory has none.
	gitignoreCache *lru.Cache[string, *gitignore.GitIgnore]
	now            func() time.Time
}

// New creates a new Scanner instance.
func New() (*Scanner, error) {
	cache, err := lru.New[string, *gitignore.GitIgnore](gitignoreCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create gitignore cache: %w", err)
	}
	return &Scanner{
		gitignoreCache: cache,
		now:            time.Now,
	}, nil
}

// Scan walks opts.Root and streams one ScanResult per visited entry that is
// a file, a skipped entry or a failure. The channel is closed when the walk
// ends or ctx is cancelled. Every call starts a fresh walk.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions) (<-chan ScanResult, error) {
	w, err := s.newWalker(opts)
	if err != nil {
		return nil, err
	}

	results := make(chan ScanResult, resultBuffer)
	go func() {
		defer close(results)
		err := w.run(ctx, func(r ScanResult) bool {
			select {
			case results <- r:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("scan_aborted", slog.String("root", w.root), slog.String("error", err.Error()))
		}
	}()

	return results, nil
}

// CountFiles returns how many files a Scan with the same options would
// yield. It applies the skip rules but never reads file contents.
func (s *Scanner) CountFiles(ctx context.Context, opts *ScanOptions) (int, error) {
	w, err := s.newWalker(opts)
	if err != nil {
		return 0, err
	}
	w.countOnly = true

	n := 0
	err = w.run(ctx, func(r ScanResult) bool {
		if !r.Skipped && r.Error == nil {
			n++
		}
		return true
	})
	return n, err
}

// Visit applies the walk rules to a single path below opts.Root, as if the
// walk had reached it. A path that no longer exists yields a result whose
// Error matches fs.ErrNotExist.
func (s *Scanner) Visit(opts *ScanOptions, path string) (ScanResult, error) {
	w, err := s.newWalker(opts)
	if err != nil {
		return ScanResult{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return ScanResult{}, invalidPath(path, err)
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ScanResult{}, invalidPath(path, fmt.Errorf("not below %s", w.root))
	}

	segs := strings.Split(rel, string(filepath.Separator))
	dir := w.root
	for i, seg := range segs[:len(segs)-1] {
		dir = filepath.Join(dir, seg)
		if w.skipDir(dir, filepath.Join(segs[:i+1]...), seg) {
			return ScanResult{Path: abs, Skipped: true}, nil
		}
	}

	info, err := os.Lstat(abs)
	if err != nil {
		return ScanResult{Path: abs, Error: fserrors.FileError(abs, "stat", err)}, nil
	}
	if info.IsDir() || w.skipFile(rel, info.Name()) {
		return ScanResult{Path: abs, Skipped: true}, nil
	}
	return w.file(abs, rel, fs.FileInfoToDirEntry(info)), nil
}

// InvalidateGitignoreCache drops every cached matcher. Call it when a
// .gitignore file changes.
func (s *Scanner) InvalidateGitignoreCache() {
	s.gitignoreCache.Purge()
}

type walker struct {
	s         *Scanner
	root      string
	opts      ScanOptions
	rules     *skipRules
	countOnly bool
}

func (s *Scanner) newWalker(opts *ScanOptions) (*walker, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}
	root := opts.Root
	if root == "" {
		root = "."
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, invalidPath(root, err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, invalidPath(absRoot, err)
	}
	if !info.IsDir() {
		return nil, invalidPath(absRoot, errors.New("not a directory"))
	}

	return &walker{
		s:     s,
		root:  absRoot,
		opts:  *opts,
		rules: newSkipRules(opts.SkipPatterns, opts.NoDefaultSkips),
	}, nil
}

func invalidPath(path string, cause error) error {
	return fserrors.New(fserrors.ErrCodeInvalidPath, "invalid index root", cause).
		WithDetail("path", path)
}

// run walks the tree, calling emit for each result. It stops when emit
// returns false or ctx is done.
func (w *walker) run(ctx context.Context, emit func(ScanResult) bool) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == w.root {
				return err
			}
			// Unreadable directory or vanished entry; keep walking.
			if !emit(ScanResult{Path: path, Error: fserrors.FileError(path, "read", err)}) {
				return ctx.Err()
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil || rel == "." {
			return nil
		}

		if d.IsDir() {
			if w.skipDir(path, rel, d.Name()) {
				if !emit(ScanResult{Path: path, Skipped: true}) {
					return ctx.Err()
				}
				return filepath.SkipDir
			}
			return nil
		}

		var res ScanResult
		switch {
		case w.skipFile(rel, d.Name()):
			res = ScanResult{Path: path, Skipped: true}
		case w.countOnly:
			res = ScanResult{Path: path}
			if d.Type()&fs.ModeSymlink != 0 && !w.opts.FollowSymlinks {
				res.Skipped = true
			}
		default:
			res = w.file(path, rel, d)
		}

		if !emit(res) {
			return ctx.Err()
		}
		return nil
	})
}

func (w *walker) skipDir(absPath, rel, name string) bool {
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if w.opts.MaxDepth > 0 && depth(rel) >= w.opts.MaxDepth {
		return true
	}
	if w.rules.matchDir(absPath, rel, name) {
		return true
	}
	return w.opts.RespectGitignore && w.s.gitignored(w.root, rel, true)
}

func (w *walker) skipFile(rel, name string) bool {
	if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	if w.opts.MaxDepth > 0 && depth(rel) > w.opts.MaxDepth {
		return true
	}
	if w.rules.matchFile(rel, name) {
		return true
	}
	return w.opts.RespectGitignore && w.s.gitignored(w.root, rel, false)
}

// file extracts the record for a non-directory entry.
func (w *walker) file(path, rel string, d fs.DirEntry) ScanResult {
	var (
		info fs.FileInfo
		err  error
	)
	if d.Type()&fs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			return ScanResult{Path: path, Skipped: true}
		}
		info, err = os.Stat(path)
	} else {
		info, err = d.Info()
	}
	if err != nil {
		return ScanResult{Path: path, Error: fserrors.FileError(path, "stat", err)}
	}
	// Sockets, devices, pipes and symlinked directories.
	if !info.Mode().IsRegular() {
		return ScanResult{Path: path, Skipped: true}
	}

	rec := buildRecord(path, rel, info, w.s.now())
	res := ScanResult{File: rec, Path: path}

	if limit := w.opts.hashLimit(); limit > 0 && info.Size() <= limit {
		hash, err := hashFile(path)
		if err != nil {
			res.Error = fserrors.FileError(path, "hash", err)
		} else {
			rec.Hash = hash
		}
	}
	return res
}

func buildRecord(path, rel string, info fs.FileInfo, now time.Time) *store.FileRecord {
	name := filepath.Base(path)
	ext := extensionOf(name)
	created, accessed := fileTimes(info)

	return &store.FileRecord{
		Path:       path,
		Name:       name,
		Category:   Categorize(ext),
		Extension:  ext,
		Size:       info.Size(),
		CreatedAt:  created,
		ModifiedAt: info.ModTime(),
		AccessedAt: accessed,
		ParentDir:  filepath.Dir(path),
		Depth:      depth(rel),
		Hidden:     isHidden(rel),
		IndexedAt:  now,
	}
}

// extensionOf returns the lower-case extension with its dot. A leading dot
// alone (".bashrc") is not an extension.
func extensionOf(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i:])
}

func depth(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func isHidden(rel string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}

// hashFile returns the xxhash64 of the file contents as 16 hex digits.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// gitignored reports whether rel is ignored by the .gitignore of the root or
// of any directory between the root and rel.
func (s *Scanner) gitignored(root, rel string, isDir bool) bool {
	segs := strings.Split(filepath.ToSlash(rel), "/")
	dir := root
	for i := range segs {
		if i > 0 {
			dir = filepath.Join(dir, segs[i-1])
		}
		m := s.gitignoreMatcher(dir)
		if m == nil {
			continue
		}
		sub := strings.Join(segs[i:], "/")
		if m.MatchesPath(sub) || (isDir && m.MatchesPath(sub+"/")) {
			return true
		}
	}
	return false
}

func (s *Scanner) gitignoreMatcher(dir string) *gitignore.GitIgnore {
	if m, ok := s.gitignoreCache.Get(dir); ok {
		return m
	}
	m, err := gitignore.CompileIgnoreFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		m = nil
	}
	s.gitignoreCache.Add(dir, m)
	return m
}
