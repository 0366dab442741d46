package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// newTestRoot returns a symlink-free temporary directory.
func newTestRoot(t *testing.T) string {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return root
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

type scanOutcome struct {
	files   map[string]*store.FileRecord // keyed by slash-separated relative path
	skipped []string
	errs    []error
}

func (o scanOutcome) names() []string {
	out := make([]string, 0, len(o.files))
	for rel := range o.files {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

func runScan(t *testing.T, opts *ScanOptions) scanOutcome {
	t.Helper()
	s, err := New()
	require.NoError(t, err)

	ch, err := s.Scan(context.Background(), opts)
	require.NoError(t, err)

	out := scanOutcome{files: make(map[string]*store.FileRecord)}
	for r := range ch {
		rel, relErr := filepath.Rel(opts.Root, r.Path)
		require.NoError(t, relErr)
		rel = filepath.ToSlash(rel)
		switch {
		case r.File != nil:
			out.files[rel] = r.File
			if r.Error != nil {
				out.errs = append(out.errs, r.Error)
			}
		case r.Skipped:
			out.skipped = append(out.skipped, rel)
		case r.Error != nil:
			out.errs = append(out.errs, r.Error)
		}
	}
	return out
}

func TestScan_ExtractsMetadata(t *testing.T) {
	// Given: a single text file in the root
	root := newTestRoot(t)
	p := writeFile(t, root, "Report.TXT", "hello")

	// When: scanning
	out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})

	// Then: the record carries the extracted metadata
	require.Len(t, out.files, 1)
	rec := out.files["Report.TXT"]
	require.NotNil(t, rec)

	info, err := os.Stat(p)
	require.NoError(t, err)

	assert.Equal(t, p, rec.Path)
	assert.Equal(t, "Report.TXT", rec.Name)
	assert.Equal(t, ".txt", rec.Extension)
	assert.Equal(t, store.CategoryText, rec.Category)
	assert.Equal(t, int64(5), rec.Size)
	assert.Equal(t, root, rec.ParentDir)
	assert.Equal(t, 1, rec.Depth)
	assert.False(t, rec.Hidden)
	assert.True(t, info.ModTime().Equal(rec.ModifiedAt))
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.AccessedAt.IsZero())
	assert.False(t, rec.IndexedAt.IsZero())
	assert.Equal(t, fmt.Sprintf("%016x", xxhash.Sum64String("hello")), rec.Hash)
	assert.Empty(t, out.errs)
}

func TestScan_Depth(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "top.txt", "x")
	writeFile(t, root, "a/mid.txt", "x")
	writeFile(t, root, "a/b/deep.txt", "x")

	tests := []struct {
		name     string
		maxDepth int
		want     []string
	}{
		{"unlimited", 0, []string{"a/b/deep.txt", "a/mid.txt", "top.txt"}},
		{"depth 1 keeps root files", 1, []string{"top.txt"}},
		{"depth 2", 2, []string{"a/mid.txt", "top.txt"}},
		{"depth 3 is inclusive", 3, []string{"a/b/deep.txt", "a/mid.txt", "top.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, MaxDepth: tt.maxDepth})
			assert.Equal(t, tt.want, out.names())
		})
	}

	out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})
	assert.Equal(t, 3, out.files["a/b/deep.txt"].Depth)
	assert.Equal(t, 2, out.files["a/mid.txt"].Depth)
}

func TestScan_Hidden(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "visible.txt", "x")
	writeFile(t, root, ".dotfile", "x")
	writeFile(t, root, ".config/app/settings.json", "{}")

	t.Run("included and flagged", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})

		assert.Equal(t, []string{".config/app/settings.json", ".dotfile", "visible.txt"}, out.names())
		assert.True(t, out.files[".dotfile"].Hidden)
		assert.True(t, out.files[".config/app/settings.json"].Hidden)
		assert.False(t, out.files["visible.txt"].Hidden)
		assert.Empty(t, out.files[".dotfile"].Extension)
	})

	t.Run("excluded and counted as skipped", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root})

		assert.Equal(t, []string{"visible.txt"}, out.names())
		assert.ElementsMatch(t, []string{".config", ".dotfile"}, out.skipped)
	})
}

func TestScan_DefaultSkips(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "keep.txt", "x")
	writeFile(t, root, "node_modules/pkg/index.js", "x")
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, "src/__pycache__/mod.cpython-312.pyc", "x")
	writeFile(t, root, "src/mod.pyc", "x")
	writeFile(t, root, "pkg.egg-info/PKG-INFO", "x")
	writeFile(t, root, "notes.txt~", "x")
	writeFile(t, root, "draft.SWP", "x")
	writeFile(t, root, "Thumbs.db", "x")
	writeFile(t, root, ".DS_Store", "x")
	writeFile(t, root, "yarn.lock", "x")
	writeFile(t, root, "myproject-env/pyvenv.cfg", "home = /usr")
	writeFile(t, root, "myproject-env/lib/site.py", "x")

	t.Run("defaults applied", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})

		assert.Equal(t, []string{"keep.txt"}, out.names())
		assert.Contains(t, out.skipped, "node_modules")
		assert.Contains(t, out.skipped, "myproject-env")
		assert.Contains(t, out.skipped, "Thumbs.db")
	})

	t.Run("defaults disabled", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, NoDefaultSkips: true})

		assert.Len(t, out.files, 13)
	})
}

func TestScan_SkipPatterns(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "keep.md", "x")
	writeFile(t, root, "app.log", "x")
	writeFile(t, root, "docs/guide.md", "x")
	writeFile(t, root, "docs/api/ref.md", "x")
	writeFile(t, root, "data/raw.csv", "x")
	writeFile(t, root, "other/raw.csv", "x")

	tests := []struct {
		name     string
		patterns []string
		want     []string
	}{
		{"base name glob is case-insensitive", []string{"*.LOG"}, []string{"data/raw.csv", "docs/api/ref.md", "docs/guide.md", "keep.md", "other/raw.csv"}},
		{"directory subtree", []string{"docs/**"}, []string{"app.log", "data/raw.csv", "keep.md", "other/raw.csv"}},
		{"directory by name", []string{"docs"}, []string{"app.log", "data/raw.csv", "keep.md", "other/raw.csv"}},
		{"path glob", []string{"data/*.csv"}, []string{"app.log", "docs/api/ref.md", "docs/guide.md", "keep.md", "other/raw.csv"}},
		{"blank patterns ignored", []string{"", "  "}, []string{"app.log", "data/raw.csv", "docs/api/ref.md", "docs/guide.md", "keep.md", "other/raw.csv"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, SkipPatterns: tt.patterns})
			assert.Equal(t, tt.want, out.names())
		})
	}
}

func TestScan_Gitignore(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, ".gitignore", "*.log\nsecret/\n")
	writeFile(t, root, "keep.txt", "x")
	writeFile(t, root, "app.log", "x")
	writeFile(t, root, "secret/key.txt", "x")
	writeFile(t, root, "sub/.gitignore", "local.txt\n")
	writeFile(t, root, "sub/local.txt", "x")
	writeFile(t, root, "sub/keep.txt", "x")
	writeFile(t, root, "sub/deeper/trace.log", "x")

	t.Run("respected", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, RespectGitignore: true})
		assert.Equal(t, []string{".gitignore", "keep.txt", "sub/.gitignore", "sub/keep.txt"}, out.names())
	})

	t.Run("ignored when disabled", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})
		assert.Len(t, out.files, 8)
	})
}

func TestScan_HashThreshold(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "at.txt", strings.Repeat("a", 10))
	writeFile(t, root, "over.txt", strings.Repeat("a", 11))
	writeFile(t, root, "empty.txt", "")

	// Given: a threshold of exactly 10 bytes
	out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, HashMaxBytes: 10})

	// Then: a file at the threshold is hashed, one byte over is not
	assert.Equal(t, fmt.Sprintf("%016x", xxhash.Sum64String(strings.Repeat("a", 10))), out.files["at.txt"].Hash)
	assert.Empty(t, out.files["over.txt"].Hash)
	assert.Len(t, out.files["empty.txt"].Hash, 16)

	// And: a negative threshold disables hashing
	out = runScan(t, &ScanOptions{Root: root, IncludeHidden: true, HashMaxBytes: -1})
	assert.Empty(t, out.files["at.txt"].Hash)
}

func TestScan_Symlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := newTestRoot(t)
	target := writeFile(t, root, "real/data.csv", "a,b,c")
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.csv")))
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "linkdir")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.txt")))

	t.Run("not followed", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true})

		assert.Equal(t, []string{"real/data.csv"}, out.names())
		assert.ElementsMatch(t, []string{"link.csv", "linkdir", "dangling.txt"}, out.skipped)
		assert.Empty(t, out.errs)
	})

	t.Run("followed to files only", func(t *testing.T) {
		out := runScan(t, &ScanOptions{Root: root, IncludeHidden: true, FollowSymlinks: true})

		assert.Equal(t, []string{"link.csv", "real/data.csv"}, out.names())
		assert.Equal(t, int64(5), out.files["link.csv"].Size)
		assert.Contains(t, out.skipped, "linkdir")

		// the dangling link is a transient error, not a failure of the walk
		require.Len(t, out.errs, 1)
		assert.True(t, errors.Is(out.errs[0], fserrors.ErrFileTransient))
	})
}

func TestScan_InvalidRoot(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	root := newTestRoot(t)
	file := writeFile(t, root, "f.txt", "x")

	for _, r := range []string{filepath.Join(root, "nope"), file} {
		_, err := s.Scan(context.Background(), &ScanOptions{Root: r})
		require.Error(t, err)
		assert.Equal(t, fserrors.ErrCodeInvalidPath, fserrors.GetCode(err))
	}
}

func TestScan_CancelledContextClosesChannel(t *testing.T) {
	root := newTestRoot(t)
	for i := range 50 {
		writeFile(t, root, fmt.Sprintf("d%d/f.txt", i), "x")
	}

	s, err := New()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := s.Scan(ctx, &ScanOptions{Root: root, IncludeHidden: true})
	require.NoError(t, err)

	<-ch
	cancel()

	n := 0
	for range ch {
		n++
	}
	assert.Less(t, n, 100)
}

func TestScan_IsRestartable(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "a.txt", "x")
	writeFile(t, root, "b.txt", "y")

	opts := &ScanOptions{Root: root, IncludeHidden: true}
	first := runScan(t, opts)
	second := runScan(t, opts)

	assert.Equal(t, first.names(), second.names())
}

func TestCountFiles(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "a.txt", "x")
	writeFile(t, root, "sub/b.go", "x")
	writeFile(t, root, "node_modules/c.js", "x")
	writeFile(t, root, ".hidden", "x")

	s, err := New()
	require.NoError(t, err)

	n, err := s.CountFiles(context.Background(), &ScanOptions{Root: root})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountFiles(context.Background(), &ScanOptions{Root: root, IncludeHidden: true})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVisit(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "node_modules/x/index.js", "x")

	s, err := New()
	require.NoError(t, err)
	opts := &ScanOptions{Root: root, IncludeHidden: true}

	t.Run("existing file", func(t *testing.T) {
		r, err := s.Visit(opts, filepath.Join(root, "src", "main.go"))
		require.NoError(t, err)
		require.NotNil(t, r.File)
		assert.Equal(t, store.CategoryCode, r.File.Category)
		assert.Equal(t, 2, r.File.Depth)
	})

	t.Run("skipped through ancestor", func(t *testing.T) {
		r, err := s.Visit(opts, filepath.Join(root, "node_modules", "x", "index.js"))
		require.NoError(t, err)
		assert.True(t, r.Skipped)
		assert.Nil(t, r.File)
	})

	t.Run("vanished file", func(t *testing.T) {
		r, err := s.Visit(opts, filepath.Join(root, "src", "gone.go"))
		require.NoError(t, err)
		assert.True(t, errors.Is(r.Error, fs.ErrNotExist))
	})

	t.Run("outside root", func(t *testing.T) {
		_, err := s.Visit(opts, filepath.Dir(root))
		assert.Error(t, err)
	})
}

func TestInvalidateGitignoreCache(t *testing.T) {
	root := newTestRoot(t)
	writeFile(t, root, "a.log", "x")
	writeFile(t, root, "b.txt", "x")

	s, err := New()
	require.NoError(t, err)
	opts := &ScanOptions{Root: root, RespectGitignore: true}

	// Given: no .gitignore, both files are visible
	n, err := s.CountFiles(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// When: a .gitignore appears and the cache is invalidated
	writeFile(t, root, ".gitignore", "*.log\n")
	s.InvalidateGitignoreCache()

	// Then: the new rules apply
	n, err = s.CountFiles(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
