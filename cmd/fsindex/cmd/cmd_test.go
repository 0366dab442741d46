package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/fsindex/internal/config"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/output"
	"github.com/Aman-CERP/fsindex/internal/search"
	"github.com/Aman-CERP/fsindex/internal/store"
	"github.com/Aman-CERP/fsindex/pkg/version"
)

// isolate points every fsindex location at a temp directory and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("FSINDEX_DATA_DIR", filepath.Join(home, "data"))
	t.Setenv("FSINDEX_EMBEDDER", "static")
	return home
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// sampleTree writes three small files and returns their root.
func sampleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range map[string]string{
		"docs/quarterly.txt": "numbers",
		"docs/notes.md":      "# notes",
		"pics/beach.jpg":     "jpeg",
	} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	cmd := NewRootCmd()
	for _, name := range []string{"index", "search", "stats", "prune", "clear", "watch", "config", "logs", "version"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, found.Name())
	}
}

func TestCLI_IndexSearchStats(t *testing.T) {
	isolate(t)
	root := sampleTree(t)

	// Given: an indexed tree
	out, err := execute(t, "", "index", root, "--no-tui")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Complete: 3 indexed, 3 embedded, 0 skipped, 0 errors")

	t.Run("exact search prints a table", func(t *testing.T) {
		out, err := execute(t, "", "search", "quarterly", "--mode", "exact")
		require.NoError(t, err)
		assert.Contains(t, out, filepath.Join(root, "docs", "quarterly.txt"))
		assert.Contains(t, out, "1 result(s)")
		assert.NotContains(t, out, "SCORE")
	})

	t.Run("category filter", func(t *testing.T) {
		out, err := execute(t, "", "search", "beach", "--category", "document")
		require.NoError(t, err)
		assert.Contains(t, out, "No matching files.")
	})

	t.Run("semantic search as JSON", func(t *testing.T) {
		out, err := execute(t, "", "search", "beach photo", "--mode", "semantic", "--json")
		require.NoError(t, err)

		var results []output.ResultJSON
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		assert.Len(t, results, 3)
	})

	t.Run("stats as JSON", func(t *testing.T) {
		out, err := execute(t, "", "stats", "--json")
		require.NoError(t, err)

		var stats output.StatsJSON
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Equal(t, 3, stats.TotalFiles)
		assert.Equal(t, 3, stats.EmbeddedFiles)
		assert.Equal(t, 1, stats.CategoryCounts["image"])
		assert.Equal(t, root, stats.LastRoot)
	})
}

func TestCLI_ReindexIsIdempotent(t *testing.T) {
	isolate(t)
	root := sampleTree(t)

	_, err := execute(t, "", "index", root, "--no-tui", "--no-embed")
	require.NoError(t, err)
	_, err = execute(t, "", "index", root, "--no-tui", "--no-embed")
	require.NoError(t, err)

	out, err := execute(t, "", "stats", "--json")
	require.NoError(t, err)
	var stats output.StatsJSON
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 3, stats.TotalFiles)
	assert.Equal(t, 0, stats.EmbeddedFiles)
}

func TestCLI_RequiresIndex(t *testing.T) {
	isolate(t)

	for _, args := range [][]string{{"search", "anything"}, {"stats"}, {"clear", "--yes"}} {
		t.Run(args[0], func(t *testing.T) {
			_, err := execute(t, "", args...)
			require.Error(t, err)
			assert.Equal(t, fserrors.ErrCodeStoreFatal, fserrors.GetCode(err))
			assert.Contains(t, err.Error(), "no index found")
		})
	}
}

func TestCLI_SearchArguments(t *testing.T) {
	isolate(t)

	t.Run("query is required", func(t *testing.T) {
		_, err := execute(t, "", "search")
		require.Error(t, err)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := execute(t, "", "search", "x", "--mode", "bogus")
		require.Error(t, err)
		assert.ErrorIs(t, err, fserrors.ErrInvalidQuery)
	})
}

func TestBuildRequest(t *testing.T) {
	cfg := config.NewConfig()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	t.Run("flags override parsed phrases", func(t *testing.T) {
		req, err := buildRequest(cfg, "budget larger than 10 mb", searchOptions{
			category:  "Document",
			extension: "pdf",
			minSize:   "1KiB",
		}, now)
		require.NoError(t, err)

		assert.Equal(t, "budget", req.Query)
		assert.Equal(t, search.ModeFuzzy, req.Mode)
		assert.Equal(t, config.DefaultSearchLimit, req.Limit)
		assert.Equal(t, store.CategoryDocument, req.Filter.Category)
		assert.Equal(t, "pdf", req.Filter.Extension)
		assert.Equal(t, int64(1024), req.Filter.MinSize)
	})

	t.Run("parsed filters without flags", func(t *testing.T) {
		req, err := buildRequest(cfg, "logs modified last 2 days", searchOptions{mode: "exact", limit: 5}, now)
		require.NoError(t, err)

		assert.Equal(t, "logs", req.Query)
		assert.Equal(t, search.ModeExact, req.Mode)
		assert.Equal(t, 5, req.Limit)
		assert.Equal(t, now.Add(-48*time.Hour), req.Filter.Since)
	})

	t.Run("natural language off", func(t *testing.T) {
		req, err := buildRequest(cfg, "larger than 10 mb", searchOptions{noNL: true}, now)
		require.NoError(t, err)

		assert.Equal(t, "larger than 10 mb", req.Query)
		assert.True(t, req.Filter.IsZero())
	})

	t.Run("max size flag of zero caps the size", func(t *testing.T) {
		req, err := buildRequest(cfg, "x", searchOptions{maxSize: "0"}, now)
		require.NoError(t, err)

		assert.Zero(t, req.Filter.MaxSize)
		assert.True(t, req.Filter.SizeCapped)
	})

	t.Run("path prefix is made absolute", func(t *testing.T) {
		req, err := buildRequest(cfg, "x", searchOptions{pathPrefix: "sub"}, now)
		require.NoError(t, err)

		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(wd, "sub"), req.Filter.PathPrefix)
	})

	t.Run("invalid input", func(t *testing.T) {
		for _, opts := range []searchOptions{
			{category: "spreadsheets"},
			{maxSize: "lots"},
			{mode: "regex"},
		} {
			_, err := buildRequest(cfg, "x", opts, now)
			assert.ErrorIs(t, err, fserrors.ErrInvalidQuery)
		}
	})
}

func TestCLI_Prune(t *testing.T) {
	isolate(t)
	root := sampleTree(t)
	_, err := execute(t, "", "index", root, "--no-tui", "--no-embed")
	require.NoError(t, err)

	// Given: one indexed file is deleted
	require.NoError(t, os.Remove(filepath.Join(root, "docs", "notes.md")))

	// When: pruning twice
	out, err := execute(t, "", "prune", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 vanished entries")

	out, err = execute(t, "", "prune", root)
	require.NoError(t, err)
	assert.Contains(t, out, "Index is up to date")
}

func TestCLI_Clear(t *testing.T) {
	isolate(t)
	root := sampleTree(t)
	_, err := execute(t, "", "index", root, "--no-tui", "--no-embed")
	require.NoError(t, err)

	t.Run("declined", func(t *testing.T) {
		out, err := execute(t, "n\n", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Aborted.")
	})

	t.Run("confirmed", func(t *testing.T) {
		out, err := execute(t, "yes\n", "clear")
		require.NoError(t, err)
		assert.Contains(t, out, "Index cleared")

		out, err = execute(t, "", "stats", "--json")
		require.NoError(t, err)
		var stats output.StatsJSON
		require.NoError(t, json.Unmarshal([]byte(out), &stats))
		assert.Zero(t, stats.TotalFiles)
	})
}

func TestCLI_IndexRejectsBadRoot(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	tests := []struct {
		name string
		path string
	}{
		{"missing", filepath.Join(t.TempDir(), "missing")},
		{"not a directory", file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, sub := range []string{"index", "prune", "watch"} {
				_, err := execute(t, "", sub, tt.path)
				assert.Error(t, err, sub)
			}
		})
	}
}

func TestCLI_ConfigInit(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "config", "fsindex", "config.yaml")

	// Given: no user config
	out, err := execute(t, "", "config", "path")
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))

	// When: initialising
	out, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	// Then: a second init leaves the file alone and --force keeps a backup
	out, err = execute(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")

	out, err = execute(t, "", "config", "init", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous version saved as")
	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	// And: the template loads as the defaults
	out, err = execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "provider: static")
}

func TestCLI_ConfigShow(t *testing.T) {
	isolate(t)
	t.Setenv("FSINDEX_LOG_LEVEL", "warn")

	out, err := execute(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "default_mode: fuzzy")
	assert.Contains(t, out, "level: warn")
	assert.NotContains(t, out, "openai_api_key")
}

func TestCLI_Logs(t *testing.T) {
	isolate(t)
	root := sampleTree(t)
	logFile := filepath.Join(t.TempDir(), "fsindex.log")

	_, err := execute(t, "", "index", root, "--no-tui", "--no-embed", "--log-file", logFile)
	require.NoError(t, err)

	out, err := execute(t, "", "logs", "--file", logFile, "--no-color", "--filter", "index_run")
	require.NoError(t, err)
	assert.Contains(t, out, "index_run_started")
	assert.Contains(t, out, "INFO")

	_, err = execute(t, "", "logs", "--file", filepath.Join(t.TempDir(), "nope.log"))
	assert.Error(t, err)
}

func TestCLI_Version(t *testing.T) {
	isolate(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", []string{"version"}, "fsindex " + version.Version},
		{"short", []string{"version", "--short"}, version.Version},
		{"json", []string{"version", "--json"}, `"go_version"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, "", tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"y", true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		got, err := confirm(&buf, strings.NewReader(tt.input), "Proceed?")
		require.NoError(t, err, "%q", tt.input)
		assert.Equal(t, tt.want, got, "%q", tt.input)
		assert.Equal(t, "Proceed? [y/N]: ", buf.String())
	}
}

func TestCLI_IndexCancelled(t *testing.T) {
	isolate(t)
	root := sampleTree(t)

	// Given: a context that is already cancelled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"index", root, "--no-tui"})

	// When: indexing
	err := cmd.ExecuteContext(ctx)

	// Then: the run reports cancellation without failing the command
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Cancelled")
}

func TestCLI_IndexWhileLocked(t *testing.T) {
	home := isolate(t)
	root := sampleTree(t)

	// Given: another process holds the run lock
	dataDir := filepath.Join(home, "data")
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	lock := flock.New(filepath.Join(dataDir, "index.db.lock"))
	locked, err := lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = lock.Unlock() }()

	// When
	done := make(chan error, 1)
	go func() {
		_, err := execute(t, "", "index", root, "--no-tui")
		done <- err
	}()

	// Then: the command returns promptly with AlreadyRunning
	select {
	case err := <-done:
		require.Error(t, err)
		assert.ErrorIs(t, err, fserrors.ErrAlreadyRunning)
	case <-time.After(10 * time.Second):
		t.Fatal("index did not return while the lock was held")
	}
}
