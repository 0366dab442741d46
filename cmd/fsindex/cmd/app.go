package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Aman-CERP/fsindex/internal/config"
	"github.com/Aman-CERP/fsindex/internal/embed"
	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
	"github.com/Aman-CERP/fsindex/internal/store"
)

// resolveRoot returns the absolute root named by args, or the working
// directory. The root must be an existing directory.
func resolveRoot(args []string) (string, error) {
	path := "."
	if len(args) > 0 {
		path = args[0]
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fserrors.New(fserrors.ErrCodeInvalidPath, "invalid path", err).WithDetail("path", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fserrors.FileError(abs, "stat", err)
	}
	if !info.IsDir() {
		return "", fserrors.New(fserrors.ErrCodeInvalidPath, "not a directory", nil).WithDetail("path", abs)
	}
	return abs, nil
}

// loadConfig loads the configuration that applies to dir.
func loadConfig(dir string) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	slog.Debug("config_loaded",
		slog.String("dir", dir),
		slog.String("db_path", cfg.Paths.DBPath),
		slog.Bool("embeddings", cfg.EmbeddingsActive()))
	return cfg, nil
}

// openStore opens the index database, creating it when create is set.
func openStore(cfg *config.Config, create bool) (*store.SQLiteStore, error) {
	if !create {
		if _, err := os.Stat(cfg.Paths.DBPath); err != nil {
			return nil, fserrors.New(fserrors.ErrCodeStoreFatal, "no index found", err).
				WithDetail("path", cfg.Paths.DBPath).
				WithSuggestion("run 'fsindex index <path>' first")
		}
	}
	return store.NewSQLiteStore(cfg.Paths.DBPath)
}

// newEmbedder builds the configured embedder, or returns nil when
// embeddings are turned off.
func newEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	if !cfg.EmbeddingsActive() {
		return nil, nil
	}
	ec := cfg.Embeddings
	return embed.NewEmbedder(ctx, embed.Options{
		Provider:      embed.ParseProvider(ec.Provider),
		Model:         ec.Model,
		Dimensions:    ec.Dimensions,
		OllamaHost:    ec.OllamaHost,
		OpenAIBaseURL: ec.OpenAIBaseURL,
		OpenAIAPIKey:  ec.OpenAIAPIKey,
		CacheSize:     ec.CacheSize,
	})
}

func closeEmbedder(e embed.Embedder) {
	if e != nil {
		_ = e.Close()
	}
}

// confirm asks a yes/no question on w and reads the answer from r.
// Anything but y or yes is a no.
func confirm(w io.Writer, r io.Reader, question string) (bool, error) {
	_, _ = fmt.Fprintf(w, "%s [y/N]: ", question)
	input, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && input == "" {
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("failed to read input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
