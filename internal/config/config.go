package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

const (
	// ProjectConfigName is the per-root configuration file.
	ProjectConfigName = ".fsindex.yaml"

	// DefaultHashMaxBytes is the largest file that gets a content hash (10MB).
	DefaultHashMaxBytes int64 = 10 * 1024 * 1024
	// DefaultEmbedMaxBytes is the largest file that gets an embedding (1MB).
	DefaultEmbedMaxBytes int64 = 1024 * 1024
	// DefaultBatchSize is the number of drafts committed per transaction.
	DefaultBatchSize = 1000
	// DefaultSearchLimit bounds search results when no limit is given.
	DefaultSearchLimit = 50
)

// Config represents the complete fsindex configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Indexing   IndexingConfig   `yaml:"indexing"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// PathsConfig locates the index database.
type PathsConfig struct {
	DataDir string `yaml:"data_dir"`
	// DBPath defaults to <data_dir>/index.db.
	DBPath string `yaml:"db_path"`
}

// IndexingConfig configures traversal and the indexing pipeline.
type IndexingConfig struct {
	IncludeHidden    bool `yaml:"include_hidden"`
	RespectGitignore bool `yaml:"respect_gitignore"`
	FollowSymlinks   bool `yaml:"follow_symlinks"`
	// MaxDepth limits traversal below the root. 0 means unlimited.
	MaxDepth int `yaml:"max_depth"`
	// SkipPatterns are added to the built-in skip set.
	SkipPatterns []string `yaml:"skip_patterns"`
	// NoDefaultSkips disables the built-in skip set.
	NoDefaultSkips bool `yaml:"no_default_skips"`
	// HashMaxBytes is inclusive: a file of exactly this size is hashed.
	HashMaxBytes int64 `yaml:"hash_max_bytes"`

	BatchSize          int           `yaml:"batch_size"`
	QueueSize          int           `yaml:"queue_size"`
	Workers            int           `yaml:"workers"`
	ProgressEveryFiles int           `yaml:"progress_every_files"`
	ProgressInterval   time.Duration `yaml:"progress_interval"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Provider is one of static, ollama, openai, none.
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// MaxFileBytes is inclusive: a file of exactly this size is embedded.
	MaxFileBytes int64         `yaml:"max_file_bytes"`
	Timeout      time.Duration `yaml:"timeout"`
	CacheSize    int           `yaml:"cache_size"`

	// Consecutive failures before embedding calls are skipped for BreakerReset.
	BreakerFailures int           `yaml:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset"`

	OllamaHost    string `yaml:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	// OpenAIAPIKey is read from the environment only.
	OpenAIAPIKey string `yaml:"-"`
}

// SearchConfig configures query defaults.
type SearchConfig struct {
	DefaultLimit int    `yaml:"default_limit"`
	DefaultMode  string `yaml:"default_mode"`
	// NaturalLanguage enables "last 3 days" / "larger than 10mb" parsing in the CLI.
	NaturalLanguage bool `yaml:"natural_language"`
}

// WatchConfig configures the filesystem watcher.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	dataDir := DefaultDataDir()
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			DataDir: dataDir,
			DBPath:  filepath.Join(dataDir, "index.db"),
		},
		Indexing: IndexingConfig{
			IncludeHidden:      true,
			HashMaxBytes:       DefaultHashMaxBytes,
			BatchSize:          DefaultBatchSize,
			QueueSize:          256,
			Workers:            runtime.NumCPU(),
			ProgressEveryFiles: 100,
			ProgressInterval:   250 * time.Millisecond,
		},
		Embeddings: EmbeddingsConfig{
			Enabled:         true,
			Provider:        "static",
			Model:           "",
			Dimensions:      0, // provider default
			MaxFileBytes:    DefaultEmbedMaxBytes,
			Timeout:         30 * time.Second,
			CacheSize:       1000,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit:    DefaultSearchLimit,
			DefaultMode:     "fuzzy",
			NaturalLanguage: true,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// DefaultDataDir returns ~/.fsindex, or a temp directory fallback.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".fsindex")
	}
	return filepath.Join(home, ".fsindex")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/fsindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/fsindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "fsindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "fsindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "fsindex", "config.yaml")
}

// Load loads configuration for an index root.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/fsindex/config.yaml)
//  3. Project config (.fsindex.yaml in dir)
//  4. .env in dir (never overrides variables already set)
//  5. Environment variables (FSINDEX_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fserrors.ConfigError("failed to load user config", err).WithDetail("path", path)
		}
	}

	if dir != "" {
		projectPath := filepath.Join(dir, ProjectConfigName)
		if fileExists(projectPath) {
			if err := cfg.loadYAML(projectPath); err != nil {
				return nil, fserrors.ConfigError("failed to load project config", err).WithDetail("path", projectPath)
			}
		}

		envPath := filepath.Join(dir, ".env")
		if fileExists(envPath) {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fserrors.ConfigError("failed to load .env", err).WithDetail("path", envPath)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadYAML overlays a YAML file onto c. Keys absent from the file keep
// their current value, so booleans that default to true survive.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return c.overlay(data)
}

func (c *Config) overlay(data []byte) error {
	prevDataDir, prevDBPath := c.Paths.DataDir, c.Paths.DBPath

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Moving data_dir moves the database with it unless db_path was set too.
	if c.Paths.DataDir != prevDataDir && c.Paths.DBPath == prevDBPath {
		c.Paths.DBPath = filepath.Join(c.Paths.DataDir, "index.db")
	}
	return nil
}

// resolvePaths derives DBPath from DataDir when only the latter was changed.
func (c *Config) resolvePaths() {
	if c.Paths.DBPath == "" {
		c.Paths.DBPath = filepath.Join(c.Paths.DataDir, "index.db")
	}
	c.Paths.DataDir = expandHome(c.Paths.DataDir)
	c.Paths.DBPath = expandHome(c.Paths.DBPath)
}

// applyEnvOverrides applies FSINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("FSINDEX_DATA_DIR"); v != "" {
		c.Paths.DataDir = v
		c.Paths.DBPath = filepath.Join(v, "index.db")
	}
	if v := os.Getenv("FSINDEX_DB_PATH"); v != "" {
		c.Paths.DBPath = v
	}
	if v := os.Getenv("FSINDEX_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("FSINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("FSINDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("FSINDEX_OPENAI_BASE_URL"); v != "" {
		c.Embeddings.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Embeddings.OpenAIAPIKey = v
	}
	if v := os.Getenv("FSINDEX_OPENAI_API_KEY"); v != "" {
		c.Embeddings.OpenAIAPIKey = v
	}
	if v := os.Getenv("FSINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("FSINDEX_EMBEDDINGS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("FSINDEX_EMBEDDINGS_ENABLED", v, err)
		}
		c.Embeddings.Enabled = b
	}
	if v := os.Getenv("FSINDEX_INCLUDE_HIDDEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("FSINDEX_INCLUDE_HIDDEN", v, err)
		}
		c.Indexing.IncludeHidden = b
	}
	if v := os.Getenv("FSINDEX_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("FSINDEX_BATCH_SIZE", v, err)
		}
		c.Indexing.BatchSize = n
	}
	return nil
}

func envError(name, value string, err error) error {
	return fserrors.ConfigError("invalid environment override", err).
		WithDetail("variable", name).
		WithDetail("value", value)
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fserrors.ConfigError(fmt.Sprintf(format, args...), nil)
	}

	if c.Paths.DBPath == "" {
		return invalid("paths.db_path must not be empty")
	}
	if c.Indexing.HashMaxBytes < 0 {
		return invalid("indexing.hash_max_bytes must be non-negative, got %d", c.Indexing.HashMaxBytes)
	}
	if c.Indexing.BatchSize <= 0 {
		return invalid("indexing.batch_size must be positive, got %d", c.Indexing.BatchSize)
	}
	if c.Indexing.QueueSize <= 0 {
		return invalid("indexing.queue_size must be positive, got %d", c.Indexing.QueueSize)
	}
	if c.Indexing.Workers <= 0 {
		return invalid("indexing.workers must be positive, got %d", c.Indexing.Workers)
	}
	if c.Indexing.MaxDepth < 0 {
		return invalid("indexing.max_depth must be non-negative, got %d", c.Indexing.MaxDepth)
	}
	if c.Indexing.ProgressEveryFiles < 0 || c.Indexing.ProgressInterval < 0 {
		return invalid("indexing progress settings must be non-negative")
	}

	if c.Embeddings.MaxFileBytes < 0 {
		return invalid("embeddings.max_file_bytes must be non-negative, got %d", c.Embeddings.MaxFileBytes)
	}
	if c.Embeddings.Timeout <= 0 {
		return invalid("embeddings.timeout must be positive, got %s", c.Embeddings.Timeout)
	}
	if c.Embeddings.Dimensions < 0 {
		return invalid("embeddings.dimensions must be non-negative, got %d", c.Embeddings.Dimensions)
	}
	validProviders := map[string]bool{"static": true, "ollama": true, "openai": true, "none": true}
	if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
		return invalid("embeddings.provider must be 'static', 'ollama', 'openai', or 'none', got %q", c.Embeddings.Provider)
	}

	if c.Search.DefaultLimit <= 0 {
		return invalid("search.default_limit must be positive, got %d", c.Search.DefaultLimit)
	}
	validModes := map[string]bool{"exact": true, "fuzzy": true, "semantic": true}
	if !validModes[strings.ToLower(c.Search.DefaultMode)] {
		return invalid("search.default_mode must be 'exact', 'fuzzy', or 'semantic', got %q", c.Search.DefaultMode)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %q", c.Logging.Level)
	}

	return nil
}

// EmbeddingsActive reports whether indexing should generate embeddings.
func (c *Config) EmbeddingsActive() bool {
	return c.Embeddings.Enabled && !strings.EqualFold(c.Embeddings.Provider, "none")
}

// WriteYAML writes the configuration to a YAML file, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
