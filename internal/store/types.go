// Package store persists file metadata and embeddings in SQLite.
//
// Two relations carry the index: files (unique on path) and embeddings
// (one optional vector per file, removed with its file by ON DELETE CASCADE).
// A small meta table pins the embedding dimensionality for the whole store.
package store

import (
	"context"
	"time"
)

// Category is the coarse type classification derived from a file extension.
type Category string

const (
	CategoryDocument     Category = "document"
	CategorySpreadsheet  Category = "spreadsheet"
	CategoryPresentation Category = "presentation"
	CategoryImage        Category = "image"
	CategoryVideo        Category = "video"
	CategoryAudio        Category = "audio"
	CategoryArchive      Category = "archive"
	CategoryCode         Category = "code"
	CategoryExecutable   Category = "executable"
	CategoryText         Category = "text"
	CategoryOther        Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryDocument, CategorySpreadsheet, CategoryPresentation, CategoryImage,
	CategoryVideo, CategoryAudio, CategoryArchive, CategoryCode,
	CategoryExecutable, CategoryText, CategoryOther,
}

// FileRecord is the persisted metadata row for one indexed file.
type FileRecord struct {
	ID         int64
	Path       string // absolute, unique
	Name       string
	Category   Category
	Extension  string // lower-case with leading dot, "" if none
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
	AccessedAt time.Time
	ParentDir  string
	Depth      int // path segments below the index root
	Hidden     bool
	IndexedAt  time.Time
	Hash       string // xxhash64 hex, "" when over the hash threshold
}

// EmbeddingRecord is the vector owned by one file.
type EmbeddingRecord struct {
	FileID int64
	Vector []float32
}

// Draft is one unit of a batch write: the record plus its vector, if any.
// A nil Vector removes any embedding previously stored for the path.
type Draft struct {
	Record *FileRecord
	Vector []float32
}

// TimeField selects which timestamp a Filter's Since applies to.
type TimeField string

const (
	TimeModified TimeField = "modified"
	TimeCreated  TimeField = "created"
	TimeAccessed TimeField = "accessed"
)

// Filter narrows scans with predicates evaluated in SQL.
// The zero value matches everything.
type Filter struct {
	Category   Category
	Extension  string
	PathPrefix string

	Since     time.Time
	TimeField TimeField // defaults to modified

	MinSize int64 // inclusive, 0 = unbounded
	MaxSize int64 // inclusive, 0 = unbounded unless SizeCapped
	// SizeCapped applies MaxSize even when it is zero or negative; a
	// negative cap matches nothing.
	SizeCapped bool
}

// IsZero reports whether the filter has no predicates.
func (f Filter) IsZero() bool {
	return f.Category == "" && f.Extension == "" && f.PathPrefix == "" &&
		f.Since.IsZero() && f.MinSize == 0 && f.MaxSize == 0 && !f.SizeCapped
}

// Stats summarises the store contents.
type Stats struct {
	TotalFiles     int
	TotalSize      int64
	CategoryCounts map[Category]int
	EmbeddedFiles  int
	Dimensions     int
	Model          string
	LastIndexedAt  time.Time
	LastRoot       string
}

// Meta keys.
const (
	MetaSchemaVersion = "schema_version"
	MetaDimensions    = "embedding_dimensions"
	MetaModel         = "embedding_model"
	MetaLastIndexedAt = "last_indexed_at"
	MetaLastRoot      = "last_index_root"
)

// Store is the persistence contract used by the indexer and search engine.
type Store interface {
	// Upsert inserts or updates a record keyed by path and returns its id.
	Upsert(ctx context.Context, rec *FileRecord) (int64, error)
	// UpsertEmbedding stores the vector for a file id.
	UpsertEmbedding(ctx context.Context, fileID int64, vec []float32) error
	// BatchUpsert writes all drafts in one transaction and returns their ids.
	BatchUpsert(ctx context.Context, drafts []Draft) ([]int64, error)

	// ScanLightweight streams records (never vectors) matching f.
	ScanLightweight(ctx context.Context, f Filter, fn func(*FileRecord) error) error
	// ScanEmbeddings streams vectors of files matching f.
	ScanEmbeddings(ctx context.Context, f Filter, fn func(EmbeddingRecord) error) error

	GetByIDs(ctx context.Context, ids []int64) (map[int64]*FileRecord, error)
	GetByPath(ctx context.Context, path string) (*FileRecord, error)
	Embedding(ctx context.Context, fileID int64) ([]float32, error)

	// Delete removes a record and, by cascade, its embedding.
	Delete(ctx context.Context, path string) (bool, error)
	// Prune deletes records under root whose path no longer exists.
	Prune(ctx context.Context, root string, exists func(path string) bool) (int, error)
	// Clear deletes every record and embedding.
	Clear(ctx context.Context) error

	Stats(ctx context.Context) (*Stats, error)
	// CheckDimensions fails if stored vectors have a different size than dims.
	CheckDimensions(ctx context.Context, dims int) error

	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error

	Close() error
}
