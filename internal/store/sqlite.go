package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	fserrors "github.com/Aman-CERP/fsindex/internal/errors"
)

const schemaVersion = "1"

// maxInParams bounds the number of bound parameters in one IN (...) clause.
const maxInParams = 500

const schema = `
CREATE TABLE IF NOT EXISTS files (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT    NOT NULL UNIQUE,
	name         TEXT    NOT NULL,
	category     TEXT    NOT NULL,
	extension    TEXT    NOT NULL DEFAULT '',
	size         INTEGER NOT NULL,
	created_at   INTEGER NOT NULL,
	modified_at  INTEGER NOT NULL,
	accessed_at  INTEGER NOT NULL,
	parent_dir   TEXT    NOT NULL,
	depth        INTEGER NOT NULL,
	hidden       INTEGER NOT NULL DEFAULT 0,
	indexed_at   INTEGER NOT NULL,
	content_hash TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_name       ON files(name);
CREATE INDEX IF NOT EXISTS idx_files_category   ON files(category);
CREATE INDEX IF NOT EXISTS idx_files_extension  ON files(extension);
CREATE INDEX IF NOT EXISTS idx_files_parent_dir ON files(parent_dir);
CREATE INDEX IF NOT EXISTS idx_files_modified   ON files(modified_at);

CREATE TABLE IF NOT EXISTS embeddings (
	file_id INTEGER PRIMARY KEY REFERENCES files(id) ON DELETE CASCADE,
	vector  BLOB    NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const fileColumns = `id, path, name, category, extension, size, created_at, modified_at,
	accessed_at, parent_dir, depth, hidden, indexed_at, content_hash`

const upsertSQL = `
INSERT INTO files (path, name, category, extension, size, created_at, modified_at,
	accessed_at, parent_dir, depth, hidden, indexed_at, content_hash)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET
	name         = excluded.name,
	category     = excluded.category,
	extension    = excluded.extension,
	size         = excluded.size,
	created_at   = excluded.created_at,
	modified_at  = excluded.modified_at,
	accessed_at  = excluded.accessed_at,
	parent_dir   = excluded.parent_dir,
	depth        = excluded.depth,
	hidden       = excluded.hidden,
	indexed_at   = excluded.indexed_at,
	content_hash = excluded.content_hash
RETURNING id`

// SQLiteStore implements Store on modernc.org/sqlite.
//
// Writes go through a single connection so batch commits are serialised.
// Reads use a separate pool; in WAL mode they see every committed batch
// and never wait on an open write transaction.
type SQLiteStore struct {
	db   *sql.DB // writer, one connection
	rdb  *sql.DB // readers
	path string
}

// Verify interface implementation at compile time
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (creating if needed) the index database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fserrors.StoreError("open", errors.New("database path is required"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fserrors.StoreError("open", fmt.Errorf("create directory: %w", err))
	}

	// _pragma params are applied by the driver to every new connection.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fserrors.StoreError("open", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -65536", // 64MB
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fserrors.StoreError("open", fmt.Errorf("set pragma %q: %w", pragma, err))
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fserrors.StoreError("init_schema", err)
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO meta (key, value) VALUES (?, ?)`, MetaSchemaVersion, schemaVersion); err != nil {
		_ = db.Close()
		return nil, fserrors.StoreError("init_schema", err)
	}

	rdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = db.Close()
		return nil, fserrors.StoreError("open", err)
	}
	rdb.SetMaxOpenConns(4)

	slog.Debug("store_opened", slog.String("path", path))

	return &SQLiteStore{db: db, rdb: rdb, path: path}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes both pools.
func (s *SQLiteStore) Close() error {
	_ = s.rdb.Close()
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Upsert inserts or updates rec keyed by path and sets rec.ID.
func (s *SQLiteStore) Upsert(ctx context.Context, rec *FileRecord) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, upsertSQL, recordArgs(rec)...).Scan(&id)
	if err != nil {
		return 0, fserrors.StoreError("upsert", err).WithDetail("path", rec.Path)
	}
	rec.ID = id
	return id, nil
}

// UpsertEmbedding stores vec for fileID, pinning the store dimensionality on
// first use and rejecting vectors of any other size afterwards.
func (s *SQLiteStore) UpsertEmbedding(ctx context.Context, fileID int64, vec []float32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fserrors.StoreError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	dims, err := pinnedDims(ctx, tx)
	if err != nil {
		return err
	}
	if _, err := checkVector(ctx, tx, dims, vec); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO embeddings (file_id, vector) VALUES (?, ?)`,
		fileID, EncodeVector(vec)); err != nil {
		return fserrors.StoreError("upsert_embedding", err).WithDetail("file_id", strconv.FormatInt(fileID, 10))
	}

	if err := tx.Commit(); err != nil {
		return fserrors.StoreError("commit", err)
	}
	return nil
}

// BatchUpsert writes every draft in one transaction. Either all drafts are
// visible afterwards or none are. Record IDs are set on success.
func (s *SQLiteStore) BatchUpsert(ctx context.Context, drafts []Draft) ([]int64, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fserrors.StoreError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsertStmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return nil, fserrors.StoreError("prepare", err)
	}
	defer upsertStmt.Close()

	embedStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO embeddings (file_id, vector) VALUES (?, ?)`)
	if err != nil {
		return nil, fserrors.StoreError("prepare", err)
	}
	defer embedStmt.Close()

	dropStmt, err := tx.PrepareContext(ctx, `DELETE FROM embeddings WHERE file_id = ?`)
	if err != nil {
		return nil, fserrors.StoreError("prepare", err)
	}
	defer dropStmt.Close()

	dims, err := pinnedDims(ctx, tx)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(drafts))
	for i, d := range drafts {
		var id int64
		if err := upsertStmt.QueryRowContext(ctx, recordArgs(d.Record)...).Scan(&id); err != nil {
			return nil, fserrors.StoreError("batch_upsert", err).WithDetail("path", d.Record.Path)
		}
		ids[i] = id

		if d.Vector == nil {
			if _, err := dropStmt.ExecContext(ctx, id); err != nil {
				return nil, fserrors.StoreError("batch_upsert", err).WithDetail("path", d.Record.Path)
			}
			continue
		}

		if dims, err = checkVector(ctx, tx, dims, d.Vector); err != nil {
			var fe *fserrors.FSError
			if errors.As(err, &fe) {
				fe.WithDetail("path", d.Record.Path)
			}
			return nil, err
		}
		if _, err := embedStmt.ExecContext(ctx, id, EncodeVector(d.Vector)); err != nil {
			return nil, fserrors.StoreError("batch_upsert", err).WithDetail("path", d.Record.Path)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fserrors.StoreError("commit", err)
	}

	for i, d := range drafts {
		d.Record.ID = ids[i]
	}
	return ids, nil
}

// pinnedDims returns the pinned dimensionality, 0 if none.
func pinnedDims(ctx context.Context, tx *sql.Tx) (int, error) {
	var v string
	err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, MetaDimensions).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fserrors.StoreError("read_meta", err)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fserrors.StoreError("read_meta", fmt.Errorf("bad %s value %q", MetaDimensions, v))
	}
	return n, nil
}

// checkVector validates vec against dims, pinning dims in tx if unset.
func checkVector(ctx context.Context, tx *sql.Tx, dims int, vec []float32) (int, error) {
	if len(vec) == 0 {
		return dims, fserrors.New(fserrors.ErrCodeDimensionMismatch, "empty embedding vector", nil)
	}
	if dims == 0 {
		if err := setMeta(ctx, tx, MetaDimensions, strconv.Itoa(len(vec))); err != nil {
			return dims, err
		}
		return len(vec), nil
	}
	if len(vec) != dims {
		return dims, fserrors.New(fserrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedding has %d dimensions, store holds %d", len(vec), dims), nil).
			WithSuggestion("run 'fsindex clear' or switch back to the original embedding model")
	}
	return dims, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setMeta(ctx context.Context, ex execer, key, value string) error {
	_, err := ex.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fserrors.StoreError("write_meta", err).WithDetail("key", key)
	}
	return nil
}

// ScanLightweight streams records matching f in id order.
func (s *SQLiteStore) ScanLightweight(ctx context.Context, f Filter, fn func(*FileRecord) error) error {
	where, args := f.where("")
	rows, err := s.rdb.QueryContext(ctx, `SELECT `+fileColumns+` FROM files`+where+` ORDER BY id`, args...)
	if err != nil {
		return fserrors.StoreError("scan_files", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return fserrors.StoreError("scan_files", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fserrors.StoreError("scan_files", err)
	}
	return nil
}

// ScanEmbeddings streams the vectors of files matching f in file id order.
func (s *SQLiteStore) ScanEmbeddings(ctx context.Context, f Filter, fn func(EmbeddingRecord) error) error {
	where, args := f.where("f.")
	rows, err := s.rdb.QueryContext(ctx,
		`SELECT e.file_id, e.vector FROM embeddings e JOIN files f ON f.id = e.file_id`+where+` ORDER BY e.file_id`,
		args...)
	if err != nil {
		return fserrors.StoreError("scan_embeddings", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return fserrors.StoreError("scan_embeddings", err)
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return fserrors.StoreError("scan_embeddings", err).WithDetail("file_id", strconv.FormatInt(id, 10))
		}
		if err := fn(EmbeddingRecord{FileID: id, Vector: vec}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fserrors.StoreError("scan_embeddings", err)
	}
	return nil
}

// GetByIDs loads records by id. Missing ids are absent from the map.
func (s *SQLiteStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]*FileRecord, error) {
	out := make(map[int64]*FileRecord, len(ids))
	for start := 0; start < len(ids); start += maxInParams {
		end := min(start+maxInParams, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := `SELECT ` + fileColumns + ` FROM files WHERE id IN (` + placeholders(len(chunk)) + `)`

		rows, err := s.rdb.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fserrors.StoreError("get_by_ids", err)
		}
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				rows.Close()
				return nil, fserrors.StoreError("get_by_ids", err)
			}
			out[rec.ID] = rec
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fserrors.StoreError("get_by_ids", err)
		}
	}
	return out, nil
}

// GetByPath returns the record for path, or nil if it is not indexed.
func (s *SQLiteStore) GetByPath(ctx context.Context, path string) (*FileRecord, error) {
	row := s.rdb.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE path = ?`, path)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fserrors.StoreError("get_by_path", err).WithDetail("path", path)
	}
	return rec, nil
}

// Embedding returns the vector for fileID, or nil if it has none.
func (s *SQLiteStore) Embedding(ctx context.Context, fileID int64) ([]float32, error) {
	var blob []byte
	err := s.rdb.QueryRowContext(ctx, `SELECT vector FROM embeddings WHERE file_id = ?`, fileID).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fserrors.StoreError("get_embedding", err)
	}
	return DecodeVector(blob)
}

// Delete removes the record for path. The embedding goes with it.
func (s *SQLiteStore) Delete(ctx context.Context, path string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path)
	if err != nil {
		return false, fserrors.StoreError("delete", err).WithDetail("path", path)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Prune deletes records under root (all records if root is "") whose path
// exists reports as gone. Returns the number of records removed.
func (s *SQLiteStore) Prune(ctx context.Context, root string, exists func(path string) bool) (int, error) {
	var f Filter
	if root != "" {
		f.PathPrefix = strings.TrimSuffix(root, string(filepath.Separator)) + string(filepath.Separator)
	}

	var gone []string
	err := s.ScanLightweight(ctx, f, func(rec *FileRecord) error {
		if !exists(rec.Path) {
			gone = append(gone, rec.Path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(gone) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fserrors.StoreError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM files WHERE path = ?`)
	if err != nil {
		return 0, fserrors.StoreError("prepare", err)
	}
	defer stmt.Close()

	for _, p := range gone {
		if _, err := stmt.ExecContext(ctx, p); err != nil {
			return 0, fserrors.StoreError("prune", err).WithDetail("path", p)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fserrors.StoreError("commit", err)
	}

	slog.Info("store_pruned", slog.String("root", root), slog.Int("removed", len(gone)))
	return len(gone), nil
}

// Clear deletes every record, every embedding and the pinned model metadata.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fserrors.StoreError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		`DELETE FROM embeddings`,
		`DELETE FROM files`,
		`DELETE FROM meta WHERE key IN ('` + MetaDimensions + `', '` + MetaModel + `')`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fserrors.StoreError("clear", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fserrors.StoreError("commit", err)
	}
	return nil
}

// Stats returns totals, the per-category distribution and embedding coverage.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{CategoryCounts: make(map[Category]int)}

	if err := s.rdb.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM files`).Scan(&st.TotalFiles, &st.TotalSize); err != nil {
		return nil, fserrors.StoreError("stats", err)
	}

	rows, err := s.rdb.QueryContext(ctx, `SELECT category, COUNT(*) FROM files GROUP BY category`)
	if err != nil {
		return nil, fserrors.StoreError("stats", err)
	}
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			rows.Close()
			return nil, fserrors.StoreError("stats", err)
		}
		st.CategoryCounts[Category(cat)] = n
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fserrors.StoreError("stats", err)
	}

	if err := s.rdb.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&st.EmbeddedFiles); err != nil {
		return nil, fserrors.StoreError("stats", err)
	}

	meta, err := s.allMeta(ctx)
	if err != nil {
		return nil, err
	}
	st.Dimensions, _ = strconv.Atoi(meta[MetaDimensions])
	st.Model = meta[MetaModel]
	st.LastRoot = meta[MetaLastRoot]
	if v := meta[MetaLastIndexedAt]; v != "" {
		st.LastIndexedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return st, nil
}

func (s *SQLiteStore) allMeta(ctx context.Context) (map[string]string, error) {
	rows, err := s.rdb.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fserrors.StoreError("read_meta", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fserrors.StoreError("read_meta", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fserrors.StoreError("read_meta", err)
	}
	return out, nil
}

// CheckDimensions fails with ErrDimensionMismatch when the store holds
// vectors of a size other than dims. An empty embeddings table is re-pinned
// to dims.
func (s *SQLiteStore) CheckDimensions(ctx context.Context, dims int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fserrors.StoreError("begin", err)
	}
	defer func() { _ = tx.Rollback() }()

	pinned, err := pinnedDims(ctx, tx)
	if err != nil {
		return err
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM embeddings`).Scan(&count); err != nil {
		return fserrors.StoreError("check_dimensions", err)
	}

	if count > 0 && pinned != 0 && pinned != dims {
		return fserrors.New(fserrors.ErrCodeDimensionMismatch,
			fmt.Sprintf("embedder produces %d dimensions, store holds %d", dims, pinned), nil).
			WithDetail("stored_vectors", strconv.Itoa(count)).
			WithSuggestion("run 'fsindex clear' before switching embedding models")
	}
	if count == 0 && pinned != dims {
		if err := setMeta(ctx, tx, MetaDimensions, strconv.Itoa(dims)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fserrors.StoreError("commit", err)
	}
	return nil
}

// GetMeta returns the value for key, or "" if unset.
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.rdb.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fserrors.StoreError("read_meta", err).WithDetail("key", key)
	}
	return v, nil
}

// SetMeta sets key to value.
func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	return setMeta(ctx, s.db, key, value)
}

// where renders the filter as a WHERE clause. prefix qualifies column names.
func (f Filter) where(prefix string) (string, []any) {
	var conds []string
	var args []any

	if f.Category != "" {
		conds = append(conds, prefix+"category = ?")
		args = append(args, string(f.Category))
	}
	if f.Extension != "" {
		ext := strings.ToLower(f.Extension)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		conds = append(conds, prefix+"extension = ?")
		args = append(args, ext)
	}
	if f.PathPrefix != "" {
		// Byte-wise range scan; 0xFF never occurs in UTF-8 text.
		conds = append(conds, prefix+"path >= ? AND "+prefix+"path < ?")
		args = append(args, f.PathPrefix, f.PathPrefix+"\xff")
	}
	if !f.Since.IsZero() {
		col := "modified_at"
		switch f.TimeField {
		case TimeCreated:
			col = "created_at"
		case TimeAccessed:
			col = "accessed_at"
		}
		conds = append(conds, prefix+col+" >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if f.MinSize > 0 {
		conds = append(conds, prefix+"size >= ?")
		args = append(args, f.MinSize)
	}
	if f.MaxSize > 0 || f.SizeCapped {
		conds = append(conds, prefix+"size <= ?")
		args = append(args, f.MaxSize)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (*FileRecord, error) {
	var (
		rec                                    FileRecord
		category                               string
		created, modified, accessed, indexedAt int64
		hidden                                 int
		hash                                   sql.NullString
	)
	if err := r.Scan(&rec.ID, &rec.Path, &rec.Name, &category, &rec.Extension, &rec.Size,
		&created, &modified, &accessed, &rec.ParentDir, &rec.Depth, &hidden, &indexedAt, &hash); err != nil {
		return nil, err
	}
	rec.Category = Category(category)
	rec.CreatedAt = fromNanos(created)
	rec.ModifiedAt = fromNanos(modified)
	rec.AccessedAt = fromNanos(accessed)
	rec.IndexedAt = fromNanos(indexedAt)
	rec.Hidden = hidden != 0
	rec.Hash = hash.String
	return &rec, nil
}

func recordArgs(rec *FileRecord) []any {
	var hash sql.NullString
	if rec.Hash != "" {
		hash = sql.NullString{String: rec.Hash, Valid: true}
	}
	hidden := 0
	if rec.Hidden {
		hidden = 1
	}
	category := rec.Category
	if category == "" {
		category = CategoryOther
	}
	return []any{
		rec.Path, rec.Name, string(category), rec.Extension, rec.Size,
		toNanos(rec.CreatedAt), toNanos(rec.ModifiedAt), toNanos(rec.AccessedAt),
		rec.ParentDir, rec.Depth, hidden, toNanos(rec.IndexedAt), hash,
	}
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
