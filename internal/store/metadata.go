// Package store holds the two persistence backends named in section 6: the
// metadata store M (SQLite, tracking directories and files) and the vector
// store V client (an HTTP client for a Qdrant-shaped external service).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/directory-indexer/directory-indexer/internal/errors"
)

// DirectoryStatus is the lifecycle state of an indexed root.
type DirectoryStatus string

const (
	DirectoryPending   DirectoryStatus = "pending"
	DirectoryCompleted DirectoryStatus = "completed"
	DirectoryFailed    DirectoryStatus = "failed"
)

// Directory is one row of the directories table.
type Directory struct {
	ID        int64
	Path      string
	Status    DirectoryStatus
	IndexedAt int64 // unix seconds
}

// ChunkRef records one chunk's ordinal, text, and the opaque vector-store
// point ID that carries its embedding — M keeps the chunk text durably so
// get_file_content and search previews work even for chunks V never
// received (e.g. after an embedding failure).
type ChunkRef struct {
	Ordinal int    `json:"ordinal"`
	Text    string `json:"text"`
	PointID string `json:"point_id"`
}

// File is one row of the files table.
type File struct {
	ID           int64
	Path         string
	Size         int64
	ModifiedTime int64 // unix seconds
	Hash         string
	ParentDirs   []string
	Chunks       []ChunkRef
	Errors       []string
}

// MetadataStore wraps the single-writer SQLite handle backing M.
type MetadataStore struct {
	db *sql.DB
}

// OpenMetadataStore opens (creating if necessary) the metadata database at
// path. An empty path opens an in-memory database, used by tests.
func OpenMetadataStore(path string) (*MetadataStore, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.IO("create metadata directory: %v", err)
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Database("open metadata store: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, errors.Database("set pragma: %v", err)
		}
	}

	m := &MetadataStore{db: db}
	if err := m.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func (m *MetadataStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS directories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		status TEXT NOT NULL,
		indexed_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT UNIQUE NOT NULL,
		size INTEGER NOT NULL,
		modified_time INTEGER NOT NULL,
		hash TEXT NOT NULL,
		parent_dirs TEXT NOT NULL,
		chunks_json TEXT NOT NULL,
		errors_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_files_path ON files(path);
	CREATE INDEX IF NOT EXISTS idx_files_parent_dirs ON files(parent_dirs);
	`
	if _, err := m.db.Exec(schema); err != nil {
		return errors.Database("initialize schema: %v", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (m *MetadataStore) Close() error {
	return m.db.Close()
}

// UpsertDirectory inserts or updates a directory row by path.
func (m *MetadataStore) UpsertDirectory(ctx context.Context, dir Directory) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO directories (path, status, indexed_at) VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET status = excluded.status, indexed_at = excluded.indexed_at
	`, dir.Path, string(dir.Status), dir.IndexedAt)
	if err != nil {
		return errors.Database("upsert directory %s: %v", dir.Path, err)
	}
	return nil
}

// GetDirectory fetches a directory row by path.
func (m *MetadataStore) GetDirectory(ctx context.Context, path string) (*Directory, error) {
	row := m.db.QueryRowContext(ctx, `SELECT id, path, status, indexed_at FROM directories WHERE path = ?`, path)
	var d Directory
	var status string
	if err := row.Scan(&d.ID, &d.Path, &status, &d.IndexedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("directory %s is not indexed", path)
		}
		return nil, errors.Database("get directory %s: %v", path, err)
	}
	d.Status = DirectoryStatus(status)
	return &d, nil
}

// CountDirectories returns the total number of directory rows.
func (m *MetadataStore) CountDirectories(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM directories`).Scan(&n); err != nil {
		return 0, errors.Database("count directories: %v", err)
	}
	return n, nil
}

// UpsertFile inserts or updates a file row by path.
func (m *MetadataStore) UpsertFile(ctx context.Context, f File) error {
	parentDirs, err := json.Marshal(f.ParentDirs)
	if err != nil {
		return errors.JSON("encode parent_dirs for %s: %v", f.Path, err)
	}
	chunks, err := json.Marshal(f.Chunks)
	if err != nil {
		return errors.JSON("encode chunks_json for %s: %v", f.Path, err)
	}
	fileErrors, err := json.Marshal(f.Errors)
	if err != nil {
		return errors.JSON("encode errors_json for %s: %v", f.Path, err)
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO files (path, size, modified_time, hash, parent_dirs, chunks_json, errors_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			size = excluded.size,
			modified_time = excluded.modified_time,
			hash = excluded.hash,
			parent_dirs = excluded.parent_dirs,
			chunks_json = excluded.chunks_json,
			errors_json = excluded.errors_json
	`, f.Path, f.Size, f.ModifiedTime, f.Hash, string(parentDirs), string(chunks), string(fileErrors))
	if err != nil {
		return errors.Database("upsert file %s: %v", f.Path, err)
	}
	return nil
}

// GetFile fetches a file row by path.
func (m *MetadataStore) GetFile(ctx context.Context, path string) (*File, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, path, size, modified_time, hash, parent_dirs, chunks_json, errors_json
		FROM files WHERE path = ?`, path)
	return scanFile(row)
}

// DeleteFile removes a file row by path.
func (m *MetadataStore) DeleteFile(ctx context.Context, path string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return errors.Database("delete file %s: %v", path, err)
	}
	return nil
}

// FilesUnderDirectory returns all file rows whose parent_dirs JSON contains
// dir as a substring. Search's directory_filter does not use it; that
// filter is applied to vector-store payload paths.
func (m *MetadataStore) FilesUnderDirectory(ctx context.Context, dir string) ([]File, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, path, size, modified_time, hash, parent_dirs, chunks_json, errors_json
		FROM files WHERE parent_dirs LIKE ?`, "%"+dir+"%")
	if err != nil {
		return nil, errors.Database("query files under %s: %v", dir, err)
	}
	defer func() { _ = rows.Close() }()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

// AllFiles returns every file row, used by status reporting and
// consistency reconciliation.
func (m *MetadataStore) AllFiles(ctx context.Context) ([]File, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, path, size, modified_time, hash, parent_dirs, chunks_json, errors_json
		FROM files`)
	if err != nil {
		return nil, errors.Database("query all files: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var out []File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*File, error) {
	var f File
	var parentDirs, chunks, fileErrors string
	if err := row.Scan(&f.ID, &f.Path, &f.Size, &f.ModifiedTime, &f.Hash, &parentDirs, &chunks, &fileErrors); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("file not found")
		}
		return nil, errors.Database("scan file row: %v", err)
	}
	if err := json.Unmarshal([]byte(parentDirs), &f.ParentDirs); err != nil {
		return nil, errors.JSON("decode parent_dirs: %v", err)
	}
	if err := json.Unmarshal([]byte(chunks), &f.Chunks); err != nil {
		return nil, errors.JSON("decode chunks_json: %v", err)
	}
	if err := json.Unmarshal([]byte(fileErrors), &f.Errors); err != nil {
		return nil, errors.JSON("decode errors_json: %v", err)
	}
	return &f, nil
}

// DatabaseSizeBytes returns the size in bytes of the on-disk database
// file, or 0 for an in-memory store. Used by the status command.
func (m *MetadataStore) DatabaseSizeBytes(path string) int64 {
	if path == "" {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
