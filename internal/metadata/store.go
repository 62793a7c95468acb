// Package metadata persists upload records in SQLite so the server can
// list files per user across restarts. Document content itself stays on
// disk; only provenance lives here.
package metadata

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_metadata (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL,
	user         TEXT NOT NULL,
	upload_time  TEXT NOT NULL,
	sha256       TEXT NOT NULL,
	file_size    INTEGER NOT NULL,
	content_type TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_file_metadata_user ON file_metadata(user);
`

// Record is one stored upload.
type Record struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	User        string    `json:"user"`
	UploadTime  time.Time `json:"upload_time"`
	SHA256      string    `json:"sha256"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
}

// Store wraps the SQLite handle. Safe for concurrent use; database/sql
// serializes access for the single-writer sqlite driver.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and parent directory) if needed and
// applies the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Save inserts or replaces one upload record.
func (s *Store) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO file_metadata
			(id, filename, user, upload_time, sha256, file_size, content_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Filename, rec.User, rec.UploadTime.UTC().Format(time.RFC3339),
		rec.SHA256, rec.FileSize, rec.ContentType,
	)
	if err != nil {
		return fmt.Errorf("save file metadata: %w", err)
	}
	return nil
}

// List returns records newest first. An empty user returns everything.
func (s *Store) List(ctx context.Context, user string) ([]Record, error) {
	query := `SELECT id, filename, user, upload_time, sha256, file_size, content_type
		FROM file_metadata`
	args := []any{}
	if user != "" {
		query += ` WHERE user = ?`
		args = append(args, user)
	}
	query += ` ORDER BY upload_time DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list file metadata: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			ts  string
		)
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.User, &ts,
			&rec.SHA256, &rec.FileSize, &rec.ContentType); err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		rec.UploadTime, _ = time.Parse(time.RFC3339, ts)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FileSHA256 hashes a file on disk, streaming so large uploads do not
// need to fit in memory.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
