// Package inventory records parsed METS documents and their files in SQLite,
// so documents can be listed and files found again by digest.
package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomcrane/mets-parser/internal/mets"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("inventory: not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id          TEXT PRIMARY KEY,
	content_hash    TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	agent           TEXT NOT NULL DEFAULT '',
	mets_uri        TEXT NOT NULL DEFAULT '',
	editable        INTEGER NOT NULL DEFAULT 0,
	file_count      INTEGER NOT NULL DEFAULT 0,
	directory_count INTEGER NOT NULL DEFAULT 0,
	total_size      INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_content_hash ON documents(content_hash);

CREATE TABLE IF NOT EXISTS files (
	doc_id       TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
	seq          INTEGER NOT NULL,
	local_path   TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	content_type TEXT NOT NULL,
	digest       TEXT NOT NULL DEFAULT '',
	size         INTEGER NOT NULL DEFAULT 0,
	adm_id       TEXT NOT NULL DEFAULT '',
	div_id       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (doc_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_files_digest ON files(digest) WHERE digest != '';
`

// Document is one stored METS document.
type Document struct {
	DocID          string    `json:"doc_id"`
	ContentHash    string    `json:"content_hash"`
	Name           string    `json:"name,omitempty"`
	Agent          string    `json:"agent,omitempty"`
	MetsURI        string    `json:"mets_uri,omitempty"`
	Editable       bool      `json:"editable"`
	FileCount      int       `json:"file_count"`
	DirectoryCount int       `json:"directory_count"`
	TotalSize      int64     `json:"total_size"`
	CreatedAt      time.Time `json:"created_at"`
}

// File is one file of a stored document, in document order.
type File struct {
	DocID       string `json:"doc_id"`
	Seq         int    `json:"seq"`
	LocalPath   string `json:"local_path"`
	Name        string `json:"name,omitempty"`
	ContentType string `json:"content_type"`
	Digest      string `json:"digest,omitempty"`
	Size        int64  `json:"size"`
	AdmID       string `json:"adm_id,omitempty"`
	DivID       string `json:"div_id,omitempty"`
}

// Store is a SQLite-backed inventory. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the inventory at path and applies the
// schema. Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open inventory: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply inventory schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument stores w under docID, replacing any earlier version of the
// same document and its files.
func (s *Store) SaveDocument(ctx context.Context, docID, contentHash string, w *mets.Wrapper) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID); err != nil {
		return fmt.Errorf("replace document %s: %w", docID, err)
	}

	var dirs int
	var size int64
	if w.PhysicalStructure != nil {
		dirs = w.PhysicalStructure.DescendantDirectoryCount()
		size = w.PhysicalStructure.TotalSize()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, content_hash, name, agent, mets_uri, editable,
			file_count, directory_count, total_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		docID, contentHash, w.Name, w.Agent, w.MetsURI, w.Editable,
		len(w.Files), dirs, size, s.now().UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("insert document %s: %w", docID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (doc_id, seq, local_path, name, content_type, digest, size, adm_id, div_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range w.Files {
		var admID, divID string
		if f.Mets != nil {
			admID, divID = f.Mets.AdmID, f.Mets.DivID
		}
		if _, err := stmt.ExecContext(ctx, docID, i, f.LocalPath, f.Name, f.ContentType, strings.ToLower(f.Digest), f.Size, admID, divID); err != nil {
			return fmt.Errorf("insert file %s: %w", f.LocalPath, err)
		}
	}

	return tx.Commit()
}

const documentColumns = `doc_id, content_hash, name, agent, mets_uri, editable,
	file_count, directory_count, total_size, created_at`

// GetDocument returns the document with docID or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, docID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE doc_id = ?`, docID)
	return scanDocument(row)
}

// FindByContentHash returns the most recent document whose bytes hashed to
// contentHash, or ErrNotFound.
func (s *Store) FindByContentHash(ctx context.Context, contentHash string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents
		WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1`, contentHash)
	return scanDocument(row)
}

// ListDocuments pages through documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]Document, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents
		ORDER BY created_at DESC, doc_id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// CountDocuments returns the number of stored documents.
func (s *Store) CountDocuments(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// ListFiles returns the files of docID in document order, or ErrNotFound
// when the document does not exist.
func (s *Store) ListFiles(ctx context.Context, docID string) ([]File, error) {
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return nil, err
	}
	return s.queryFiles(ctx, `WHERE doc_id = ? ORDER BY seq`, docID)
}

// FindByDigest returns every stored file with the given sha256 digest.
// Digests are compared case-insensitively.
func (s *Store) FindByDigest(ctx context.Context, digest string) ([]File, error) {
	if digest == "" {
		return nil, nil
	}
	return s.queryFiles(ctx, `WHERE digest = ? ORDER BY doc_id, seq`, strings.ToLower(digest))
}

// DeleteDocument removes docID and its files.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", docID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryFiles(ctx context.Context, where string, args ...any) ([]File, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT doc_id, seq, local_path, name, content_type,
		digest, size, adm_id, div_id FROM files `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		if err := rows.Scan(&f.DocID, &f.Seq, &f.LocalPath, &f.Name, &f.ContentType,
			&f.Digest, &f.Size, &f.AdmID, &f.DivID); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*Document, error) {
	var d Document
	var created string
	err := row.Scan(&d.DocID, &d.ContentHash, &d.Name, &d.Agent, &d.MetsURI, &d.Editable,
		&d.FileCount, &d.DirectoryCount, &d.TotalSize, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.CreatedAt, err = time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	return &d, nil
}
