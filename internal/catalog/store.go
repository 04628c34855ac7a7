// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes extracted images in a SQLite database so they can
// be queried by document and page without re-reading the manifest.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/image-extractor/pkg/types"
)

const defaultListLimit = 1000

// Store manages the catalog database.
type Store struct {
	db      *sql.DB
	baseDir string
}

// NewStore opens or creates the catalog at cfg.DBPath and ensures the
// schema exists.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = types.DefaultCatalogPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, baseDir: cfg.BaseDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			ingested_at TEXT NOT NULL,
			manifest_path TEXT,
			documents INTEGER,
			images INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			name TEXT PRIMARY KEY,
			total_images INTEGER NOT NULL,
			run_id TEXT NOT NULL REFERENCES runs(id)
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			filename TEXT PRIMARY KEY,
			document TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
			page INTEGER NOT NULL,
			idx INTEGER NOT NULL,
			path TEXT NOT NULL,
			size_bytes INTEGER,
			width INTEGER,
			height INTEGER,
			format TEXT,
			exif_make TEXT,
			exif_model TEXT,
			exif_software TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_images_document ON images(document, page, idx)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// IngestSummary holds counts from one catalog ingest.
type IngestSummary struct {
	RunID     string
	Documents int
	Images    int
	Missing   int // records whose image file could not be read
	Removed   int // documents dropped because the manifest no longer lists them
}

// Ingest replaces the catalog contents with the documents in m, recording
// the ingest as a new run. Image files are inspected for size, dimensions
// and camera EXIF; unreadable files are still catalogued and counted as
// missing. Everything happens in one transaction.
func (s *Store) Ingest(ctx context.Context, m *types.Mapping, manifestPath string, w io.Writer) (IngestSummary, error) {
	summary := IngestSummary{RunID: uuid.NewString()}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, ingested_at, manifest_path, documents, images) VALUES (?, ?, ?, ?, ?)`,
		summary.RunID, time.Now().UTC().Format(time.RFC3339), manifestPath, m.Len(), m.TotalImages(),
	)
	if err != nil {
		return summary, fmt.Errorf("inserting run: %w", err)
	}

	removed, err := removeStaleDocuments(ctx, tx, m)
	if err != nil {
		return summary, err
	}
	summary.Removed = removed

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO images (filename, document, page, idx, path, size_bytes, width, height, format, exif_make, exif_model, exif_software)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
			document=excluded.document, page=excluded.page, idx=excluded.idx, path=excluded.path,
			size_bytes=excluded.size_bytes, width=excluded.width, height=excluded.height, format=excluded.format,
			exif_make=excluded.exif_make, exif_model=excluded.exif_model, exif_software=excluded.exif_software`)
	if err != nil {
		return summary, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, name := range m.Keys() {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		entry, _ := m.Get(name)
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE document = ?`, name); err != nil {
			return summary, fmt.Errorf("clearing images of %s: %w", name, err)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (name, total_images, run_id) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET total_images=excluded.total_images, run_id=excluded.run_id`,
			name, entry.TotalImages, summary.RunID,
		)
		if err != nil {
			return summary, fmt.Errorf("upserting document %s: %w", name, err)
		}

		for _, rec := range entry.Images {
			info, err := Inspect(s.resolve(rec.Path))
			if err != nil {
				fmt.Fprintf(w, "  warning: %v\n", err)
				summary.Missing++
			}
			_, err = stmt.ExecContext(ctx,
				rec.Filename, name, rec.Page, rec.Index, rec.Path,
				info.SizeBytes, info.Width, info.Height, info.Format,
				info.Make, info.Model, info.Software,
			)
			if err != nil {
				return summary, fmt.Errorf("inserting image %s: %w", rec.Filename, err)
			}
			summary.Images++
		}

		fmt.Fprintf(w, "indexed %s (%d images)\n", name, len(entry.Images))
		summary.Documents++
	}

	if err := tx.Commit(); err != nil {
		return summary, fmt.Errorf("committing catalog: %w", err)
	}

	fmt.Fprintf(w, "\ndocuments: %d, images: %d, missing: %d, removed: %d\n",
		summary.Documents, summary.Images, summary.Missing, summary.Removed)
	return summary, nil
}

// removeStaleDocuments deletes documents, and their images, that m no
// longer lists.
func removeStaleDocuments(ctx context.Context, tx *sql.Tx, m *types.Mapping) (int, error) {
	rows, err := tx.QueryContext(ctx, `SELECT name FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}
	var stale []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning document: %w", err)
		}
		if _, ok := m.Get(name); !ok {
			stale = append(stale, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing documents: %w", err)
	}

	for _, name := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE document = ?`, name); err != nil {
			return 0, fmt.Errorf("deleting images of %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE name = ?`, name); err != nil {
			return 0, fmt.Errorf("deleting document %s: %w", name, err)
		}
	}
	return len(stale), nil
}

func (s *Store) resolve(recordPath string) string {
	p := filepath.FromSlash(recordPath)
	if filepath.IsAbs(p) || s.baseDir == "" {
		return p
	}
	return filepath.Join(s.baseDir, p)
}

// Query filters List results. Zero values match everything.
type Query struct {
	Document string
	Page     int
	Limit    int
}

// ImageRow is one catalogued image.
type ImageRow struct {
	Document  string `json:"document"`
	Filename  string `json:"filename"`
	Page      int    `json:"page"`
	Index     int    `json:"index"`
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	Make      string `json:"exif_make,omitempty"`
	Model     string `json:"exif_model,omitempty"`
	Software  string `json:"exif_software,omitempty"`
	RunID     string `json:"run_id"`
}

// List returns catalogued images ordered by document, page and index.
func (s *Store) List(ctx context.Context, q Query) ([]ImageRow, error) {
	var (
		where []string
		args  []any
	)
	if q.Document != "" {
		where = append(where, "i.document = ?")
		args = append(args, q.Document)
	}
	if q.Page > 0 {
		where = append(where, "i.page = ?")
		args = append(args, q.Page)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT i.document, i.filename, i.page, i.idx, i.path,
		COALESCE(i.size_bytes, 0), COALESCE(i.width, 0), COALESCE(i.height, 0),
		COALESCE(i.format, ''), COALESCE(i.exif_make, ''), COALESCE(i.exif_model, ''),
		COALESCE(i.exif_software, ''), d.run_id
		FROM images i JOIN documents d ON d.name = i.document`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY i.document, i.page, i.idx LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying images: %w", err)
	}
	defer rows.Close()

	var out []ImageRow
	for rows.Next() {
		var r ImageRow
		if err := rows.Scan(&r.Document, &r.Filename, &r.Page, &r.Index, &r.Path,
			&r.SizeBytes, &r.Width, &r.Height, &r.Format,
			&r.Make, &r.Model, &r.Software, &r.RunID); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DocumentCount returns the number of catalogued documents.
func (s *Store) DocumentCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}
