// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("document not found")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the local document-metadata cache. It keeps the last known
// catalog per company in SQLite so the document list renders instantly on
// startup and survives backend outages.
type Store struct {
	db *sql.DB
}

// schema creates the cache table. The (company_id, filename) pair is the
// natural key: the backend dedupes uploads by filename within a company.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	company_id       TEXT NOT NULL,
	filename         TEXT NOT NULL,
	document_hash    TEXT NOT NULL DEFAULT '',
	file_size_bytes  INTEGER NOT NULL DEFAULT 0,
	chunks_stored    INTEGER NOT NULL DEFAULT 0,
	upload_timestamp TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (company_id, filename)
);
CREATE INDEX IF NOT EXISTS idx_documents_company ON documents(company_id);
`

// OpenStore opens (creating if necessary) the cache database at path.
func OpenStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	// Single connection avoids SQLITE_BUSY under concurrent access
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CACHE OPERATIONS
// =============================================================================

// Put inserts or updates one cached document record.
func (s *Store) Put(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(company_id, filename, document_hash, file_size_bytes, chunks_stored, upload_timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, filename) DO UPDATE SET
			document_hash = excluded.document_hash,
			file_size_bytes = excluded.file_size_bytes,
			chunks_stored = excluded.chunks_stored,
			upload_timestamp = excluded.upload_timestamp`,
		doc.CompanyID, doc.Filename, doc.DocumentHash,
		doc.FileSizeBytes, doc.ChunksStored, doc.UploadTimestamp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// List returns all cached documents for a company, ordered by filename.
func (s *Store) List(ctx context.Context, companyID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT company_id, filename, document_hash, file_size_bytes, chunks_stored, upload_timestamp
		FROM documents WHERE company_id = ? ORDER BY filename`, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.CompanyID, &d.Filename, &d.DocumentHash,
			&d.FileSizeBytes, &d.ChunksStored, &d.UploadTimestamp); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return docs, nil
}

// Delete removes one cached record. Deleting an absent record is not an
// error; the cache converges on whatever the backend reports.
func (s *Store) Delete(ctx context.Context, companyID, filename string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE company_id = ? AND filename = ?`,
		companyID, filename)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}

// ReplaceAll atomically replaces the cached catalog for a company with the
// given set, used after a successful backend listing.
func (s *Store) ReplaceAll(ctx context.Context, companyID string, docs []Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE company_id = ?`, companyID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents
				(company_id, filename, document_hash, file_size_bytes, chunks_stored, upload_timestamp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			companyID, doc.Filename, doc.DocumentHash,
			doc.FileSizeBytes, doc.ChunksStored, doc.UploadTimestamp); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return nil
}
