package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/docqad/internal/document"
)

// documentStore implements document.Store.
type documentStore struct {
	store *Store
}

var _ document.Store = (*documentStore)(nil)

const documentColumns = "id, filename, locator, status, upload_time, processed_time, size_bytes, preview"

// Save inserts the document or updates it when the id already exists.
func (s *documentStore) Save(ctx context.Context, doc *document.Document) error {
	var processedTime sql.NullTime
	if doc.ProcessedTime != nil {
		processedTime = sql.NullTime{Time: *doc.ProcessedTime, Valid: true}
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			locator = excluded.locator,
			status = excluded.status,
			upload_time = excluded.upload_time,
			processed_time = excluded.processed_time,
			size_bytes = excluded.size_bytes,
			preview = excluded.preview
	`, doc.ID, doc.Filename, doc.Locator, string(doc.Status),
		doc.UploadTime, processedTime, doc.Size, doc.Preview)

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// Get retrieves a document by id.
func (s *documentStore) Get(ctx context.Context, id string) (*document.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
		}
		return nil, err
	}
	return doc, nil
}

// List returns all documents, most recently uploaded first.
func (s *documentStore) List(ctx context.Context) ([]*document.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+documentColumns+` FROM documents ORDER BY upload_time DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []*document.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// Delete removes a document row. Deleting a missing row is not an error.
func (s *documentStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// CountByFilename returns the number of documents with the exact filename.
func (s *documentStore) CountByFilename(ctx context.Context, filename string) (int, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM documents WHERE filename = ?", filename).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting documents by filename: %w", err)
	}
	return count, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans one document row.
func scanDocument(row scanner) (*document.Document, error) {
	var doc document.Document
	var status string
	var processedTime sql.NullTime

	if err := row.Scan(&doc.ID, &doc.Filename, &doc.Locator, &status,
		&doc.UploadTime, &processedTime, &doc.Size, &doc.Preview); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = document.Status(status)
	if processedTime.Valid {
		t := processedTime.Time
		doc.ProcessedTime = &t
	}

	return &doc, nil
}
