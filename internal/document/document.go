// Package document manages the document ingestion lifecycle: upload
// validation, the extract/chunk/embed/index pipeline, and deletion across
// the blob store, the vector index, and the metadata store.
package document

import (
	"context"
	"errors"
	"time"
)

// Common errors.
var (
	ErrInvalidUpload     = errors.New("invalid upload")
	ErrDuplicateFilename = errors.New("duplicate filename")
	ErrNotFound          = errors.New("document not found")
)

// Status is the lifecycle state of a document.
//
// Transitions: uploaded → processing → processed or error. The only way out
// of a terminal state is a fresh Process call, which restarts from
// processing.
type Status string

// Document lifecycle states.
const (
	StatusUploaded   Status = "uploaded"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
)

// Document is the metadata row for one uploaded document.
type Document struct {
	// ID is the unique document identifier (UUID), minted at upload.
	ID string `json:"id"`

	// Filename is the original upload filename, unique across documents.
	Filename string `json:"filename"`

	// Locator is the opaque blob store locator for the raw bytes.
	Locator string `json:"locator"`

	// Status is the current lifecycle state.
	Status Status `json:"status"`

	// UploadTime is when the document was uploaded.
	UploadTime time.Time `json:"upload_time"`

	// ProcessedTime is when processing last completed, nil until then.
	ProcessedTime *time.Time `json:"processed_time,omitempty"`

	// Size is the upload size in bytes.
	Size int64 `json:"size_bytes"`

	// Preview is a short excerpt of the extracted text, set on success.
	Preview string `json:"preview,omitempty"`
}

// Store persists document metadata rows.
type Store interface {
	// Save inserts the document or updates it when the id already exists.
	Save(ctx context.Context, doc *Document) error

	// Get retrieves a document by id. Misses return ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// List returns all documents, most recently uploaded first.
	List(ctx context.Context) ([]*Document, error)

	// Delete removes a document row. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error

	// CountByFilename returns the number of documents with the exact
	// filename. Always a fresh query, never a cached view.
	CountByFilename(ctx context.Context, filename string) (int, error)
}
