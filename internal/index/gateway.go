// Package index stores and searches embedded document fragments. A Gateway
// hides the vector database behind the four operations the rest of the
// daemon needs; implementations exist for an external Qdrant server and the
// embedded chromem store.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("docqad.index")

// Payload keys attached to every indexed point.
const (
	payloadKeyPointID          = "point_id"
	payloadKeyDocumentID       = "document_id"
	payloadKeyDocumentFilename = "document_filename"
	payloadKeyContent          = "content"
)

// ErrDimensionMismatch indicates vectors whose dimension disagrees with the
// collection. This is a configuration fault, not a transient failure.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ScoredFragment is one search hit: a stored fragment with its cosine
// similarity to the query vector.
type ScoredFragment struct {
	PointID          string
	DocumentID       string
	DocumentFilename string
	Content          string
	Score            float32
}

// Gateway is the vector index surface used by document processing and QA.
type Gateway interface {
	// EnsureCollection makes sure the collection exists, creating it when
	// missing. Idempotent; losing a concurrent-create race is success.
	EnsureCollection(ctx context.Context) error

	// Upsert indexes one vector per fragment under freshly minted point ids
	// and returns those ids in fragment order. Vectors whose dimension
	// disagrees with the collection fail with ErrDimensionMismatch before
	// anything is written.
	Upsert(ctx context.Context, documentID, filename string, fragments []string, vectors [][]float32) ([]string, error)

	// DeleteByDocument removes every point belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search returns up to topK fragments closest to the vector, best
	// first. topK <= 0 and an empty index both yield an empty result.
	Search(ctx context.Context, vector []float32, topK int) ([]ScoredFragment, error)

	// Close releases the underlying store.
	Close() error
}

// mintPointID returns a new UUIDv7 point id. Time-ordered ids keep insertion
// order recoverable from the ids alone.
func mintPointID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating point id: %w", err)
	}
	return id.String(), nil
}

// checkDimensions verifies every vector matches the collection dimension.
func checkDimensions(vectors [][]float32, dimension int) error {
	for i, vec := range vectors {
		if len(vec) != dimension {
			return fmt.Errorf("%w: vector %d has dimension %d, collection expects %d",
				ErrDimensionMismatch, i, len(vec), dimension)
		}
	}
	return nil
}
