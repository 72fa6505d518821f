package index

import (
	"context"
	"errors"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/config"
	"github.com/fyrsmithlabs/docqad/internal/logging"
)

// ChromemGateway implements Gateway on the embedded chromem-go store.
//
// chromem-go is a pure Go vector database persisted to gob files, so the
// default install needs no external services. Fragment text lives in the
// document content; the remaining payload keys live in metadata.
type ChromemGateway struct {
	db         *chromem.DB
	collection string
	dimension  int
	logger     *logging.Logger
}

// NewChromemGateway opens (or creates) the persistent store at cfg.Path.
func NewChromemGateway(cfg config.ChromemConfig, collection string, dimension int, logger *logging.Logger) (*ChromemGateway, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("chromem path is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
		return nil, fmt.Errorf("creating chromem directory %s: %w", cfg.Path, err)
	}

	db, err := chromem.NewPersistentDB(cfg.Path, cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening chromem DB: %w", err)
	}

	logger.Info(context.Background(), "chromem store opened",
		zap.String("path", cfg.Path),
		zap.Bool("compress", cfg.Compress),
		zap.String("collection", collection),
		zap.Int("dimension", dimension),
	)

	return &ChromemGateway{
		db:         db,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}, nil
}

// precomputedOnly rejects embedding requests. Every write carries a vector
// computed upstream, and queries arrive as vectors, so chromem must never
// fall back to its own embedder.
func precomputedOnly(context.Context, string) ([]float32, error) {
	return nil, errors.New("vectors are precomputed upstream")
}

// handle opens the collection, creating it on first use. chromem's
// get-or-create is atomic in-process, so there is no create race to handle.
func (g *ChromemGateway) handle() (*chromem.Collection, error) {
	col, err := g.db.GetOrCreateCollection(g.collection, nil, precomputedOnly)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", g.collection, err)
	}
	return col, nil
}

// EnsureCollection creates the collection when missing.
func (g *ChromemGateway) EnsureCollection(ctx context.Context) error {
	_, span := tracer.Start(ctx, "index.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", g.collection))

	if _, err := g.handle(); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Upsert indexes fragments and returns the minted point ids.
func (g *ChromemGateway) Upsert(ctx context.Context, documentID, filename string, fragments []string, vectors [][]float32) ([]string, error) {
	ctx, span := tracer.Start(ctx, "index.Upsert")
	defer span.End()
	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("fragments.count", len(fragments)),
	)

	if len(fragments) != len(vectors) {
		return nil, fmt.Errorf("fragment count %d does not match vector count %d", len(fragments), len(vectors))
	}
	if len(fragments) == 0 {
		return []string{}, nil
	}
	if err := checkDimensions(vectors, g.dimension); err != nil {
		span.RecordError(err)
		return nil, err
	}

	col, err := g.handle()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	docs := make([]chromem.Document, len(fragments))
	ids := make([]string, len(fragments))
	for i, fragment := range fragments {
		id, err := mintPointID()
		if err != nil {
			return nil, err
		}
		ids[i] = id
		docs[i] = chromem.Document{
			ID:      id,
			Content: fragment,
			Metadata: map[string]string{
				payloadKeyPointID:          id,
				payloadKeyDocumentID:       documentID,
				payloadKeyDocumentFilename: filename,
			},
			Embedding: vectors[i],
		}
	}

	// Concurrency of 1: embeddings are precomputed, nothing to parallelize.
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("adding documents: %w", err)
	}

	g.logger.Debug(ctx, "indexed fragments",
		zap.String("document_id", documentID),
		zap.Int("points", len(docs)),
	)
	return ids, nil
}

// DeleteByDocument removes every point carrying the document id.
func (g *ChromemGateway) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "index.DeleteByDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	col, err := g.handle()
	if err != nil {
		span.RecordError(err)
		return err
	}

	if err := col.Delete(ctx, map[string]string{payloadKeyDocumentID: documentID}, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting points for document %s: %w", documentID, err)
	}
	return nil
}

// Search returns the closest fragments, best first.
func (g *ChromemGateway) Search(ctx context.Context, vector []float32, topK int) ([]ScoredFragment, error) {
	ctx, span := tracer.Start(ctx, "index.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("top_k", topK))

	if topK <= 0 {
		return []ScoredFragment{}, nil
	}
	if err := checkDimensions([][]float32{vector}, g.dimension); err != nil {
		span.RecordError(err)
		return nil, err
	}

	col, err := g.handle()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	// chromem rejects nResults above the document count.
	count := col.Count()
	if count == 0 {
		return []ScoredFragment{}, nil
	}
	if topK > count {
		topK = count
	}

	hits, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("querying collection %s: %w", g.collection, err)
	}

	results := make([]ScoredFragment, len(hits))
	for i, hit := range hits {
		results[i] = ScoredFragment{
			PointID:          hit.ID,
			DocumentID:       hit.Metadata[payloadKeyDocumentID],
			DocumentFilename: hit.Metadata[payloadKeyDocumentFilename],
			Content:          hit.Content,
			Score:            hit.Similarity,
		}
	}
	span.SetAttributes(attribute.Int("results.count", len(results)))
	return results, nil
}

// Close is a no-op: chromem persists every write as it happens.
func (g *ChromemGateway) Close() error {
	return nil
}

var _ Gateway = (*ChromemGateway)(nil)
