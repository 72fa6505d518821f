package index

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qdrant"
)

// QdrantGateway implements Gateway against an external Qdrant server.
type QdrantGateway struct {
	client     qdrant.Client
	collection string
	dimension  int
	batchSize  int
	logger     *logging.Logger
}

// NewQdrantGateway creates a gateway over an established Qdrant client.
func NewQdrantGateway(client qdrant.Client, collection string, dimension, batchSize int, logger *logging.Logger) (*QdrantGateway, error) {
	if client == nil {
		return nil, fmt.Errorf("qdrant client is required")
	}
	if collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("dimension must be positive, got %d", dimension)
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("upsert batch size must be positive, got %d", batchSize)
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &QdrantGateway{
		client:     client,
		collection: collection,
		dimension:  dimension,
		batchSize:  batchSize,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection when missing. A create failure is
// re-checked against existence so that losing a concurrent-create race still
// counts as success.
func (g *QdrantGateway) EnsureCollection(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "index.EnsureCollection")
	defer span.End()
	span.SetAttributes(attribute.String("collection", g.collection))

	exists, err := g.client.CollectionExists(ctx, g.collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("checking collection %s: %w", g.collection, err)
	}
	if exists {
		return nil
	}

	if err := g.client.CreateCollection(ctx, g.collection, uint64(g.dimension)); err != nil {
		if exists, checkErr := g.client.CollectionExists(ctx, g.collection); checkErr == nil && exists {
			// Another creator won the race between the check and the create.
			return nil
		}
		span.RecordError(err)
		return fmt.Errorf("creating collection %s: %w", g.collection, err)
	}

	g.logger.Info(ctx, "created qdrant collection",
		zap.String("collection", g.collection),
		zap.Int("dimension", g.dimension),
	)
	return nil
}

// Upsert indexes fragments in batches and returns the minted point ids.
func (g *QdrantGateway) Upsert(ctx context.Context, documentID, filename string, fragments []string, vectors [][]float32) ([]string, error) {
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

	points := make([]*qdrant.Point, len(fragments))
	ids := make([]string, len(fragments))
	for i, fragment := range fragments {
		id, err := mintPointID()
		if err != nil {
			return nil, err
		}
		ids[i] = id
		points[i] = &qdrant.Point{
			ID:     id,
			Vector: vectors[i],
			Payload: map[string]interface{}{
				payloadKeyPointID:          id,
				payloadKeyDocumentID:       documentID,
				payloadKeyDocumentFilename: filename,
				payloadKeyContent:          fragment,
			},
		}
	}

	for start := 0; start < len(points); start += g.batchSize {
		end := start + g.batchSize
		if end > len(points) {
			end = len(points)
		}
		if err := g.client.Upsert(ctx, g.collection, points[start:end]); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("upserting batch [%d:%d): %w", start, end, err)
		}
	}

	g.logger.Debug(ctx, "indexed fragments",
		zap.String("document_id", documentID),
		zap.Int("points", len(points)),
	)
	return ids, nil
}

// DeleteByDocument removes every point carrying the document id.
func (g *QdrantGateway) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := tracer.Start(ctx, "index.DeleteByDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document_id", documentID))

	filter := &qdrant.Filter{
		Must: []qdrant.Condition{{Field: payloadKeyDocumentID, Keyword: documentID}},
	}
	if err := g.client.DeleteByFilter(ctx, g.collection, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting points for document %s: %w", documentID, err)
	}
	return nil
}

// Search returns the closest fragments, best first.
func (g *QdrantGateway) Search(ctx context.Context, vector []float32, topK int) ([]ScoredFragment, error) {
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

	hits, err := g.client.Search(ctx, g.collection, vector, uint64(topK), nil)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("searching collection %s: %w", g.collection, err)
	}

	results := make([]ScoredFragment, len(hits))
	for i, hit := range hits {
		results[i] = fragmentFromPayload(hit.ID, hit.Score, hit.Payload)
	}
	span.SetAttributes(attribute.Int("results.count", len(results)))
	return results, nil
}

// Close closes the underlying client connection.
func (g *QdrantGateway) Close() error {
	return g.client.Close()
}

// fragmentFromPayload rebuilds a ScoredFragment from a point's payload. The
// payload's point_id wins over the transport-level id when both are set.
func fragmentFromPayload(id string, score float32, payload map[string]interface{}) ScoredFragment {
	f := ScoredFragment{PointID: id, Score: score}
	if v, ok := payload[payloadKeyPointID].(string); ok && v != "" {
		f.PointID = v
	}
	if v, ok := payload[payloadKeyDocumentID].(string); ok {
		f.DocumentID = v
	}
	if v, ok := payload[payloadKeyDocumentFilename].(string); ok {
		f.DocumentFilename = v
	}
	if v, ok := payload[payloadKeyContent].(string); ok {
		f.Content = v
	}
	return f
}

var _ Gateway = (*QdrantGateway)(nil)
