package index

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/docqad/internal/logging"
	"github.com/fyrsmithlabs/docqad/internal/qdrant"
)

// fakeQdrantClient records calls and answers from scripted responses.
type fakeQdrantClient struct {
	existsResults []bool
	existsErr     error
	existsCalls   int

	createErr   error
	createCalls []uint64

	upsertErr     error
	upsertBatches [][]*qdrant.Point

	searchHits []*qdrant.ScoredPoint
	searchErr  error
	searchReqs []uint64

	deleteFilters []*qdrant.Filter
	deleteErr     error

	closed bool
}

func (f *fakeQdrantClient) CreateCollection(_ context.Context, _ string, vectorSize uint64) error {
	f.createCalls = append(f.createCalls, vectorSize)
	return f.createErr
}

func (f *fakeQdrantClient) CollectionExists(context.Context, string) (bool, error) {
	f.existsCalls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	if len(f.existsResults) == 0 {
		return false, nil
	}
	result := f.existsResults[0]
	if len(f.existsResults) > 1 {
		f.existsResults = f.existsResults[1:]
	}
	return result, nil
}

func (f *fakeQdrantClient) Upsert(_ context.Context, _ string, points []*qdrant.Point) error {
	f.upsertBatches = append(f.upsertBatches, points)
	return f.upsertErr
}

func (f *fakeQdrantClient) Search(_ context.Context, _ string, _ []float32, limit uint64, _ *qdrant.Filter) ([]*qdrant.ScoredPoint, error) {
	f.searchReqs = append(f.searchReqs, limit)
	return f.searchHits, f.searchErr
}

func (f *fakeQdrantClient) DeleteByFilter(_ context.Context, _ string, filter *qdrant.Filter) error {
	f.deleteFilters = append(f.deleteFilters, filter)
	return f.deleteErr
}

func (f *fakeQdrantClient) Health(context.Context) error { return nil }

func (f *fakeQdrantClient) Close() error {
	f.closed = true
	return nil
}

var _ qdrant.Client = (*fakeQdrantClient)(nil)

func testQdrantGateway(t *testing.T, client qdrant.Client, batchSize int) *QdrantGateway {
	t.Helper()
	g, err := NewQdrantGateway(client, "documents", 3, batchSize, logging.NewTestLogger().Logger)
	require.NoError(t, err)
	return g
}

func TestNewQdrantGateway_Validation(t *testing.T) {
	client := &fakeQdrantClient{}
	logger := logging.NewTestLogger().Logger

	tests := []struct {
		name       string
		client     qdrant.Client
		collection string
		dimension  int
		batchSize  int
		logger     *logging.Logger
		wantErr    string
	}{
		{"nil client", nil, "documents", 3, 200, logger, "client is required"},
		{"missing collection", client, "", 3, 200, logger, "collection name is required"},
		{"zero dimension", client, "documents", 0, 200, logger, "dimension must be positive"},
		{"zero batch size", client, "documents", 3, 0, logger, "batch size must be positive"},
		{"nil logger", client, "documents", 3, 200, nil, "logger is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewQdrantGateway(tt.client, tt.collection, tt.dimension, tt.batchSize, tt.logger)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQdrantGateway_EnsureCollection(t *testing.T) {
	t.Run("existing collection skips create", func(t *testing.T) {
		client := &fakeQdrantClient{existsResults: []bool{true}}
		g := testQdrantGateway(t, client, 200)

		require.NoError(t, g.EnsureCollection(context.Background()))
		assert.Empty(t, client.createCalls)
	})

	t.Run("missing collection is created with configured dimension", func(t *testing.T) {
		client := &fakeQdrantClient{existsResults: []bool{false}}
		g := testQdrantGateway(t, client, 200)

		require.NoError(t, g.EnsureCollection(context.Background()))
		require.Len(t, client.createCalls, 1)
		assert.Equal(t, uint64(3), client.createCalls[0])
	})

	t.Run("losing a create race is success", func(t *testing.T) {
		client := &fakeQdrantClient{
			existsResults: []bool{false, true}, // missing at first check, present after the failed create
			createErr:     errors.New("collection already exists"),
		}
		g := testQdrantGateway(t, client, 200)

		require.NoError(t, g.EnsureCollection(context.Background()))
		assert.Equal(t, 2, client.existsCalls)
	})

	t.Run("create failure with collection still missing is an error", func(t *testing.T) {
		client := &fakeQdrantClient{
			existsResults: []bool{false, false},
			createErr:     errors.New("storage full"),
		}
		g := testQdrantGateway(t, client, 200)

		err := g.EnsureCollection(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage full")
	})
}

func TestQdrantGateway_Upsert_BatchesAndPayload(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 2)

	fragments := []string{"one", "two", "three", "four", "five"}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}, {0, 1, 1}}

	ids, err := g.Upsert(context.Background(), "doc-1", "report.txt", fragments, vectors)
	require.NoError(t, err)
	require.Len(t, ids, 5)

	require.Len(t, client.upsertBatches, 3)
	assert.Len(t, client.upsertBatches[0], 2)
	assert.Len(t, client.upsertBatches[1], 2)
	assert.Len(t, client.upsertBatches[2], 1)

	first := client.upsertBatches[0][0]
	assert.Equal(t, ids[0], first.ID)
	assert.Equal(t, vectors[0], first.Vector)
	assert.Equal(t, ids[0], first.Payload["point_id"])
	assert.Equal(t, "doc-1", first.Payload["document_id"])
	assert.Equal(t, "report.txt", first.Payload["document_filename"])
	assert.Equal(t, "one", first.Payload["content"])
}

func TestQdrantGateway_Upsert_DimensionMismatchBeforeTransport(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 200)

	_, err := g.Upsert(context.Background(), "doc-1", "a.txt",
		[]string{"one", "two"},
		[][]float32{{1, 0, 0}, {1, 0, 0, 0}},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Empty(t, client.upsertBatches, "no transport call may happen on dimension mismatch")
}

func TestQdrantGateway_Upsert_BatchFailureCarriesRange(t *testing.T) {
	client := &fakeQdrantClient{upsertErr: errors.New("grpc unavailable")}
	g := testQdrantGateway(t, client, 2)

	_, err := g.Upsert(context.Background(), "doc-1", "a.txt",
		[]string{"one", "two", "three"},
		[][]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting batch [0:2)")
	assert.Contains(t, err.Error(), "grpc unavailable")
}

func TestQdrantGateway_Search(t *testing.T) {
	client := &fakeQdrantClient{
		searchHits: []*qdrant.ScoredPoint{
			{
				Point: qdrant.Point{
					ID: "transport-id",
					Payload: map[string]interface{}{
						"point_id":          "payload-id",
						"document_id":       "doc-1",
						"document_filename": "report.txt",
						"content":           "alpha fragment",
					},
				},
				Score: 0.92,
			},
			{
				Point: qdrant.Point{
					ID:      "bare-id",
					Payload: map[string]interface{}{},
				},
				Score: 0.41,
			},
		},
	}
	g := testQdrantGateway(t, client, 200)

	hits, err := g.Search(context.Background(), []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	assert.Equal(t, ScoredFragment{
		PointID:          "payload-id",
		DocumentID:       "doc-1",
		DocumentFilename: "report.txt",
		Content:          "alpha fragment",
		Score:            0.92,
	}, hits[0])

	// Without a payload point_id the transport id stands in.
	assert.Equal(t, "bare-id", hits[1].PointID)
	assert.Equal(t, float32(0.41), hits[1].Score)

	require.Len(t, client.searchReqs, 1)
	assert.Equal(t, uint64(5), client.searchReqs[0])
}

func TestQdrantGateway_Search_TopKNonPositive(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 200)

	hits, err := g.Search(context.Background(), []float32{1, 0, 0}, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Empty(t, client.searchReqs, "no transport call for non-positive topK")
}

func TestQdrantGateway_Search_DimensionMismatch(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 200)

	_, err := g.Search(context.Background(), []float32{1, 0}, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Empty(t, client.searchReqs)
}

func TestQdrantGateway_DeleteByDocument(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 200)

	require.NoError(t, g.DeleteByDocument(context.Background(), "doc-1"))

	require.Len(t, client.deleteFilters, 1)
	filter := client.deleteFilters[0]
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 1)
	assert.Equal(t, qdrant.Condition{Field: "document_id", Keyword: "doc-1"}, filter.Must[0])
}

func TestQdrantGateway_Close(t *testing.T) {
	client := &fakeQdrantClient{}
	g := testQdrantGateway(t, client, 200)

	require.NoError(t, g.Close())
	assert.True(t, client.closed)
}
