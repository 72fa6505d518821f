// Package qdrant wraps the official Qdrant Go client behind the narrow
// surface the vector index needs: collection bootstrap, point upserts,
// similarity queries and filtered deletes, with retries on transient
// transport failures.
package qdrant

import (
	"context"
)

// Client is the subset of Qdrant operations the index gateway depends on.
type Client interface {
	// CreateCollection creates a cosine-distance collection sized for
	// vectorSize-dimensional vectors.
	CreateCollection(ctx context.Context, name string, vectorSize uint64) error

	// CollectionExists reports whether a collection exists.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// Upsert inserts or replaces points in a collection.
	Upsert(ctx context.Context, collection string, points []*Point) error

	// Search returns up to limit points closest to vector, best first.
	Search(ctx context.Context, collection string, vector []float32, limit uint64, filter *Filter) ([]*ScoredPoint, error)

	// DeleteByFilter removes every point matching the filter.
	DeleteByFilter(ctx context.Context, collection string, filter *Filter) error

	// Health checks the server connection.
	Health(ctx context.Context) error

	// Close closes the client connection.
	Close() error
}

// Point is a vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]interface{}
}

// ScoredPoint is a search result with its similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Filter restricts point operations by payload fields.
type Filter struct {
	Must    []Condition
	Should  []Condition
	MustNot []Condition
}

// Condition matches a payload field against a keyword.
type Condition struct {
	Field   string
	Keyword string
}
