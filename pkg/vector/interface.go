package vector

import (
	"context"
	"fmt"

	"github.com/Zereker/cvstore/pkg/result"
)

// Point is one record of a collection: identifier, embedding and the serialized payload.
type Point struct {
	ID     string
	Vector []float32
	Data   string
}

// ScoredPoint is a search match.
type ScoredPoint struct {
	Point
	Score float64
}

// CollectionInfo describes an existing collection.
type CollectionInfo struct {
	Name      string
	Dimension int
}

// Engine is the vector engine the Store delegates to. Collections use cosine similarity.
type Engine interface {
	// Collection reports whether the collection exists and its dimensionality.
	Collection(ctx context.Context, name string) (CollectionInfo, bool, error)

	// CreateCollection creates a collection. Creating an existing one is not an error.
	CreateCollection(ctx context.Context, name string, dimension int) error

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Retrieve fetches one point; the bool is false when it does not exist.
	Retrieve(ctx context.Context, collection, id string) (Point, bool, error)

	// Delete removes one point. Deleting a missing point succeeds.
	Delete(ctx context.Context, collection, id string) error

	// Scroll returns up to limit points with ID greater than after, in ascending ID order.
	Scroll(ctx context.Context, collection string, limit int, after string) ([]Point, error)

	// Search returns up to limit nearest points, by descending score.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error)

	// Close releases engine resources.
	Close() error
}

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Not-found kinds reported by the Store. Both match result.ErrNotFound.
var (
	ErrCollectionNotFound = fmt.Errorf("collection %w", result.ErrNotFound)
	ErrPointNotFound      = fmt.Errorf("point %w", result.ErrNotFound)
)

// ErrDimensionMismatch reports a vector or collection whose size differs from the
// configured dimensionality.
var ErrDimensionMismatch = fmt.Errorf("dimension mismatch")
