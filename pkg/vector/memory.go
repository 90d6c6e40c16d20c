package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

type memoryCollection struct {
	dimension int
	points    map[string]Point
}

// MemoryEngine is an in-memory Engine using brute-force cosine similarity.
// It is meant for development and tests.
type MemoryEngine struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryEngine creates an empty in-memory engine.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		collections: make(map[string]*memoryCollection),
	}
}

func (e *MemoryEngine) Collection(ctx context.Context, name string) (CollectionInfo, bool, error) {
	if err := ctx.Err(); err != nil {
		return CollectionInfo{}, false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.collections[name]
	if !ok {
		return CollectionInfo{}, false, nil
	}
	return CollectionInfo{Name: name, Dimension: c.dimension}, true, nil
}

func (e *MemoryEngine) CreateCollection(ctx context.Context, name string, dimension int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.collections[name]; !ok {
		e.collections[name] = &memoryCollection{dimension: dimension, points: make(map[string]Point)}
	}
	return nil
}

func (e *MemoryEngine) Upsert(ctx context.Context, collection string, points []Point) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok := e.collections[collection]
	if !ok {
		return fmt.Errorf("collection %s does not exist", collection)
	}

	for _, p := range points {
		if len(p.Vector) != c.dimension {
			return fmt.Errorf("%w: point %s has %d dimensions, collection %s has %d",
				ErrDimensionMismatch, p.ID, len(p.Vector), collection, c.dimension)
		}
	}

	for _, p := range points {
		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		c.points[p.ID] = Point{ID: p.ID, Vector: vec, Data: p.Data}
	}
	return nil
}

func (e *MemoryEngine) Retrieve(ctx context.Context, collection, id string) (Point, bool, error) {
	if err := ctx.Err(); err != nil {
		return Point{}, false, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.collections[collection]
	if !ok {
		return Point{}, false, fmt.Errorf("collection %s does not exist", collection)
	}

	p, ok := c.points[id]
	return p, ok, nil
}

func (e *MemoryEngine) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if c, ok := e.collections[collection]; ok {
		delete(c.points, id)
	}
	return nil
}

func (e *MemoryEngine) Scroll(ctx context.Context, collection string, limit int, after string) ([]Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}

	ids := make([]string, 0, len(c.points))
	for id := range c.points {
		if id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	points := make([]Point, len(ids))
	for i, id := range ids {
		points[i] = c.points[id]
	}
	return points, nil
}

func (e *MemoryEngine) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	c, ok := e.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s does not exist", collection)
	}
	if len(vector) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection %s has %d",
			ErrDimensionMismatch, len(vector), collection, c.dimension)
	}

	results := make([]ScoredPoint, 0, len(c.points))
	for _, p := range c.points {
		results = append(results, ScoredPoint{Point: p, Score: CosineSimilarity(vector, p.Vector)})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close is a no-op for the in-memory engine.
func (e *MemoryEngine) Close() error {
	return nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
