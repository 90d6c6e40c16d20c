package vector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/result"
)

const (
	// DefaultPageSize is used by GetAll when no limit is given.
	DefaultPageSize = 10
	// MaxPageSize caps GetAll and Search limits.
	MaxPageSize = 100
)

// Record is a decoded point.
type Record[T any] struct {
	ID      string
	Payload T
}

// Hit is a decoded search match.
type Hit[T any] struct {
	Record[T]
	Score float64
}

// Page is one page of GetAll. NextCursor is empty when there are no more records.
type Page[T any] struct {
	Records    []Record[T]
	NextCursor string
}

// Store keeps payloads of type T as points of an Engine, embedding their text on save.
type Store[T any] struct {
	engine    Engine
	embedder  Embedder
	dimension int
	logger    *slog.Logger
}

// NewStore creates a store. dimension is the embedding size every collection must have.
func NewStore[T any](engine Engine, embedder Embedder, dimension int) *Store[T] {
	return &Store[T]{
		engine:    engine,
		embedder:  embedder,
		dimension: dimension,
		logger:    log.Logger("vector"),
	}
}

// EnsureCollection creates the collection when absent. An existing collection with a
// different dimensionality is an error.
func (s *Store[T]) EnsureCollection(ctx context.Context, collection string) error {
	info, exists, err := s.engine.Collection(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to inspect collection %s: %w", collection, err)
	}

	if exists {
		if info.Dimension != s.dimension {
			return fmt.Errorf("%w: collection %s has %d dimensions, expected %d",
				ErrDimensionMismatch, collection, info.Dimension, s.dimension)
		}
		return nil
	}

	if err := s.engine.CreateCollection(ctx, collection, s.dimension); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}
	s.logger.Info("collection created", "collection", collection, "dimension", s.dimension)
	return nil
}

// Save embeds text and upserts one point holding payload. An empty id gets a fresh
// UUIDv7. It returns the point id.
func (s *Store[T]) Save(ctx context.Context, collection, id string, payload T, text string) (string, error) {
	if err := s.EnsureCollection(ctx, collection); err != nil {
		return "", err
	}

	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate point id: %w", err)
		}
		id = v7.String()
	}

	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("failed to generate embedding: %w", err)
	}
	if len(vec) != s.dimension {
		return "", fmt.Errorf("%w: embedding has %d dimensions, expected %d", ErrDimensionMismatch, len(vec), s.dimension)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize payload: %w", err)
	}

	if err := s.engine.Upsert(ctx, collection, []Point{{ID: id, Vector: vec, Data: string(data)}}); err != nil {
		// 写入可能部分生效，尽力清理
		if delErr := s.engine.Delete(context.WithoutCancel(ctx), collection, id); delErr != nil {
			s.logger.Warn("failed to clean up point after upsert failure", "id", id, "error", delErr)
		}
		return "", fmt.Errorf("failed to upsert point %s: %w", id, err)
	}

	return id, nil
}

// DeleteByIDs deletes every id, treating missing ids and a missing collection as
// success. Individual failures are reported together.
func (s *Store[T]) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, exists, err := s.engine.Collection(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to inspect collection %s: %w", collection, err)
	}
	if !exists {
		return nil
	}

	statuses := make([]result.Status, len(ids))
	for i, id := range ids {
		if err := s.engine.Delete(ctx, collection, id); err != nil {
			statuses[i] = result.Failed(fmt.Sprintf("failed to delete point %s", id), err)
			continue
		}
		statuses[i] = result.Success()
	}

	return result.CollectStatus(statuses).Err()
}

// GetByID returns the payload of one point. Missing collection, missing point and an
// undecodable payload are distinct failures.
func (s *Store[T]) GetByID(ctx context.Context, collection, id string) (T, error) {
	var zero T

	if err := s.requireCollection(ctx, collection); err != nil {
		return zero, err
	}

	p, found, err := s.engine.Retrieve(ctx, collection, id)
	if err != nil {
		return zero, fmt.Errorf("failed to retrieve point %s: %w", id, err)
	}
	if !found {
		return zero, result.NewFailure(fmt.Sprintf("point with id %s not found", id), ErrPointNotFound)
	}

	return s.decodePayload(collection, p)
}

// GetAll returns one page of records in ascending id order, starting after cursor.
func (s *Store[T]) GetAll(ctx context.Context, collection string, limit int, cursor string) (Page[T], error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return Page[T]{}, err
	}

	limit = clampLimit(limit, DefaultPageSize)

	points, err := s.engine.Scroll(ctx, collection, limit, cursor)
	if err != nil {
		return Page[T]{}, fmt.Errorf("failed to scroll collection %s: %w", collection, err)
	}

	results := make([]result.Result[Record[T]], len(points))
	for i, p := range points {
		payload, err := s.decodePayload(collection, p)
		results[i] = result.From(Record[T]{ID: p.ID, Payload: payload}, err)
	}

	records, err := result.Collect(results).Unwrap()
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Records: records}
	if len(points) == limit {
		page.NextCursor = points[len(points)-1].ID
	}
	return page, nil
}

// Search embeds query and returns up to limit records by descending similarity.
func (s *Store[T]) Search(ctx context.Context, collection, query string, limit int) ([]Hit[T], error) {
	if err := s.requireCollection(ctx, collection); err != nil {
		return nil, err
	}

	limit = clampLimit(limit, DefaultPageSize)

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	scored, err := s.engine.Search(ctx, collection, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search collection %s: %w", collection, err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	results := make([]result.Result[Hit[T]], len(scored))
	for i, sp := range scored {
		payload, err := s.decodePayload(collection, sp.Point)
		results[i] = result.From(Hit[T]{Record: Record[T]{ID: sp.ID, Payload: payload}, Score: sp.Score}, err)
	}

	return result.Collect(results).Unwrap()
}

func (s *Store[T]) requireCollection(ctx context.Context, collection string) error {
	_, exists, err := s.engine.Collection(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to inspect collection %s: %w", collection, err)
	}
	if !exists {
		return result.NewFailure(fmt.Sprintf("collection %s not found", collection), ErrCollectionNotFound)
	}
	return nil
}

type validator interface {
	Validate() error
}

// decodePayload 解析点上的 JSON 负载，失败时记录原始数据。未知字段忽略，新版本写入的记录旧版本仍可读。
func (s *Store[T]) decodePayload(collection string, p Point) (T, error) {
	var payload T

	if p.Data == "" {
		s.logger.Error("point has no payload", "collection", collection, "id", p.ID)
		return payload, result.Failuref(result.ErrDeserialize, "point %s has no payload", p.ID)
	}

	if err := json.Unmarshal([]byte(p.Data), &payload); err != nil {
		s.logger.Error("failed to deserialize payload", "collection", collection, "id", p.ID, "data", p.Data, "error", err)
		return payload, result.NewFailure(fmt.Sprintf("unable to deserialize payload of point %s", p.ID),
			fmt.Errorf("%w: %w", result.ErrDeserialize, err))
	}

	if v, ok := any(&payload).(validator); ok {
		if err := v.Validate(); err != nil {
			s.logger.Error("invalid payload", "collection", collection, "id", p.ID, "data", p.Data, "error", err)
			return payload, result.NewFailure(fmt.Sprintf("invalid payload of point %s", p.ID),
				fmt.Errorf("%w: %w", result.ErrDeserialize, err))
		}
	}

	return payload, nil
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
