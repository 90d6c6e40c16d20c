package vector

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zereker/cvstore/pkg/result"
)

const (
	testCollection = "cvs"
	testDim        = 8
)

type testPayload struct {
	Name string `json:"name"`
}

func (p testPayload) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

// hashEmbedder 根据文本生成确定性向量
type hashEmbedder struct {
	dim int
	err error
}

func (e *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, e.dim)
	for i := range vec {
		h := fnv.New32a()
		_, _ = fmt.Fprintf(h, "%d:%s", i, text)
		vec[i] = float32(h.Sum32()%1000) / 1000
	}
	return vec, nil
}

// mockEngine 包装 MemoryEngine，可注入失败
type mockEngine struct {
	*MemoryEngine
	UpsertFunc  func(ctx context.Context, collection string, points []Point) error
	DeleteFunc  func(ctx context.Context, collection, id string) error
	SearchFunc  func(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error)
	DeleteCalls []string
}

func (m *mockEngine) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, collection, vector, limit)
	}
	return m.MemoryEngine.Search(ctx, collection, vector, limit)
}

func (m *mockEngine) Upsert(ctx context.Context, collection string, points []Point) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, points)
	}
	return m.MemoryEngine.Upsert(ctx, collection, points)
}

func (m *mockEngine) Delete(ctx context.Context, collection, id string) error {
	m.DeleteCalls = append(m.DeleteCalls, id)
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, collection, id)
	}
	return m.MemoryEngine.Delete(ctx, collection, id)
}

func newTestStore() (*Store[testPayload], *mockEngine) {
	engine := &mockEngine{MemoryEngine: NewMemoryEngine()}
	return NewStore[testPayload](engine, &hashEmbedder{dim: testDim}, testDim), engine
}

func captureLogs[T any](s *Store[T]) *bytes.Buffer {
	var buf bytes.Buffer
	s.logger = slog.New(slog.NewTextHandler(&buf, nil))
	return &buf
}

func TestStoreSaveAndGet(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	id, err := store.Save(ctx, testCollection, "", testPayload{Name: "cv.pdf"}, "Go, Kubernetes")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := store.GetByID(ctx, testCollection, id)
	require.NoError(t, err)
	assert.Equal(t, testPayload{Name: "cv.pdf"}, got)

	t.Run("caller minted id is kept", func(t *testing.T) {
		id, err := store.Save(ctx, testCollection, "fixed-id", testPayload{Name: "a.txt"}, "text")
		require.NoError(t, err)
		assert.Equal(t, "fixed-id", id)
	})
}

func TestStoreGetByIDFailures(t *testing.T) {
	ctx := context.Background()
	store, engine := newTestStore()

	t.Run("missing collection", func(t *testing.T) {
		_, err := store.GetByID(ctx, testCollection, "x")
		assert.ErrorIs(t, err, ErrCollectionNotFound)
		assert.ErrorIs(t, err, result.ErrNotFound)
	})

	require.NoError(t, store.EnsureCollection(ctx, testCollection))

	t.Run("missing point", func(t *testing.T) {
		_, err := store.GetByID(ctx, testCollection, "x")
		assert.ErrorIs(t, err, ErrPointNotFound)
		assert.NotErrorIs(t, err, ErrCollectionNotFound)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		require.NoError(t, engine.MemoryEngine.Upsert(ctx, testCollection, []Point{
			{ID: "bad", Vector: make([]float32, testDim), Data: `{"unknown":1}`},
		}))
		_, err := store.GetByID(ctx, testCollection, "bad")
		assert.ErrorIs(t, err, result.ErrDeserialize)
		assert.NotErrorIs(t, err, result.ErrNotFound)
	})

	t.Run("raw payload is logged", func(t *testing.T) {
		logs := captureLogs(store)
		require.NoError(t, engine.MemoryEngine.Upsert(ctx, testCollection, []Point{
			{ID: "corrupt", Vector: make([]float32, testDim), Data: "RAW-CORRUPT-DATA"},
		}))

		_, err := store.GetByID(ctx, testCollection, "corrupt")
		assert.ErrorIs(t, err, result.ErrDeserialize)
		assert.Contains(t, logs.String(), "RAW-CORRUPT-DATA")
		assert.Contains(t, logs.String(), "id=corrupt")
	})

	t.Run("fields added by newer writers are ignored", func(t *testing.T) {
		require.NoError(t, engine.MemoryEngine.Upsert(ctx, testCollection, []Point{
			{ID: "newer", Vector: make([]float32, testDim), Data: `{"name":"cv.pdf","added_later":true}`},
		}))

		got, err := store.GetByID(ctx, testCollection, "newer")
		require.NoError(t, err)
		assert.Equal(t, "cv.pdf", got.Name)
	})
}

func TestStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()

	t.Run("existing collection", func(t *testing.T) {
		engine := NewMemoryEngine()
		require.NoError(t, engine.CreateCollection(ctx, testCollection, 4))
		store := NewStore[testPayload](engine, &hashEmbedder{dim: testDim}, testDim)

		_, err := store.Save(ctx, testCollection, "", testPayload{Name: "a"}, "text")
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		points, err := engine.Scroll(ctx, testCollection, 10, "")
		require.NoError(t, err)
		assert.Empty(t, points)
	})

	t.Run("embedder output", func(t *testing.T) {
		engine := NewMemoryEngine()
		store := NewStore[testPayload](engine, &hashEmbedder{dim: 3}, testDim)

		_, err := store.Save(ctx, testCollection, "", testPayload{Name: "a"}, "text")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestStoreSaveUpsertFailureCleansUp(t *testing.T) {
	ctx := context.Background()
	store, engine := newTestStore()
	engine.UpsertFunc = func(context.Context, string, []Point) error {
		return errors.New("engine unavailable")
	}

	_, err := store.Save(ctx, testCollection, "id-1", testPayload{Name: "a"}, "text")
	require.Error(t, err)
	assert.Equal(t, []string{"id-1"}, engine.DeleteCalls)
}

func TestStoreDeleteByIDs(t *testing.T) {
	ctx := context.Background()

	t.Run("missing collection succeeds", func(t *testing.T) {
		store, _ := newTestStore()
		assert.NoError(t, store.DeleteByIDs(ctx, testCollection, []string{"a"}))
	})

	t.Run("idempotent", func(t *testing.T) {
		store, _ := newTestStore()
		id, err := store.Save(ctx, testCollection, "", testPayload{Name: "a"}, "text")
		require.NoError(t, err)

		require.NoError(t, store.DeleteByIDs(ctx, testCollection, []string{id}))
		require.NoError(t, store.DeleteByIDs(ctx, testCollection, []string{id}))

		_, err = store.GetByID(ctx, testCollection, id)
		assert.ErrorIs(t, err, ErrPointNotFound)
	})

	t.Run("attempts every id and aggregates failures", func(t *testing.T) {
		store, engine := newTestStore()
		require.NoError(t, store.EnsureCollection(ctx, testCollection))
		engine.DeleteFunc = func(_ context.Context, _ string, id string) error {
			if id == "ok" {
				return nil
			}
			return fmt.Errorf("boom %s", id)
		}

		err := store.DeleteByIDs(ctx, testCollection, []string{"a", "ok", "b"})
		require.Error(t, err)
		assert.Equal(t, []string{"a", "ok", "b"}, engine.DeleteCalls)
		assert.Equal(t, "[failed to delete point a, failed to delete point b]", err.Error())
	})
}

func TestStoreGetAll(t *testing.T) {
	ctx := context.Background()
	store, engine := newTestStore()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := store.Save(ctx, testCollection, "", testPayload{Name: fmt.Sprintf("cv-%d", i)}, fmt.Sprintf("text %d", i))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	t.Run("pages in insertion order", func(t *testing.T) {
		page, err := store.GetAll(ctx, testCollection, 2, "")
		require.NoError(t, err)
		require.Len(t, page.Records, 2)
		assert.Equal(t, ids[0], page.Records[0].ID)
		assert.Equal(t, ids[1], page.NextCursor)

		page, err = store.GetAll(ctx, testCollection, 2, page.NextCursor)
		require.NoError(t, err)
		assert.Equal(t, ids[2], page.Records[0].ID)

		page, err = store.GetAll(ctx, testCollection, 2, page.NextCursor)
		require.NoError(t, err)
		require.Len(t, page.Records, 1)
		assert.Equal(t, ids[4], page.Records[0].ID)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("default limit", func(t *testing.T) {
		page, err := store.GetAll(ctx, testCollection, 0, "")
		require.NoError(t, err)
		assert.Len(t, page.Records, 5)
		assert.Empty(t, page.NextCursor)
	})

	t.Run("aggregates every bad record", func(t *testing.T) {
		logs := captureLogs(store)
		require.NoError(t, engine.MemoryEngine.Upsert(ctx, testCollection, []Point{
			{ID: "zz-1", Vector: make([]float32, testDim), Data: `not json`},
			{ID: "zz-2", Vector: make([]float32, testDim), Data: `{"name":""}`},
		}))

		_, err := store.GetAll(ctx, testCollection, 100, ids[4])
		require.Error(t, err)
		assert.ErrorIs(t, err, result.ErrDeserialize)
		assert.Contains(t, err.Error(), "zz-1")
		assert.Contains(t, err.Error(), "zz-2")
		assert.Contains(t, logs.String(), "not json")
	})
}

func TestStoreSearch(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	_, err := store.Search(ctx, testCollection, "go", 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	for _, text := range []string{"Go developer", "Java developer", "Chef"} {
		_, err := store.Save(ctx, testCollection, "", testPayload{Name: text}, text)
		require.NoError(t, err)
	}

	hits, err := store.Search(ctx, testCollection, "Chef", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "Chef", hits[0].Payload.Name)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestStoreSearchOrdering(t *testing.T) {
	ctx := context.Background()
	store, engine := newTestStore()
	require.NoError(t, store.EnsureCollection(ctx, testCollection))

	engine.SearchFunc = func(context.Context, string, []float32, int) ([]ScoredPoint, error) {
		return []ScoredPoint{
			{Point: Point{ID: "low", Data: `{"name":"low"}`}, Score: 0.2},
			{Point: Point{ID: "high", Data: `{"name":"high"}`}, Score: 0.9},
			{Point: Point{ID: "mid", Data: `{"name":"mid"}`}, Score: 0.5},
		}, nil
	}

	hits, err := store.Search(ctx, testCollection, "anything", 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "high", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "low", hits[2].ID)
}

func TestStoreSearchAggregatesBadRecords(t *testing.T) {
	ctx := context.Background()
	store, engine := newTestStore()
	logs := captureLogs(store)

	for _, text := range []string{"Go developer", "Chef"} {
		_, err := store.Save(ctx, testCollection, "", testPayload{Name: text}, text)
		require.NoError(t, err)
	}
	query, err := (&hashEmbedder{dim: testDim}).Embed(ctx, "Go developer")
	require.NoError(t, err)
	require.NoError(t, engine.MemoryEngine.Upsert(ctx, testCollection, []Point{
		{ID: "bad-1", Vector: query, Data: `{"name":`},
		{ID: "bad-2", Vector: query, Data: `{"name":""}`},
	}))

	_, err = store.Search(ctx, testCollection, "Go developer", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, result.ErrDeserialize)
	assert.Contains(t, err.Error(), "bad-1")
	assert.Contains(t, err.Error(), "bad-2")
	assert.Contains(t, logs.String(), "bad-1")
	assert.Contains(t, logs.String(), "bad-2")
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
}
