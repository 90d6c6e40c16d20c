package vector

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
)

// OpenSearchConfig holds OpenSearch configuration
type OpenSearchConfig struct {
	Addresses   []string `toml:"addresses"`
	Username    string   `toml:"username"`
	Password    string   `toml:"password"`
	IndexPrefix string   `toml:"index_prefix"`
	InsecureSSL bool     `toml:"insecure_ssl"`
}

// Validate checks OpenSearch configuration
func (c *OpenSearchConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("addresses is required")
	}
	return nil
}

// osDocument is the stored shape of a point.
type osDocument struct {
	ID        string    `json:"id"`
	Data      string    `json:"data"`
	Embedding []float32 `json:"embedding"`
}

// OpenSearchEngine implements Engine on OpenSearch k-NN indices, one index per collection.
type OpenSearchEngine struct {
	client      *opensearchapi.Client
	indexPrefix string
}

// NewOpenSearchEngine creates a new OpenSearch engine
func NewOpenSearchEngine(cfg OpenSearchConfig) (*OpenSearchEngine, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	clientCfg := opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: cfg.Addresses,
			Username:  cfg.Username,
			Password:  cfg.Password,
			Transport: transport,
		},
	}

	client, err := opensearchapi.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &OpenSearchEngine{
		client:      client,
		indexPrefix: cfg.IndexPrefix,
	}, nil
}

func (s *OpenSearchEngine) index(collection string) string {
	return strings.ToLower(s.indexPrefix + collection)
}

func (s *OpenSearchEngine) Collection(ctx context.Context, name string) (CollectionInfo, bool, error) {
	index := s.index(name)

	resp, err := s.client.Indices.Exists(ctx, opensearchapi.IndicesExistsReq{Indices: []string{index}})
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return CollectionInfo{}, false, nil
	}
	if err != nil {
		return CollectionInfo{}, false, fmt.Errorf("failed to check index %s: %w", index, err)
	}

	mapping, err := s.client.Indices.Mapping.Get(ctx, &opensearchapi.MappingGetReq{Indices: []string{index}})
	if err != nil {
		return CollectionInfo{}, false, fmt.Errorf("failed to get mapping of %s: %w", index, err)
	}

	dim := 0
	for _, m := range mapping.Indices {
		var parsed struct {
			Properties struct {
				Embedding struct {
					Dimension int `json:"dimension"`
				} `json:"embedding"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(m.Mappings, &parsed); err != nil {
			return CollectionInfo{}, false, fmt.Errorf("failed to parse mapping of %s: %w", index, err)
		}
		dim = parsed.Properties.Embedding.Dimension
	}

	return CollectionInfo{Name: name, Dimension: dim}, true, nil
}

func (s *OpenSearchEngine) CreateCollection(ctx context.Context, name string, dimension int) error {
	index := s.index(name)

	body := map[string]any{
		"settings": map[string]any{
			"index": map[string]any{"knn": true},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id":   map[string]any{"type": "keyword"},
				"data": map[string]any{"type": "text", "index": false},
				"embedding": map[string]any{
					"type":      "knn_vector",
					"dimension": dimension,
					"method": map[string]any{
						"name":       "hnsw",
						"space_type": "cosinesimil",
						"engine":     "lucene",
					},
				},
			},
		},
	}

	reqBody, _ := json.Marshal(body)
	_, err := s.client.Indices.Create(ctx, opensearchapi.IndicesCreateReq{
		Index: index,
		Body:  bytes.NewReader(reqBody),
	})
	if err != nil {
		// 并发创建时忽略已存在
		if strings.Contains(err.Error(), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("failed to create index %s: %w", index, err)
	}

	return nil
}

func (s *OpenSearchEngine) Upsert(ctx context.Context, collection string, points []Point) error {
	index := s.index(collection)

	for _, p := range points {
		docBody, err := json.Marshal(osDocument{ID: p.ID, Data: p.Data, Embedding: p.Vector})
		if err != nil {
			return fmt.Errorf("failed to marshal point %s: %w", p.ID, err)
		}

		_, err = s.client.Index(ctx, opensearchapi.IndexReq{
			Index:      index,
			DocumentID: p.ID,
			Body:       bytes.NewReader(docBody),
			Params:     opensearchapi.IndexParams{Refresh: "true"},
		})
		if err != nil {
			return fmt.Errorf("failed to index point %s: %w", p.ID, err)
		}
	}

	return nil
}

func (s *OpenSearchEngine) Retrieve(ctx context.Context, collection, id string) (Point, bool, error) {
	resp, err := s.client.Document.Get(ctx, opensearchapi.DocumentGetReq{
		Index:      s.index(collection),
		DocumentID: id,
	})
	if isNotFound(resp, err) {
		return Point{}, false, nil
	}
	if err != nil {
		return Point{}, false, fmt.Errorf("failed to get point %s: %w", id, err)
	}
	if !resp.Found {
		return Point{}, false, nil
	}

	doc, err := decodeSource(resp.Source)
	if err != nil {
		return Point{}, false, err
	}
	if doc.ID == "" {
		doc.ID = resp.ID
	}

	return Point{ID: doc.ID, Vector: doc.Embedding, Data: doc.Data}, true, nil
}

func (s *OpenSearchEngine) Delete(ctx context.Context, collection, id string) error {
	resp, err := s.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
		Index:      s.index(collection),
		DocumentID: id,
		Params:     opensearchapi.DocumentDeleteParams{Refresh: "true"},
	})
	if isNotFound(resp, err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete point %s: %w", id, err)
	}
	return nil
}

func (s *OpenSearchEngine) Scroll(ctx context.Context, collection string, limit int, after string) ([]Point, error) {
	query := map[string]any{
		"size":  limit,
		"sort":  []map[string]any{{"id": map[string]any{"order": "asc"}}},
		"query": map[string]any{"match_all": map[string]any{}},
	}
	if after != "" {
		query["search_after"] = []string{after}
	}

	hits, err := s.search(ctx, collection, query)
	if err != nil {
		return nil, err
	}

	points := make([]Point, len(hits))
	for i, h := range hits {
		points[i] = h.Point
	}
	return points, nil
}

func (s *OpenSearchEngine) Search(ctx context.Context, collection string, vector []float32, limit int) ([]ScoredPoint, error) {
	query := map[string]any{
		"size": limit,
		"query": map[string]any{
			"knn": map[string]any{"embedding": map[string]any{"vector": vector, "k": limit}},
		},
	}
	return s.search(ctx, collection, query)
}

func (s *OpenSearchEngine) search(ctx context.Context, collection string, query map[string]any) ([]ScoredPoint, error) {
	queryBody, _ := json.Marshal(query)
	searchResp, err := s.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{s.index(collection)},
		Body:    bytes.NewReader(queryBody),
	})
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]ScoredPoint, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		doc, err := decodeSource(hit.Source)
		if err != nil {
			return nil, err
		}
		if doc.ID == "" {
			doc.ID = hit.ID
		}

		results = append(results, ScoredPoint{
			Point: Point{ID: doc.ID, Vector: doc.Embedding, Data: doc.Data},
			Score: float64(hit.Score),
		})
	}

	return results, nil
}

// Close closes the OpenSearch connection
func (s *OpenSearchEngine) Close() error {
	return nil
}

type inspectable interface {
	Inspect() opensearchapi.Inspect
}

func isNotFound(resp inspectable, err error) bool {
	if resp == nil || reflect.ValueOf(resp).IsNil() {
		return false
	}
	raw := resp.Inspect().Response
	return raw != nil && raw.StatusCode == http.StatusNotFound
}

// decodeSource 将 _source 解码为 osDocument
func decodeSource(source json.RawMessage) (osDocument, error) {
	var raw map[string]any
	if err := json.Unmarshal(source, &raw); err != nil {
		return osDocument{}, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	var doc osDocument
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       float32SliceHook,
	})
	if err != nil {
		return osDocument{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return osDocument{}, fmt.Errorf("failed to decode document: %w", err)
	}

	return doc, nil
}

// float32SliceHook 处理 []any/[]float32 -> []float32 转换
func float32SliceHook(_, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf([]float32{}) {
		return data, nil
	}

	if f32Slice, ok := data.([]float32); ok {
		return f32Slice, nil
	}

	slice, ok := data.([]any)
	if !ok {
		return data, nil
	}

	result := make([]float32, len(slice))
	for i, v := range slice {
		if f, ok := v.(float64); ok {
			result[i] = float32(f)
		}
	}

	return result, nil
}
