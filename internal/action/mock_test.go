package action

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/vector"
)

// MockVectorStore 用于测试的向量存储 mock
// 默认委托给真实 Store，设置 *Func 字段可注入失败
type MockVectorStore struct {
	VectorStore

	SaveFunc        func(ctx context.Context, collection, id string, payload domain.DocumentPayload, text string) (string, error)
	DeleteByIDsFunc func(ctx context.Context, collection string, ids []string) error

	SaveCalls        []string
	DeleteByIDsCalls [][]string
}

func NewMockVectorStore(inner VectorStore) *MockVectorStore {
	return &MockVectorStore{VectorStore: inner}
}

func (m *MockVectorStore) Save(ctx context.Context, collection, id string, payload domain.DocumentPayload, text string) (string, error) {
	m.SaveCalls = append(m.SaveCalls, payload.FileName)
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, collection, id, payload, text)
	}
	return m.VectorStore.Save(ctx, collection, id, payload, text)
}

func (m *MockVectorStore) DeleteByIDs(ctx context.Context, collection string, ids []string) error {
	m.DeleteByIDsCalls = append(m.DeleteByIDsCalls, append([]string(nil), ids...))
	if m.DeleteByIDsFunc != nil {
		return m.DeleteByIDsFunc(ctx, collection, ids)
	}
	return m.VectorStore.DeleteByIDs(ctx, collection, ids)
}

var _ VectorStore = (*MockVectorStore)(nil)

// MockSummarizer 记录调用并返回固定摘要
type MockSummarizer struct {
	mu sync.Mutex

	SummarizeFunc func(ctx context.Context, systemPrompt, text string) (string, error)

	SummarizeCalls []string
}

func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{
		SummarizeFunc: func(ctx context.Context, systemPrompt, text string) (string, error) {
			return strings.ToLower(strings.TrimSpace(text)), nil
		},
	}
}

func (m *MockSummarizer) Summarize(ctx context.Context, systemPrompt, text string) (string, error) {
	m.mu.Lock()
	m.SummarizeCalls = append(m.SummarizeCalls, text)
	m.mu.Unlock()
	return m.SummarizeFunc(ctx, systemPrompt, text)
}

// cancelOnSave 在第 n 次 Save 时取消 ctx，模拟客户端中途断开
func cancelOnSave(inner VectorStore, n int, cancel context.CancelFunc) *MockVectorStore {
	m := NewMockVectorStore(inner)
	calls := 0
	m.SaveFunc = func(ctx context.Context, collection, id string, payload domain.DocumentPayload, text string) (string, error) {
		calls++
		if calls == n {
			cancel()
			return "", ctx.Err()
		}
		return inner.Save(ctx, collection, id, payload, text)
	}
	return m
}

var errBoom = errors.New("boom")

func uploadFile(name, content string) domain.UploadFile {
	return domain.UploadFile{Name: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func pointIDs(page vector.Page[domain.DocumentPayload]) []string {
	ids := make([]string, len(page.Records))
	for i, r := range page.Records {
		ids[i] = r.ID
	}
	return ids
}

// captureLogs 把 Files 的日志写入内存，便于断言
func captureLogs(f *Files) *bytes.Buffer {
	var buf bytes.Buffer
	f.logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return &buf
}
