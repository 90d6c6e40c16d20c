package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Zereker/cvstore/pkg/extract"
)

// mockIngestAction 用于测试的 IngestAction 实现
type mockIngestAction struct {
	name    string
	handler func(c *IngestContext)
}

func (m *mockIngestAction) Name() string {
	return m.name
}

func (m *mockIngestAction) Handle(c *IngestContext) {
	if m.handler != nil {
		m.handler(c)
	}
}

func newMockIngestAction(name string, handler func(c *IngestContext)) *mockIngestAction {
	return &mockIngestAction{name: name, handler: handler}
}

func newTestIngestContext() *IngestContext {
	return NewIngestContext(context.Background(), "batch-1", "file-1", "cv.txt", []byte("Go"), extract.English)
}

func TestIngestChain(t *testing.T) {
	t.Run("runs actions in order", func(t *testing.T) {
		var order []string
		chain := NewIngestChain().Use(
			newMockIngestAction("a", func(c *IngestContext) { order = append(order, "a") }),
			newMockIngestAction("b", func(c *IngestContext) { order = append(order, "b") }),
			newMockIngestAction("c", func(c *IngestContext) { order = append(order, "c") }),
		)

		chain.Run(newTestIngestContext())
		assert.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("error stops the chain", func(t *testing.T) {
		var order []string
		boom := errors.New("extraction failed")
		chain := NewIngestChain().Use(
			newMockIngestAction("a", func(c *IngestContext) {
				order = append(order, "a")
				c.SetError(boom)
			}),
			newMockIngestAction("b", func(c *IngestContext) { order = append(order, "b") }),
		)

		c := newTestIngestContext()
		chain.Run(c)
		assert.Equal(t, []string{"a"}, order)
		assert.True(t, c.IsAborted())
		assert.ErrorIs(t, c.Error(), boom)
	})

	t.Run("next inside an action runs the rest first", func(t *testing.T) {
		var order []string
		chain := NewIngestChain().Use(
			newMockIngestAction("outer", func(c *IngestContext) {
				order = append(order, "outer-before")
				c.Next()
				order = append(order, "outer-after")
			}),
			newMockIngestAction("inner", func(c *IngestContext) { order = append(order, "inner") }),
		)

		chain.Run(newTestIngestContext())
		assert.Equal(t, []string{"outer-before", "inner", "outer-after"}, order)
	})

	t.Run("abort without error", func(t *testing.T) {
		called := false
		chain := NewIngestChain().Use(
			newMockIngestAction("a", func(c *IngestContext) { c.Abort() }),
			newMockIngestAction("b", func(c *IngestContext) { called = true }),
		)

		c := newTestIngestContext()
		chain.Run(c)
		assert.False(t, called)
		assert.NoError(t, c.Error())
	})
}

func TestDocumentPayloadValidate(t *testing.T) {
	assert.NoError(t, DocumentPayload{FileID: "f", FileName: "cv.pdf"}.Validate())
	assert.Error(t, DocumentPayload{FileName: "cv.pdf"}.Validate())
	assert.Error(t, DocumentPayload{FileID: "f"}.Validate())
}
