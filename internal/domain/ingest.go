package domain

import (
	"context"

	"github.com/Zereker/cvstore/pkg/extract"
)

// ============================================================================
// Action Interfaces - 处理链
// ============================================================================

// IngestAction is one step of the per-file ingestion chain.
type IngestAction interface {
	Name() string
	Handle(*IngestContext)
}

// ============================================================================
// IngestContext - 单个文件的写入流程
// ============================================================================

// IngestContext carries one file through the chain.
type IngestContext struct {
	context.Context

	// 输入
	BatchID  string
	FileID   string
	FileName string
	Data     []byte
	Language extract.Language

	// 各步骤输出
	Text        string
	ContentType string
	Summary     string
	PointSaved  bool
	BlobSaved   bool

	// 链式控制
	actions []IngestAction
	index   int
	aborted bool
	err     error
}

// NewIngestContext 创建新的 IngestContext
func NewIngestContext(ctx context.Context, batchID, fileID, fileName string, data []byte, lang extract.Language) *IngestContext {
	return &IngestContext{
		Context:  ctx,
		BatchID:  batchID,
		FileID:   fileID,
		FileName: fileName,
		Data:     data,
		Language: lang,
	}
}

// Next 调用链中的下一个 action
func (c *IngestContext) Next() {
	c.index++
	for c.index < len(c.actions) {
		if c.aborted {
			return
		}

		c.actions[c.index].Handle(c)
		c.index++
	}
}

// Abort 终止链式执行
func (c *IngestContext) Abort() {
	c.aborted = true
}

// IsAborted 返回链是否被终止
func (c *IngestContext) IsAborted() bool {
	return c.aborted
}

// SetError 设置错误并终止链
func (c *IngestContext) SetError(err error) {
	c.err = err
	c.aborted = true
}

// Error 返回错误
func (c *IngestContext) Error() error {
	return c.err
}

// ============================================================================
// Action Chain
// ============================================================================

// IngestChain 管理 IngestAction 处理器链
type IngestChain struct {
	actions []IngestAction
}

// NewIngestChain 创建新的处理链
func NewIngestChain() *IngestChain {
	return &IngestChain{
		actions: []IngestAction{},
	}
}

// Use 添加 action 到链
func (chain *IngestChain) Use(actions ...IngestAction) *IngestChain {
	chain.actions = append(chain.actions, actions...)
	return chain
}

// Run 顺序执行链中的所有 action
func (chain *IngestChain) Run(c *IngestContext) {
	c.actions = chain.actions
	c.index = -1
	c.Next()
}
