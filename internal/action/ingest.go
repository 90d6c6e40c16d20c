package action

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/blob"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/result"
)

func saveFailure(fileName string, cause error) error {
	return result.NewFailure(fmt.Sprintf("unable to save file '%s'", fileName), cause)
}

// 确保实现 domain.IngestAction 接口
var (
	_ domain.IngestAction = (*ExtractAction)(nil)
	_ domain.IngestAction = (*SummarizeAction)(nil)
	_ domain.IngestAction = (*VectorSaveAction)(nil)
	_ domain.IngestAction = (*BlobSaveAction)(nil)
)

// ExtractAction 从原始字节提取文本
type ExtractAction struct {
	extractor Extractor
}

func NewExtractAction(extractor Extractor) *ExtractAction {
	return &ExtractAction{extractor: extractor}
}

func (a *ExtractAction) Name() string {
	return "extract"
}

func (a *ExtractAction) Handle(c *domain.IngestContext) {
	ext, err := a.extractor.Extract(c, c.FileName, c.Data, c.Language)
	if err != nil {
		c.SetError(err)
		return
	}

	c.Text = ext.Content
	c.ContentType = ext.ContentType
	c.Next()
}

// SummarizeAction 生成技能摘要，摘要同时作为向量化文本
type SummarizeAction struct {
	summarizer Summarizer
}

func NewSummarizeAction(summarizer Summarizer) *SummarizeAction {
	return &SummarizeAction{summarizer: summarizer}
}

func (a *SummarizeAction) Name() string {
	return "summarize"
}

func (a *SummarizeAction) Handle(c *domain.IngestContext) {
	summary, err := a.summarizer.Summarize(c, UploadPrompt, c.Text)
	if err != nil {
		c.SetError(saveFailure(c.FileName, fmt.Errorf("summarize: %w", err)))
		return
	}

	c.Summary = summary
	c.Next()
}

// VectorSaveAction 写入向量点，点 id 即 FileID
type VectorSaveAction struct {
	store      VectorStore
	collection string
}

func NewVectorSaveAction(store VectorStore, collection string) *VectorSaveAction {
	return &VectorSaveAction{store: store, collection: collection}
}

func (a *VectorSaveAction) Name() string {
	return "vector_save"
}

func (a *VectorSaveAction) Handle(c *domain.IngestContext) {
	payload := domain.DocumentPayload{
		FileName:        c.FileName,
		ContentLanguage: string(c.Language),
		ContentType:     c.ContentType,
		Summary:         c.Summary,
		FileID:          c.FileID,
		CreatedAt:       time.Now().UTC(),
	}

	text := c.Summary
	if text == "" {
		text = c.Text
	}

	if _, err := a.store.Save(c, a.collection, c.FileID, payload, text); err != nil {
		c.SetError(saveFailure(c.FileName, err))
		return
	}

	c.PointSaved = true
	c.Next()
}

// BlobSaveAction 保存原始文件；失败时删除本文件刚写入的向量点
type BlobSaveAction struct {
	logger     *slog.Logger
	blobs      blob.Store
	container  string
	vectors    VectorStore
	collection string
}

func NewBlobSaveAction(blobs blob.Store, container string, vectors VectorStore, collection string) *BlobSaveAction {
	return &BlobSaveAction{
		logger:     log.Logger("blob_save"),
		blobs:      blobs,
		container:  container,
		vectors:    vectors,
		collection: collection,
	}
}

func (a *BlobSaveAction) Name() string {
	return "blob_save"
}

func (a *BlobSaveAction) Handle(c *domain.IngestContext) {
	err := a.blobs.Save(c, a.container, c.FileID, bytes.NewReader(c.Data))
	if err != nil {
		// 取消时不补偿，由 Recover 处理
		if c.Err() == nil && c.PointSaved {
			if delErr := a.vectors.DeleteByIDs(context.WithoutCancel(c), a.collection, []string{c.FileID}); delErr != nil {
				a.logger.Error("failed to delete point after blob failure",
					"file_id", c.FileID, "file_name", c.FileName, "error", delErr)
			} else {
				c.PointSaved = false
			}
		}
		c.SetError(saveFailure(c.FileName, err))
		return
	}

	c.BlobSaved = true
	c.Next()
}
