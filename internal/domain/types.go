package domain

import (
	"fmt"
	"io"
	"time"
)

// ============================================================================
// 文档事件类型
// ============================================================================

const (
	EventUploaded = "uploaded"
	EventDeleted  = "deleted"
)

// ============================================================================
// DocumentPayload - 向量点上保存的文档元数据
// ============================================================================

// DocumentPayload is stored with each vector point. FileID is both the point id and
// the blob key.
type DocumentPayload struct {
	FileName        string    `json:"file_name"`
	ContentLanguage string    `json:"content_language"`
	ContentType     string    `json:"content_type"`
	Summary         string    `json:"summary"`
	FileID          string    `json:"file_id"`
	CreatedAt       time.Time `json:"created_at"`
}

// Validate rejects payloads that cannot be joined back to their blob.
func (p DocumentPayload) Validate() error {
	if p.FileID == "" {
		return fmt.Errorf("file_id is required")
	}
	if p.FileName == "" {
		return fmt.Errorf("file_name is required")
	}
	return nil
}

// Document 带 id 的文档元数据
type Document struct {
	ID string `json:"id"`
	DocumentPayload
}

// SearchHit 检索结果
type SearchHit struct {
	Document
	Score float64 `json:"score"`
}

// DocumentPage 分页结果，NextCursor 为空表示没有更多
type DocumentPage struct {
	Documents  []Document `json:"documents"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// SavedFile 上传成功的文件
type SavedFile struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
}

// Download 原始文件
type Download struct {
	FileName    string
	ContentType string
	Data        []byte
}

// DocumentEvent 文档变更事件
type DocumentEvent struct {
	Type     string    `json:"type"`
	FileID   string    `json:"file_id"`
	FileName string    `json:"file_name"`
	BatchID  string    `json:"batch_id,omitempty"`
	At       time.Time `json:"at"`
}

// ============================================================================
// API Request
// ============================================================================

// UploadFile 待上传的文件
type UploadFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// UploadRequest 上传请求
type UploadRequest struct {
	Files          []UploadFile
	AcceptLanguage string // 原始 Accept-Language 头
}

// SearchRequest 检索请求
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// ListRequest 分页请求
type ListRequest struct {
	Limit  int    `json:"limit,omitempty"`
	Cursor string `json:"cursor,omitempty"`
}
