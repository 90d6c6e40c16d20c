package action

import (
	"context"
	"fmt"
	"time"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/extract"
	"github.com/Zereker/cvstore/pkg/vector"
)

// 摘要提示词
const (
	UploadPrompt = `Extract a concise list of key skills from the following CV.
Only return the skill names as a comma-separated list.
Do not include any explanations, job titles, or descriptions.`

	SearchPrompt = `Extract a concise list of key skills required for the following job description.
Only return the skill names as a comma-separated list.
Do not include any explanations, job titles, or descriptions.`
)

const (
	DefaultSearchLimit     = 3
	DefaultSearchCacheSize = 256
	DefaultRecoverAfter    = 10 * time.Minute
)

// VectorStore 文档向量存储
type VectorStore interface {
	Save(ctx context.Context, collection, id string, payload domain.DocumentPayload, text string) (string, error)
	DeleteByIDs(ctx context.Context, collection string, ids []string) error
	GetByID(ctx context.Context, collection, id string) (domain.DocumentPayload, error)
	GetAll(ctx context.Context, collection string, limit int, cursor string) (vector.Page[domain.DocumentPayload], error)
	Search(ctx context.Context, collection, query string, limit int) ([]vector.Hit[domain.DocumentPayload], error)
}

// 确保 vector.Store 满足 VectorStore
var _ VectorStore = (*vector.Store[domain.DocumentPayload])(nil)

// Extractor 文本提取
type Extractor interface {
	ValidateFiles(files []extract.FileInfo, maxSize int64) error
	Extract(ctx context.Context, filename string, data []byte, lang extract.Language) (extract.Extraction, error)
}

// Summarizer 用系统提示词对文本做摘要
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, text string) (string, error)
}

// Config 文件服务配置
type Config struct {
	SummarizeUploads bool   `toml:"summarize_uploads"`
	SearchCacheSize  int    `toml:"search_cache_size"`
	RecoverAfter     string `toml:"recover_after"` // 超过该时长未完成的批次才会被补偿

	// 以下由其他配置段填充
	Collection      string           `toml:"-"`
	Container       string           `toml:"-"`
	EmbeddingDim    int              `toml:"-"`
	EventsTopic     string           `toml:"-"`
	MaxFileSize     int64            `toml:"-"`
	DefaultLanguage extract.Language `toml:"-"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.SearchCacheSize < 0 {
		return fmt.Errorf("search_cache_size must not be negative")
	}
	if c.RecoverAfter != "" {
		if _, err := time.ParseDuration(c.RecoverAfter); err != nil {
			return fmt.Errorf("recover_after is invalid: %w", err)
		}
	}
	return nil
}

func (c *Config) recoverAfter() time.Duration {
	d, err := time.ParseDuration(c.RecoverAfter)
	if err != nil || c.RecoverAfter == "" {
		return DefaultRecoverAfter
	}
	return d
}

func (c *Config) searchCacheSize() int {
	if c.SearchCacheSize == 0 {
		return DefaultSearchCacheSize
	}
	return c.SearchCacheSize
}
