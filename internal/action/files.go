package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	pkgerrors "github.com/pkg/errors"

	"github.com/Zereker/cvstore/internal/domain"
	"github.com/Zereker/cvstore/pkg/blob"
	"github.com/Zereker/cvstore/pkg/extract"
	pkggenkit "github.com/Zereker/cvstore/pkg/genkit"
	"github.com/Zereker/cvstore/pkg/journal"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/mq"
	"github.com/Zereker/cvstore/pkg/redis"
	"github.com/Zereker/cvstore/pkg/result"
	"github.com/Zereker/cvstore/pkg/vector"
)

// Files 文档操作的统一入口：上传、删除、查询、检索、下载与崩溃恢复
type Files struct {
	logger     *slog.Logger
	cfg        Config
	vectors    VectorStore
	blobs      blob.Store
	extractor  Extractor
	summarizer Summarizer
	journal    journal.Journal
	queue      mq.MessageQueue
	cache      *lru.Cache[string, string]
}

// NewFiles 使用各 pkg 的单例创建 Files
func NewFiles(cfg Config) (*Files, error) {
	f, err := newFiles(cfg)
	if err != nil {
		return nil, err
	}

	f.vectors = vector.NewStore[domain.DocumentPayload](vector.NewEngine(), pkggenkit.DefaultEmbedder(), cfg.EmbeddingDim)
	f.blobs = blob.NewStore()
	f.extractor = extract.NewExtractor()

	if chat := pkggenkit.DefaultChat(); chat != nil {
		f.summarizer = chat
	}
	if client := redis.Client(); client != nil {
		f.journal = journal.NewRedis(client, redis.KeyPrefix())
	}
	if queue := mq.NewQueue(); queue != nil {
		f.queue = queue
	}

	return f, nil
}

func newFiles(cfg Config) (*Files, error) {
	if err := cfg.Validate(); err != nil {
		return nil, pkgerrors.WithMessage(err, "invalid files config")
	}

	cache, err := lru.New[string, string](cfg.searchCacheSize())
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create search cache")
	}

	return &Files{
		logger:  log.Logger("files"),
		cfg:     cfg,
		journal: journal.NewMemory(),
		cache:   cache,
	}, nil
}

// WithVectorStore 替换向量存储
func (f *Files) WithVectorStore(s VectorStore) *Files {
	f.vectors = s
	return f
}

// WithBlobStore 替换文件存储
func (f *Files) WithBlobStore(s blob.Store) *Files {
	f.blobs = s
	return f
}

// WithExtractor 替换文本提取器
func (f *Files) WithExtractor(e Extractor) *Files {
	f.extractor = e
	return f
}

// WithSummarizer 替换摘要模型，nil 表示不做摘要
func (f *Files) WithSummarizer(s Summarizer) *Files {
	f.summarizer = s
	return f
}

// WithJournal 替换批次日志
func (f *Files) WithJournal(j journal.Journal) *Files {
	f.journal = j
	return f
}

// WithQueue 替换事件队列，nil 表示不发布事件
func (f *Files) WithQueue(q mq.MessageQueue) *Files {
	f.queue = q
	return f
}

func (f *Files) ingestChain() *domain.IngestChain {
	chain := domain.NewIngestChain().Use(NewExtractAction(f.extractor))
	if f.summarizer != nil && f.cfg.SummarizeUploads {
		chain.Use(NewSummarizeAction(f.summarizer))
	}
	return chain.Use(
		NewVectorSaveAction(f.vectors, f.cfg.Collection),
		NewBlobSaveAction(f.blobs, f.cfg.Container, f.vectors, f.cfg.Collection),
	)
}

// Upload 批量上传，要么全部成功，要么已写入的文件全部回滚。
// 流程（每个文件顺序执行）:
// 1. 读取字节
// 2. 提取文本，可选摘要
// 3. 写入向量点，点 id 即 FileID
// 4. 写入原始文件，key 为 FileID
// ctx 取消时直接返回，不做补偿，批次留在 journal 中等待 Recover。
func (f *Files) Upload(ctx context.Context, req *domain.UploadRequest) ([]domain.SavedFile, error) {
	infos := make([]extract.FileInfo, len(req.Files))
	for i, file := range req.Files {
		infos[i] = extract.FileInfo{Name: file.Name, Size: file.Size}
	}
	if err := f.extractor.ValidateFiles(infos, f.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	lang := extract.ResolveLanguage(req.AcceptLanguage, f.cfg.DefaultLanguage)

	batchID, err := newID()
	if err != nil {
		return nil, err
	}
	if err := f.journal.Begin(ctx, batchID); err != nil {
		return nil, pkgerrors.WithMessage(err, "begin batch")
	}

	f.logger.Info("upload", "batch_id", batchID, "files", len(req.Files), "language", lang)

	chain := f.ingestChain()
	saved := make([]domain.SavedFile, 0, len(req.Files))
	committed := make([]string, 0, len(req.Files))

	for _, file := range req.Files {
		if err := ctx.Err(); err != nil {
			f.logger.Warn("upload abandoned", "batch_id", batchID, "committed", len(committed), "error", err)
			return nil, err
		}

		data, err := readFile(file, f.cfg.MaxFileSize)
		if err != nil {
			f.compensate(ctx, batchID, committed, committed)
			return nil, err
		}

		fileID, err := newID()
		if err != nil {
			f.compensate(ctx, batchID, committed, committed)
			return nil, err
		}

		// 先记录再写入，崩溃后 Recover 才能找到这个点
		if err := f.journal.Record(ctx, batchID, fileID); err != nil {
			f.compensate(ctx, batchID, committed, committed)
			return nil, pkgerrors.WithMessagef(err, "record file '%s'", file.Name)
		}

		ic := domain.NewIngestContext(ctx, batchID, fileID, file.Name, data, lang)
		chain.Run(ic)

		if err := ic.Error(); err != nil {
			if ctx.Err() != nil {
				f.logger.Warn("upload abandoned", "batch_id", batchID, "file_name", file.Name, "error", err)
				return nil, err
			}

			points := committed
			if ic.PointSaved {
				points = append(points, fileID)
			}
			f.logger.Error("upload failed", "batch_id", batchID, "file_name", file.Name, "error", err)
			f.compensate(ctx, batchID, points, committed)
			return nil, err
		}

		committed = append(committed, fileID)
		saved = append(saved, domain.SavedFile{ID: fileID, FileName: file.Name})
	}

	// 未标记完成的批次会被 Recover 回滚，这里直接回滚保证全有或全无
	if err := f.journal.Complete(ctx, batchID); err != nil {
		f.logger.Error("failed to complete batch", "batch_id", batchID, "error", err)
		f.compensate(ctx, batchID, committed, committed)
		return nil, pkgerrors.WithMessage(err, "complete batch")
	}

	now := time.Now().UTC()
	events := make([]domain.DocumentEvent, len(saved))
	for i, s := range saved {
		events[i] = domain.DocumentEvent{Type: domain.EventUploaded, FileID: s.ID, FileName: s.FileName, BatchID: batchID, At: now}
	}
	f.publish(ctx, events...)

	f.logger.Info("upload completed", "batch_id", batchID, "files", len(saved))
	return saved, nil
}

// compensate 回滚一个批次：一次批量删除向量点，再逐个删除原始文件。
// 文件删除失败只记录日志；向量删除成功后批次才标记完成，否则留给 Recover。
func (f *Files) compensate(ctx context.Context, batchID string, points, blobs []string) bool {
	ctx = context.WithoutCancel(ctx)

	if err := f.vectors.DeleteByIDs(ctx, f.cfg.Collection, points); err != nil {
		f.logger.Error("failed to delete points during compensation",
			"batch_id", batchID, "points", points, "error", err)
		return false
	}

	for _, id := range blobs {
		if err := f.blobs.Delete(ctx, f.cfg.Container, id); err != nil {
			if errors.Is(err, result.ErrNotFound) {
				f.logger.Debug("blob already absent", "batch_id", batchID, "file_id", id)
				continue
			}
			f.logger.Error("failed to delete blob during compensation",
				"batch_id", batchID, "file_id", id, "error", err)
		}
	}

	if err := f.journal.Complete(ctx, batchID); err != nil {
		f.logger.Warn("failed to complete batch", "batch_id", batchID, "error", err)
		return false
	}

	f.logger.Info("batch compensated", "batch_id", batchID, "points", len(points), "blobs", len(blobs))
	return true
}

// Recover 补偿 journal 中超过 recover_after 仍未完成的批次，返回补偿成功的批次数
func (f *Files) Recover(ctx context.Context) (int, error) {
	batches, err := f.journal.Pending(ctx)
	if err != nil {
		return 0, pkgerrors.WithMessage(err, "list pending batches")
	}

	cutoff := time.Now().Add(-f.cfg.recoverAfter())
	recovered := 0
	for _, b := range batches {
		if err := ctx.Err(); err != nil {
			return recovered, err
		}
		if b.StartedAt.After(cutoff) {
			continue
		}

		f.logger.Info("recovering batch", "batch_id", b.ID, "started_at", b.StartedAt, "files", len(b.FileIDs))
		if f.compensate(ctx, b.ID, b.FileIDs, b.FileIDs) {
			recovered++
		}
	}

	return recovered, nil
}

// Delete 删除文档：向量点和原始文件，任一步失败立即返回
func (f *Files) Delete(ctx context.Context, id string) error {
	payload, err := f.vectors.GetByID(ctx, f.cfg.Collection, id)
	if err != nil {
		return err
	}

	if err := f.vectors.DeleteByIDs(ctx, f.cfg.Collection, []string{id}); err != nil {
		return err
	}

	if err := f.blobs.Delete(ctx, f.cfg.Container, payload.FileID); err != nil {
		return err
	}

	f.logger.Info("deleted", "id", id, "file_name", payload.FileName)
	f.publish(ctx, domain.DocumentEvent{
		Type:     domain.EventDeleted,
		FileID:   payload.FileID,
		FileName: payload.FileName,
		At:       time.Now().UTC(),
	})
	return nil
}

// Get 按 id 查询文档元数据
func (f *Files) Get(ctx context.Context, id string) (domain.Document, error) {
	payload, err := f.vectors.GetByID(ctx, f.cfg.Collection, id)
	if err != nil {
		return domain.Document{}, err
	}
	return domain.Document{ID: id, DocumentPayload: payload}, nil
}

// List 分页列出文档，尚无文档时返回空页
func (f *Files) List(ctx context.Context, req domain.ListRequest) (domain.DocumentPage, error) {
	page, err := f.vectors.GetAll(ctx, f.cfg.Collection, req.Limit, req.Cursor)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return domain.DocumentPage{Documents: []domain.Document{}}, nil
		}
		return domain.DocumentPage{}, err
	}

	docs := make([]domain.Document, len(page.Records))
	for i, r := range page.Records {
		docs[i] = domain.Document{ID: r.ID, DocumentPayload: r.Payload}
	}
	return domain.DocumentPage{Documents: docs, NextCursor: page.NextCursor}, nil
}

// Search 按职位描述检索简历。配置了摘要模型时先把查询压缩为技能列表再向量化。
func (f *Files) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchHit, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, result.Failuref(result.ErrValidation, "query cannot be empty")
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > vector.MaxPageSize {
		limit = vector.MaxPageSize
	}

	text, err := f.searchText(ctx, query)
	if err != nil {
		return nil, result.NewFailure(fmt.Sprintf("failed to search for query '%s'", query), err)
	}

	hits, err := f.vectors.Search(ctx, f.cfg.Collection, text, limit)
	if err != nil {
		if errors.Is(err, vector.ErrCollectionNotFound) {
			return []domain.SearchHit{}, nil
		}
		return nil, result.NewFailure(fmt.Sprintf("failed to search for query '%s'", query), err)
	}

	out := make([]domain.SearchHit, len(hits))
	for i, h := range hits {
		out[i] = domain.SearchHit{
			Document: domain.Document{ID: h.ID, DocumentPayload: h.Payload},
			Score:    h.Score,
		}
	}

	f.logger.Debug("search", "query", query, "limit", limit, "hits", len(out))
	return out, nil
}

func (f *Files) searchText(ctx context.Context, query string) (string, error) {
	if f.summarizer == nil {
		return query, nil
	}

	if summary, ok := f.cache.Get(query); ok {
		return summary, nil
	}

	summary, err := f.summarizer.Summarize(ctx, SearchPrompt, query)
	if err != nil {
		return "", err
	}
	f.cache.Add(query, summary)
	return summary, nil
}

// Download 返回原始文件
func (f *Files) Download(ctx context.Context, id string) (domain.Download, error) {
	payload, err := f.vectors.GetByID(ctx, f.cfg.Collection, id)
	if err != nil {
		return domain.Download{}, err
	}

	rc, err := f.blobs.Get(ctx, f.cfg.Container, payload.FileID)
	if err != nil {
		return domain.Download{}, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return domain.Download{}, pkgerrors.Wrapf(err, "read file %s", payload.FileID)
	}

	contentType := payload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return domain.Download{FileName: payload.FileName, ContentType: contentType, Data: data}, nil
}

func newID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", pkgerrors.Wrap(err, "generate id")
	}
	return id.String(), nil
}

// readFile 读取文件字节，声明的大小不可信，按上限截断判断
func readFile(file domain.UploadFile, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = extract.DefaultMaxFileSize
	}
	if file.Reader == nil {
		return nil, result.Failuref(result.ErrValidation, "file '%s' has no content", file.Name)
	}

	data, err := io.ReadAll(io.LimitReader(file.Reader, maxSize+1))
	if err != nil {
		return nil, result.NewFailure(fmt.Sprintf("unable to read file '%s'", file.Name), err)
	}
	if int64(len(data)) > maxSize {
		return nil, result.Failuref(result.ErrValidation, "file '%s' exceeds maximum size of %d bytes", file.Name, maxSize)
	}
	return data, nil
}
