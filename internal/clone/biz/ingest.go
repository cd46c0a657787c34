package biz

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/options/clone"
)

// UploadFailedMessage 上传失败时返回给用户的消息。
const UploadFailedMessage = "Failed to upload file. Please check your API keys and try again."

var whitespaceRun = regexp.MustCompile(`\s+`)

// DocumentID 由文件名推导文档 ID：转小写，空白序列替换为 "-"。
func DocumentID(filename string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(filename), "-")
}

// IngestResult 导入结果。
type IngestResult struct {
	ID               string   `json:"id"`
	Source           string   `json:"source"`
	Characters       int      `json:"characters"`
	KnowledgeSources []string `json:"knowledgeSources"`
}

// Ingester 提取、嵌入并写入文档。
type Ingester struct {
	embedder llm.EmbeddingProvider
	vectors  store.VectorStore
	config   *ConfigProvider
	opts     *clone.UploadOptions
	now      func() time.Time
}

// NewIngester 创建导入器。
func NewIngester(embedder llm.EmbeddingProvider, vectors store.VectorStore, config *ConfigProvider, opts *clone.UploadOptions) *Ingester {
	if opts == nil {
		opts = clone.NewOptions().Upload
	}
	return &Ingester{
		embedder: embedder,
		vectors:  vectors,
		config:   config,
		opts:     opts,
		now:      time.Now,
	}
}

// Supported 判断文件扩展名是否可导入。
func (i *Ingester) Supported(filename string) bool {
	return slices.Contains(i.opts.Extensions, strings.ToLower(filepath.Ext(filename)))
}

// MaxBytes 返回允许的最大文件大小。
func (i *Ingester) MaxBytes() int64 {
	return i.opts.MaxBytes
}

// Ingest 导入一个文件。校验失败返回对应的请求错误；
// 嵌入或写入失败返回分类后的错误，消息为 UploadFailedMessage。
func (i *Ingester) Ingest(ctx context.Context, filename string, data []byte) (*IngestResult, error) {
	filename = filepath.Base(filename)
	if !i.Supported(filename) {
		return nil, errors.ErrUnsupportedDocument.WithMessagef("unsupported document type %q", filepath.Ext(filename))
	}
	if int64(len(data)) > i.opts.MaxBytes {
		return nil, errors.ErrDocumentTooLarge
	}

	text := ExtractText(strings.ToLower(filepath.Ext(filename)), data, i.opts.MaxInflatedBytes)
	if text == "" {
		return nil, errors.ErrEmptyDocument
	}

	doc := store.Document{
		ID:      DocumentID(filename),
		Content: text,
		Metadata: store.Metadata{
			Source:    filename,
			Timestamp: i.now().UTC().Format(time.RFC3339),
			Title:     filename,
			Content:   truncateRunes(text, i.opts.SnippetChars),
		},
	}

	values, err := i.embedder.EmbedSingle(ctx, truncateRunes(text, i.opts.MaxEmbedChars))
	if err != nil {
		return nil, uploadFailed(filename, err)
	}
	if err := i.vectors.Upsert(ctx, doc, values); err != nil {
		return nil, uploadFailed(filename, err)
	}

	sources, err := i.config.AddKnowledgeSource(ctx, filename)
	if err != nil {
		return nil, uploadFailed(filename, err)
	}

	logger.Infow("Document ingested",
		"id", doc.ID,
		"source", filename,
		"characters", len([]rune(text)),
		"store", i.vectors.Name(),
	)
	return &IngestResult{
		ID:               doc.ID,
		Source:           filename,
		Characters:       len([]rune(text)),
		KnowledgeSources: sources,
	}, nil
}

// IngestFile 从磁盘读取并导入文件。
func (i *Ingester) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.ErrBadRequest.WithCause(err)
	}
	if info.Size() > i.opts.MaxBytes {
		return nil, errors.ErrDocumentTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.ErrBadRequest.WithCause(err)
	}
	return i.Ingest(ctx, filepath.Base(path), data)
}

func uploadFailed(filename string, err error) error {
	logger.Errorw("Document upload failed", "source", filename, "error", err.Error())
	return errors.FromError(err).WithMessage(UploadFailedMessage)
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
