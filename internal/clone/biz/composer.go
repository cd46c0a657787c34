package biz

import (
	"context"
	"math"

	"github.com/kart-io/logger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/infra/pool"
	"github.com/kart-io/knowledge-clone/pkg/infra/tracing"
	"github.com/kart-io/knowledge-clone/pkg/llm"
)

// 系统提示词片段。
const (
	BaseInstruction = "You are a helpful assistant with access to the user's knowledge database."
	vectorPreamble  = " Here is relevant information from the user's knowledge database:\n\n"
	webPreamble     = "\n\nAdditional information from web search:\n\n"
)

// 检索降级时返回给用户的提示。
const (
	WarnVectorRetrieval = "Knowledge base retrieval failed, answering without it: "
	WarnWebRetrieval    = "Web retrieval failed, answering without it: "
)

// ComposerConfig 组装器配置。
type ComposerConfig struct {
	// TopK 向量检索返回条数。
	TopK int
	// TokenRatio max_tokens = round(ResultLength * TokenRatio)。
	TokenRatio float64
	// HistoryWindow 携带的历史消息条数。
	HistoryWindow int
	// Parallel 是否并发执行向量检索与网页检索。
	Parallel bool
}

// DefaultComposerConfig 返回默认配置。
func DefaultComposerConfig() *ComposerConfig {
	return &ComposerConfig{
		TopK:          3,
		TokenRatio:    1.5,
		HistoryWindow: 5,
		Parallel:      true,
	}
}

// Composition 一次组装与补全的结果。
type Composition struct {
	Content   string
	MaxTokens int
	Warnings  []string
}

// Composer 组装检索上下文与提示词并调用补全模型。
type Composer struct {
	embedder llm.EmbeddingProvider
	vectors  store.VectorStore
	web      Retriever
	chat     llm.ChatProvider
	pool     *pool.Pool
	config   *ComposerConfig
}

// NewComposer 创建组装器。p 为 nil 时检索按顺序执行。
func NewComposer(
	embedder llm.EmbeddingProvider,
	vectors store.VectorStore,
	web Retriever,
	chat llm.ChatProvider,
	p *pool.Pool,
	config *ComposerConfig,
) *Composer {
	if config == nil {
		config = DefaultComposerConfig()
	}
	return &Composer{
		embedder: embedder,
		vectors:  vectors,
		web:      web,
		chat:     chat,
		pool:     p,
		config:   config,
	}
}

// MaxTokens 按目标长度计算 max_tokens。
func (c *Composer) MaxTokens(resultLength int) int {
	return int(math.Round(float64(resultLength) * c.config.TokenRatio))
}

// Compose 执行一个回合的检索、组装与补全。
// 检索失败只产生警告；补全失败作为错误返回。
func (c *Composer) Compose(ctx context.Context, prompt string, history []llm.Message, cfg RetrievalConfig) (*Composition, error) {
	ctx, span := tracing.StartSpan(ctx, "compose",
		attribute.Int("vector_weight", cfg.VectorWeight),
		attribute.Int("result_length", cfg.ResultLength),
	)
	defer span.End()

	var (
		vectorContext, webContext string
		vectorWarn, webWarn       string
	)

	var tasks []func()
	if cfg.VectorWeight > 0 {
		tasks = append(tasks, func() {
			vectorContext, vectorWarn = c.retrieveVector(ctx, prompt)
		})
	}
	if cfg.WebWeight() > 0 && c.web != nil {
		tasks = append(tasks, func() {
			webContext, webWarn = c.retrieveWeb(ctx, prompt)
		})
	}

	if c.config.Parallel {
		c.pool.RunAll(tasks...)
	} else {
		for _, task := range tasks {
			task()
		}
	}

	result := &Composition{MaxTokens: c.MaxTokens(cfg.ResultLength)}
	for _, w := range []string{vectorWarn, webWarn} {
		if w != "" {
			result.Warnings = append(result.Warnings, w)
		}
	}

	messages := c.buildMessages(prompt, history, vectorContext, webContext)

	cctx, cspan := tracing.StartSpan(ctx, "complete", attribute.Int("max_tokens", result.MaxTokens))
	content, err := c.chat.Complete(cctx, messages, llm.CompletionOptions{
		MaxTokens:   result.MaxTokens,
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		tracing.RecordError(cctx, err)
		cspan.End()
		return result, err
	}
	cspan.End()

	result.Content = content
	return result, nil
}

func (c *Composer) retrieveVector(ctx context.Context, prompt string) (string, string) {
	ctx, span := tracing.StartSpan(ctx, "retrieve.vector", attribute.Int("top_k", c.config.TopK))
	defer span.End()

	fail := func(err error) (string, string) {
		tracing.RecordError(ctx, err)
		logger.Warnw("Vector retrieval failed, continuing without knowledge context", "error", err.Error())
		return "", WarnVectorRetrieval + errors.FromError(err).Message("en")
	}

	values, err := c.embedder.EmbedSingle(ctx, prompt)
	if err != nil {
		return fail(err)
	}
	matches, err := c.vectors.Query(ctx, values, c.config.TopK)
	if err != nil {
		return fail(err)
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return store.FormatMatches(matches), ""
}

func (c *Composer) retrieveWeb(ctx context.Context, prompt string) (string, string) {
	ctx, span := tracing.StartSpan(ctx, "retrieve.web")
	defer span.End()

	text, err := c.web.Search(ctx, prompt)
	if err != nil {
		tracing.RecordError(ctx, err)
		logger.Warnw("Web retrieval failed, continuing without web context", "error", err.Error())
		return "", WarnWebRetrieval + errors.FromError(err).Message("en")
	}
	return text, ""
}

func (c *Composer) buildMessages(prompt string, history []llm.Message, vectorContext, webContext string) []llm.Message {
	system := BaseInstruction
	if vectorContext != "" {
		system += vectorPreamble + vectorContext
	}
	if webContext != "" {
		system += webPreamble + webContext
	}

	recent := recentHistory(history, c.config.HistoryWindow)
	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, recent...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return messages
}

// recentHistory 返回最后 n 条用户或助手消息。
func recentHistory(history []llm.Message, n int) []llm.Message {
	filtered := make([]llm.Message, 0, len(history))
	for _, m := range history {
		if m.Role == llm.RoleUser || m.Role == llm.RoleAssistant {
			filtered = append(filtered, m)
		}
	}
	if n >= 0 && len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	return filtered
}
