// Package openai 提供 OpenAI LLM 供应商实现，也适用于兼容 OpenAI API 的服务。
//
// 基本用法：
//
//	import _ "github.com/kart-io/knowledge-clone/pkg/llm/openai"
//
//	provider, err := llm.NewProvider("openai", map[string]any{
//	    "key_source": llm.StaticKey("sk-..."),
//	})
//	text, err := provider.Complete(ctx, messages, llm.CompletionOptions{MaxTokens: 300, Temperature: 0.7})
package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/utils/httpclient"
)

// ProviderName 是 OpenAI 供应商的名称标识符。
const ProviderName = "openai"

func init() {
	llm.RegisterProvider(ProviderName, NewProvider)
}

// Config OpenAI 供应商配置。
type Config struct {
	// BaseURL API 基础地址。
	BaseURL string
	// Keys 每次调用时解析 API 密钥。
	Keys llm.KeySource
	// EmbedModel 用于生成嵌入的模型。
	EmbedModel string
	// ChatModel 用于对话的模型。
	ChatModel string
	// Timeout 请求超时时间。
	Timeout time.Duration
	// MaxRetries 5xx 与传输错误的重试次数，默认不重试。
	MaxRetries int
	// Organization 组织 ID（可选）。
	Organization string
	// DefaultMaxTokens 调用方未指定 max_tokens 时使用。
	DefaultMaxTokens int
}

// DefaultConfig 返回默认配置。
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://api.openai.com/v1",
		EmbedModel:       "text-embedding-ada-002",
		ChatModel:        "gpt-4o-mini",
		Timeout:          60 * time.Second,
		DefaultMaxTokens: 1000,
	}
}

// Provider OpenAI 供应商实现。
type Provider struct {
	config *Config
	client *httpclient.Client
}

var _ llm.Provider = (*Provider)(nil)

// NewProvider 从配置 map 创建 OpenAI 供应商。
// 支持的键：base_url, api_key, key_source, embed_model, chat_model, timeout,
// max_retries, organization, default_max_tokens。
func NewProvider(configMap map[string]any) (llm.Provider, error) {
	cfg := DefaultConfig()

	if v, ok := configMap["base_url"].(string); ok && v != "" {
		cfg.BaseURL = v
	}
	if v, ok := configMap["api_key"].(string); ok && v != "" {
		cfg.Keys = llm.StaticKey(v)
	}
	if v, ok := configMap["key_source"].(llm.KeySource); ok && v != nil {
		cfg.Keys = v
	}
	if v, ok := configMap["embed_model"].(string); ok && v != "" {
		cfg.EmbedModel = v
	}
	if v, ok := configMap["chat_model"].(string); ok && v != "" {
		cfg.ChatModel = v
	}
	if v, ok := configMap["timeout"].(time.Duration); ok && v > 0 {
		cfg.Timeout = v
	}
	if v, ok := configMap["max_retries"].(int); ok && v > 0 {
		cfg.MaxRetries = v
	}
	if v, ok := configMap["organization"].(string); ok && v != "" {
		cfg.Organization = v
	}
	if v, ok := configMap["default_max_tokens"].(int); ok && v > 0 {
		cfg.DefaultMaxTokens = v
	}

	if cfg.Keys == nil {
		return nil, fmt.Errorf("openai: api_key 或 key_source 是必需的")
	}

	return NewProviderWithConfig(cfg), nil
}

// NewProviderWithConfig 使用结构化配置创建 OpenAI 供应商。
func NewProviderWithConfig(cfg *Config) *Provider {
	return &Provider{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout, cfg.MaxRetries),
	}
}

// Name 返回供应商名称。
func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) headers(ctx context.Context) (map[string]string, error) {
	key, err := p.config.Keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.ErrConfig.WithMessage("openai api key is empty")
	}

	h := map[string]string{"Authorization": "Bearer " + key}
	if p.config.Organization != "" {
		h["OpenAI-Organization"] = p.config.Organization
	}
	return h, nil
}

// embeddingRequest Input 为单个字符串或字符串数组。
type embeddingRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *Provider) embed(ctx context.Context, input any, n int) ([][]float32, error) {
	headers, err := p.headers(ctx)
	if err != nil {
		return nil, err
	}

	var resp embeddingResponse
	err = p.client.PostJSON(ctx, p.config.BaseURL+"/embeddings", headers,
		embeddingRequest{Model: p.config.EmbedModel, Input: input}, &resp)
	if err != nil {
		return nil, httpclient.Classify(err)
	}

	embeddings := make([][]float32, n)
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < n {
			embeddings[d.Index] = d.Embedding
		}
	}
	for i, e := range embeddings {
		if len(e) == 0 {
			return nil, errors.ErrUpstream.WithMessagef("embedding %d missing from response", i)
		}
	}
	return embeddings, nil
}

// Embed 为多个文本生成向量嵌入。
func (p *Provider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return p.embed(ctx, texts, len(texts))
}

// EmbedSingle 为单个文本生成向量嵌入，请求体为 {model, input: text}。
func (p *Provider) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := p.embed(ctx, text, 1)
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete 调用 /chat/completions。
func (p *Provider) Complete(ctx context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	headers, err := p.headers(ctx)
	if err != nil {
		return "", err
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.DefaultMaxTokens
	}

	req := chatRequest{
		Model:       p.config.ChatModel,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
	}

	var resp chatResponse
	if err := p.client.PostJSON(ctx, p.config.BaseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", httpclient.Classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.ErrUpstream.WithMessage("completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
