// Package llm provides LLM provider configuration options.
package llm

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*ProviderOptions)(nil)

// ProviderOptions 定义 Embedding 与 Chat 共用的供应商配置。
// API 密钥不在这里配置，由 credentials 选项与设置存储在调用时解析。
type ProviderOptions struct {
	// Provider 供应商名称。
	Provider string `json:"provider" mapstructure:"provider"`

	// BaseURL API 基础地址。
	BaseURL string `json:"base-url" mapstructure:"base-url"`

	// EmbedModel Embedding 模型。
	EmbedModel string `json:"embed-model" mapstructure:"embed-model"`

	// ChatModel 对话模型。
	ChatModel string `json:"chat-model" mapstructure:"chat-model"`

	// Timeout 请求超时时间。
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	// MaxRetries 5xx 与传输错误的重试次数，0 表示不重试。
	MaxRetries int `json:"max-retries" mapstructure:"max-retries"`

	// Organization 组织 ID（可选）。
	Organization string `json:"organization" mapstructure:"organization"`

	// DefaultMaxTokens 未指定生成长度时的 max_tokens。
	DefaultMaxTokens int `json:"default-max-tokens" mapstructure:"default-max-tokens"`
}

// NewProviderOptions 创建默认供应商配置。
func NewProviderOptions() *ProviderOptions {
	return &ProviderOptions{
		Provider:         "openai",
		BaseURL:          "https://api.openai.com/v1",
		EmbedModel:       "text-embedding-ada-002",
		ChatModel:        "gpt-4o-mini",
		Timeout:          60 * time.Second,
		DefaultMaxTokens: 1000,
	}
}

// ToConfigMap 转换为配置 map，用于供应商工厂。
func (o *ProviderOptions) ToConfigMap() map[string]any {
	return map[string]any{
		"base_url":           o.BaseURL,
		"embed_model":        o.EmbedModel,
		"chat_model":         o.ChatModel,
		"timeout":            o.Timeout,
		"max_retries":        o.MaxRetries,
		"organization":       o.Organization,
		"default_max_tokens": o.DefaultMaxTokens,
	}
}

// AddFlags adds flags for LLM provider options to the specified FlagSet.
func (o *ProviderOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "llm."
	fs.StringVar(&o.Provider, p+"provider", o.Provider, "LLM provider name.")
	fs.StringVar(&o.BaseURL, p+"base-url", o.BaseURL, "LLM API base URL.")
	fs.StringVar(&o.EmbedModel, p+"embed-model", o.EmbedModel, "Embedding model name.")
	fs.StringVar(&o.ChatModel, p+"chat-model", o.ChatModel, "Chat completion model name.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "LLM request timeout.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries for 5xx and transport errors (0 disables retries).")
	fs.StringVar(&o.Organization, p+"organization", o.Organization, "LLM organization ID (optional).")
	fs.IntVar(&o.DefaultMaxTokens, p+"default-max-tokens", o.DefaultMaxTokens, "max_tokens used when no budget is given.")
}

// Validate validates the LLM provider options.
func (o *ProviderOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Provider == "" {
		errs = append(errs, fmt.Errorf("llm.provider is required"))
	}
	if o.BaseURL == "" {
		errs = append(errs, fmt.Errorf("llm.base-url is required"))
	}
	if o.EmbedModel == "" || o.ChatModel == "" {
		errs = append(errs, fmt.Errorf("llm.embed-model and llm.chat-model are required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("llm.timeout must be positive"))
	}
	if o.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("llm.max-retries must not be negative"))
	}
	return errs
}

// Complete completes the LLM provider options with defaults.
func (o *ProviderOptions) Complete() error {
	if o.DefaultMaxTokens <= 0 {
		o.DefaultMaxTokens = 1000
	}
	return nil
}
