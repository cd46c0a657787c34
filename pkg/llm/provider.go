// Package llm 提供统一的 LLM 供应商抽象层。
// Embedding 与 Chat 可以来自不同供应商，凭据在每次调用时解析。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/knowledge-clone/pkg/errors"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，返回顺序与输入一致。
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedSingle 为单个文本生成向量嵌入。
	EmbedSingle(ctx context.Context, text string) ([]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// Complete 发送完整消息序列并返回模型回复文本（非流式）。
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// Name 返回供应商名称。
	Name() string
}

// Provider 同时支持 Embedding 和 Chat 的完整供应商。
type Provider interface {
	EmbeddingProvider
	ChatProvider
}

// CompletionOptions 单次补全调用的生成参数。
type CompletionOptions struct {
	// MaxTokens 最大生成 token 数，0 表示使用供应商默认值。
	MaxTokens int
	// Temperature 采样温度。
	Temperature float64
}

// DefaultTemperature 补全调用使用的固定温度。
const DefaultTemperature = 0.7

// Message 表示对话中的一条消息。
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role 定义消息角色。
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// KeySource 在调用时解析 API 密钥。
type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

// KeySourceFunc 将函数适配为 KeySource。
type KeySourceFunc func(ctx context.Context) (string, error)

// APIKey implements KeySource.
func (f KeySourceFunc) APIKey(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticKey 固定密钥。
type StaticKey string

// APIKey implements KeySource. An empty key is a configuration error.
func (k StaticKey) APIKey(context.Context) (string, error) {
	if k == "" {
		return "", errors.ErrConfig.WithMessage("api key is not configured")
	}
	return string(k), nil
}

// ProviderFactory 供应商工厂函数类型。
type ProviderFactory func(config map[string]any) (Provider, error)

var registry = struct {
	mu        sync.RWMutex
	providers map[string]ProviderFactory
}{providers: make(map[string]ProviderFactory)}

// RegisterProvider 注册完整供应商工厂。
func RegisterProvider(name string, factory ProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.providers[name] = factory
}

// NewProvider 根据名称创建供应商实例。
func NewProvider(name string, config map[string]any) (Provider, error) {
	registry.mu.RLock()
	factory, ok := registry.providers[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}
	return factory(config)
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	return NewProvider(name, config)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	return NewProvider(name, config)
}

// ListProviders 列出所有已注册的供应商名称（有序）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	names := make([]string, 0, len(registry.providers))
	for name := range registry.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
