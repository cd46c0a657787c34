// Package biz 实现知识克隆服务的对话回合流水线与文档导入。
package biz

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/kart-io/logger"

	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/options/credentials"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	"github.com/kart-io/knowledge-clone/pkg/utils/json"
)

// RetrievalConfig 单个回合使用的检索参数。
type RetrievalConfig struct {
	// VectorWeight 向量检索权重，0..100。
	VectorWeight int `json:"vectorPercentage"`
	// ResultLength 目标回复长度，用于计算 max_tokens。
	ResultLength int `json:"resultLength"`
	// SummarizeThreshold 超过该词数的回复将被折叠。
	SummarizeThreshold int `json:"summarizeThreshold"`
}

// WebWeight 返回网页检索权重，由向量权重推导。
func (c RetrievalConfig) WebWeight() int {
	return 100 - c.VectorWeight
}

// CredentialProvider 标识一类外部凭据。
type CredentialProvider string

const (
	// ProviderEmbedding Embedding 与 Chat 服务的密钥。
	ProviderEmbedding CredentialProvider = "embedding"
	// ProviderVectorStore 向量库的密钥。
	ProviderVectorStore CredentialProvider = "vector-store"
)

func (p CredentialProvider) settingsKey() string {
	if p == ProviderVectorStore {
		return store.KeyPineconeAPIKey
	}
	return store.KeyOpenAIAPIKey
}

// Snapshot 回合开始时读取的配置与凭据，回合内不再变化。
type Snapshot struct {
	Retrieval   RetrievalConfig
	Credentials map[CredentialProvider]string
}

// CredentialStatus 描述凭据来源，用于脱敏展示。
type CredentialStatus struct {
	Provider   CredentialProvider `json:"provider"`
	Overridden bool               `json:"overridden"`
	Configured bool               `json:"configured"`
	Masked     string             `json:"masked,omitempty"`
}

// ConfigProvider 从设置存储读取配置，缺失或非法的值回落到默认值。
type ConfigProvider struct {
	store    store.SettingsStore
	defaults *settings.Options
	creds    *credentials.Options

	// sourcesMu 串行化知识源列表的读改写。
	sourcesMu sync.Mutex
}

// NewConfigProvider 创建配置提供者。
func NewConfigProvider(s store.SettingsStore, defaults *settings.Options, creds *credentials.Options) *ConfigProvider {
	if defaults == nil {
		defaults = settings.NewOptions()
	}
	if creds == nil {
		creds = credentials.NewOptions()
	}
	return &ConfigProvider{store: s, defaults: defaults, creds: creds}
}

// Defaults 返回默认设置。
func (p *ConfigProvider) Defaults() *settings.Options {
	return p.defaults
}

// Retrieval 读取当前检索参数。
func (p *ConfigProvider) Retrieval(ctx context.Context) RetrievalConfig {
	cfg := RetrievalConfig{
		VectorWeight:       p.intSetting(ctx, store.KeyVectorPercentage, p.defaults.VectorPercentage),
		ResultLength:       p.intSetting(ctx, store.KeyResultLength, p.defaults.ResultLength),
		SummarizeThreshold: p.intSetting(ctx, store.KeySummarizeThreshold, p.defaults.SummarizeThreshold),
	}
	return normalize(cfg, p.defaults)
}

func normalize(cfg RetrievalConfig, defaults *settings.Options) RetrievalConfig {
	cfg.VectorWeight = max(0, min(100, cfg.VectorWeight))
	if cfg.ResultLength <= 0 {
		cfg.ResultLength = defaults.ResultLength
	}
	if cfg.SummarizeThreshold < 1 {
		cfg.SummarizeThreshold = 1
	}
	return cfg
}

func (p *ConfigProvider) intSetting(ctx context.Context, key string, def int) int {
	raw, ok := p.get(ctx, key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		logger.Warnw("Malformed setting replaced by default", "key", key, "value", raw, "default", def)
		return def
	}
	return n
}

func (p *ConfigProvider) get(ctx context.Context, key string) (string, bool) {
	v, ok, err := p.store.Get(ctx, key)
	if err != nil {
		logger.Warnw("Failed to read setting, using default", "key", key, "error", err.Error())
		return "", false
	}
	return v, ok
}

// UpdateRetrieval 写入检索参数，nil 字段保持不变。所有字段一次写入，失败时均不生效。
func (p *ConfigProvider) UpdateRetrieval(ctx context.Context, vector, resultLength, threshold *int) (RetrievalConfig, error) {
	values := make(map[string]string, 3)
	for key, val := range map[string]*int{
		store.KeyVectorPercentage:   vector,
		store.KeyResultLength:       resultLength,
		store.KeySummarizeThreshold: threshold,
	} {
		if val != nil {
			values[key] = strconv.Itoa(*val)
		}
	}
	if err := p.store.SetMany(ctx, values); err != nil {
		return RetrievalConfig{}, errors.ErrInternal.WithCause(err)
	}
	return p.Retrieval(ctx), nil
}

// KnowledgeSources 返回已上传文档的文件名列表。
func (p *ConfigProvider) KnowledgeSources(ctx context.Context) []string {
	raw, ok := p.get(ctx, store.KeyKnowledgeSources)
	if !ok || raw == "" {
		return []string{}
	}
	var sources []string
	if err := json.Unmarshal([]byte(raw), &sources); err != nil {
		logger.Warnw("Malformed knowledge sources replaced by empty list", "error", err.Error())
		return []string{}
	}
	if sources == nil {
		sources = []string{}
	}
	return sources
}

// AddKnowledgeSource 追加文件名，已存在时不重复添加。
func (p *ConfigProvider) AddKnowledgeSource(ctx context.Context, name string) ([]string, error) {
	p.sourcesMu.Lock()
	defer p.sourcesMu.Unlock()

	sources := p.KnowledgeSources(ctx)
	if slices.Contains(sources, name) {
		return sources, nil
	}
	sources = append(sources, name)

	raw, err := json.Marshal(sources)
	if err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	if err := p.store.Set(ctx, store.KeyKnowledgeSources, string(raw)); err != nil {
		return nil, errors.ErrInternal.WithCause(err)
	}
	return sources, nil
}

// SetCredential 保存凭据覆盖值，空字符串表示清除覆盖。
func (p *ConfigProvider) SetCredential(ctx context.Context, provider CredentialProvider, key string) error {
	key = strings.TrimSpace(key)
	var err error
	if key == "" {
		err = p.store.Delete(ctx, provider.settingsKey())
	} else {
		err = p.store.Set(ctx, provider.settingsKey(), key)
	}
	if err != nil {
		return errors.ErrInternal.WithCause(err)
	}
	return nil
}

func (p *ConfigProvider) builtin(provider CredentialProvider) string {
	if provider == ProviderVectorStore {
		return p.creds.PineconeAPIKey
	}
	return p.creds.OpenAIAPIKey
}

// Credential 解析凭据：先取持久化覆盖值，再取内置默认值。
func (p *ConfigProvider) Credential(ctx context.Context, provider CredentialProvider) string {
	if v, ok := p.get(ctx, provider.settingsKey()); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return p.builtin(provider)
}

// CredentialStatuses 返回各凭据的脱敏状态。
func (p *ConfigProvider) CredentialStatuses(ctx context.Context) []CredentialStatus {
	out := make([]CredentialStatus, 0, 2)
	for _, provider := range []CredentialProvider{ProviderEmbedding, ProviderVectorStore} {
		override, ok := p.get(ctx, provider.settingsKey())
		overridden := ok && strings.TrimSpace(override) != ""
		key := p.Credential(ctx, provider)
		out = append(out, CredentialStatus{
			Provider:   provider,
			Overridden: overridden,
			Configured: key != "",
			Masked:     mask(key),
		})
	}
	return out
}

func mask(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "****" + key[len(key)-4:]
}

// Snapshot 读取回合所需的全部配置。
func (p *ConfigProvider) Snapshot(ctx context.Context) *Snapshot {
	return &Snapshot{
		Retrieval: p.Retrieval(ctx),
		Credentials: map[CredentialProvider]string{
			ProviderEmbedding:   p.Credential(ctx, ProviderEmbedding),
			ProviderVectorStore: p.Credential(ctx, ProviderVectorStore),
		},
	}
}

type snapshotKey struct{}

// WithSnapshot 将快照放入 ctx，回合内的外部调用从中读取凭据。
func WithSnapshot(ctx context.Context, s *Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, s)
}

// SnapshotFrom 返回 ctx 中的快照。
func SnapshotFrom(ctx context.Context) (*Snapshot, bool) {
	s, ok := ctx.Value(snapshotKey{}).(*Snapshot)
	return s, ok
}

// KeySource 返回调用时解析凭据的 llm.KeySource。
// ctx 中有快照时使用快照中的值，否则实时读取。
func (p *ConfigProvider) KeySource(provider CredentialProvider) llm.KeySource {
	return llm.KeySourceFunc(func(ctx context.Context) (string, error) {
		var key string
		if snap, ok := SnapshotFrom(ctx); ok {
			key = snap.Credentials[provider]
		} else {
			key = p.Credential(ctx, provider)
		}
		if key == "" {
			return "", errors.ErrConfig.WithMessagef("%s api key is not configured", provider)
		}
		return key, nil
	})
}
