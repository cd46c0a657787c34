package store

import (
	"context"
	"maps"
	"sync"

	"github.com/kart-io/knowledge-clone/pkg/options/settings"
)

// 持久化设置键，值均为字符串。
const (
	KeyVectorPercentage   = "vectorPercentage"
	KeyResultLength       = "resultLength"
	KeySummarizeThreshold = "summarizeThreshold"
	KeyKnowledgeSources   = "knowledgeSources"
	KeyOpenAIAPIKey       = "openaiApiKey"
	KeyPineconeAPIKey     = "pineconeApiKey"
)

// SettingsStore 字符串键值设置存储。
type SettingsStore interface {
	// Get 返回键对应的值，键不存在时 ok 为 false。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	// SetMany 原子地写入多个键，任一失败时不写入任何键。
	SetMany(ctx context.Context, values map[string]string) error
	Delete(ctx context.Context, key string) error
	Name() string
}

// MemorySettings 进程内设置存储。
type MemorySettings struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ SettingsStore = (*MemorySettings)(nil)

// NewMemorySettings 创建内存设置存储。
func NewMemorySettings() *MemorySettings {
	return &MemorySettings{values: make(map[string]string)}
}

func (s *MemorySettings) Name() string { return settings.BackendMemory }

func (s *MemorySettings) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemorySettings) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.values[key] = value
	s.mu.Unlock()
	return nil
}

func (s *MemorySettings) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.values, key)
	s.mu.Unlock()
	return nil
}

func (s *MemorySettings) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	maps.Copy(s.values, values)
	s.mu.Unlock()
	return nil
}
