package pool

import (
	"sort"
	"sync"
	"time"

	"github.com/kart-io/logger"
)

// Manager 按类型管理服务内的工作池。
type Manager struct {
	mu    sync.RWMutex
	pools map[Type]*Pool
}

// NewManager 创建池管理器。
func NewManager() *Manager {
	return &Manager{pools: make(map[Type]*Pool)}
}

// Register 创建并注册指定类型的池，已存在时返回已有实例。
func (m *Manager) Register(typ Type, config *Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pools[typ]; ok {
		return p, nil
	}
	p, err := NewPool(string(typ), typ, config)
	if err != nil {
		return nil, err
	}
	m.pools[typ] = p
	return p, nil
}

// Get 返回指定类型的池。
func (m *Manager) Get(typ Type) (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.pools[typ]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// Stats 返回所有池的统计信息。
func (m *Manager) Stats() map[string]Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Stats, len(m.pools))
	for typ, p := range m.pools {
		out[string(typ)] = p.Stats()
	}
	return out
}

// ReleaseAll 释放所有池，每个池最多等待 timeout。
func (m *Manager) ReleaseAll(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make([]string, 0, len(m.pools))
	for typ := range m.pools {
		types = append(types, string(typ))
	}
	sort.Strings(types)

	for _, name := range types {
		if err := m.pools[Type(name)].ReleaseTimeout(timeout); err != nil {
			logger.Warnw("Worker pool release timed out", "name", name, "error", err.Error())
		}
	}
	m.pools = make(map[Type]*Pool)
}
