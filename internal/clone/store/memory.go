package store

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
)

type memoryEntry struct {
	values   []float32
	metadata Metadata
}

// MemoryStore 进程内向量存储，按余弦相似度检索。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

var _ VectorStore = (*MemoryStore)(nil)

// NewMemoryStore 创建空的内存向量存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Name implements VectorStore.
func (s *MemoryStore) Name() string {
	return vectorstore.BackendMemory
}

// Upsert implements VectorStore.
func (s *MemoryStore) Upsert(_ context.Context, doc Document, values []float32) error {
	vec := make([]float32, len(values))
	copy(vec, values)

	s.mu.Lock()
	s.entries[doc.ID] = memoryEntry{values: vec, metadata: doc.Metadata}
	s.mu.Unlock()
	return nil
}

// Query implements VectorStore.
func (s *MemoryStore) Query(_ context.Context, values []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	matches := make([]Match, 0, len(s.entries))
	for id, e := range s.entries {
		snippet := e.metadata.Content
		if snippet == "" {
			snippet = NoContent
		}
		matches = append(matches, Match{
			ID:      id,
			Source:  e.metadata.Source,
			Score:   cosine(values, e.values),
			Snippet: snippet,
		})
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len 返回已存储的文档数。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
