package store

import (
	"context"
	"fmt"

	"github.com/kart-io/knowledge-clone/pkg/component/milvus"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
)

// Milvus 元数据字段。
const (
	fieldSource    = "source"
	fieldTimestamp = "timestamp"
	fieldTitle     = "title"
	fieldContent   = "content"
)

// milvusBackend 是 MilvusStore 依赖的 Milvus 客户端能力。
type milvusBackend interface {
	Upsert(ctx context.Context, collectionName string, rows []milvus.Row) error
	Search(ctx context.Context, collectionName string, vector []float32, topK int, outputFields []string) ([]milvus.SearchResult, error)
}

// MilvusStore 基于自托管 Milvus 的向量存储，主键为文档 ID。
type MilvusStore struct {
	client     milvusBackend
	collection string
}

var _ VectorStore = (*MilvusStore)(nil)

// MilvusSchema 返回知识库集合定义。
func MilvusSchema(collection string, dimension int) *milvus.CollectionSchema {
	return &milvus.CollectionSchema{
		Name:        collection,
		Description: "knowledge clone documents",
		Dimension:   dimension,
		MetaFields: map[string]int{
			fieldSource:    1024,
			fieldTimestamp: 64,
			fieldTitle:     1024,
			fieldContent:   8192,
		},
	}
}

// NewMilvusStore 确保集合存在并返回存储实例。
func NewMilvusStore(ctx context.Context, client *milvus.Client, collection string, dimension int) (*MilvusStore, error) {
	if err := client.EnsureCollection(ctx, MilvusSchema(collection, dimension)); err != nil {
		return nil, fmt.Errorf("failed to prepare milvus collection %s: %w", collection, err)
	}
	return &MilvusStore{client: client, collection: collection}, nil
}

// Name implements VectorStore.
func (s *MilvusStore) Name() string {
	return vectorstore.BackendMilvus
}

// Upsert implements VectorStore.
func (s *MilvusStore) Upsert(ctx context.Context, doc Document, values []float32) error {
	row := milvus.Row{
		ID:     doc.ID,
		Vector: values,
		Fields: map[string]string{
			fieldSource:    doc.Metadata.Source,
			fieldTimestamp: doc.Metadata.Timestamp,
			fieldTitle:     doc.Metadata.Title,
			fieldContent:   doc.Metadata.Content,
		},
	}
	return s.client.Upsert(ctx, s.collection, []milvus.Row{row})
}

// Query implements VectorStore.
func (s *MilvusStore) Query(ctx context.Context, values []float32, topK int) ([]Match, error) {
	hits, err := s.client.Search(ctx, s.collection, values, topK, []string{fieldSource, fieldContent})
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(hits))
	for _, h := range hits {
		snippet := h.Metadata[fieldContent]
		if snippet == "" {
			snippet = NoContent
		}
		matches = append(matches, Match{
			ID:      h.ID,
			Source:  h.Metadata[fieldSource],
			Score:   float64(h.Score),
			Snippet: snippet,
		})
	}
	return matches, nil
}
