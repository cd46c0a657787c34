package store

import (
	"context"
	"strings"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/llm"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
	"github.com/kart-io/knowledge-clone/pkg/utils/httpclient"
)

// PineconeStore 通过 Pinecone 风格的 REST 接口读写向量。
type PineconeStore struct {
	host      string
	namespace string
	keys      llm.KeySource
	client    *httpclient.Client
}

var _ VectorStore = (*PineconeStore)(nil)

// NewPineconeStore 创建 REST 向量存储，keys 在每次调用时解析。
func NewPineconeStore(opts *vectorstore.Options, keys llm.KeySource) *PineconeStore {
	return &PineconeStore{
		host:      strings.TrimRight(opts.Pinecone.Host, "/"),
		namespace: opts.Namespace,
		keys:      keys,
		client:    httpclient.NewClient(opts.Pinecone.Timeout, opts.Pinecone.MaxRetries),
	}
}

// Name implements VectorStore.
func (s *PineconeStore) Name() string {
	return vectorstore.BackendPinecone
}

type pineconeVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

type upsertRequest struct {
	Namespace string           `json:"namespace"`
	Vectors   []pineconeVector `json:"vectors"`
}

type queryRequest struct {
	Namespace       string    `json:"namespace"`
	TopK            int       `json:"topK"`
	Vector          []float32 `json:"vector"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []struct {
		ID       string  `json:"id"`
		Score    float64 `json:"score"`
		Metadata struct {
			Source  string `json:"source"`
			Content string `json:"content"`
		} `json:"metadata"`
	} `json:"matches"`
}

func (s *PineconeStore) headers(ctx context.Context) (map[string]string, error) {
	key, err := s.keys.APIKey(ctx)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.ErrConfig.WithMessage("vector store api key is empty")
	}
	return map[string]string{"Api-Key": key}, nil
}

// Upsert implements VectorStore.
func (s *PineconeStore) Upsert(ctx context.Context, doc Document, values []float32) error {
	h, err := s.headers(ctx)
	if err != nil {
		return err
	}

	req := upsertRequest{
		Namespace: s.namespace,
		Vectors:   []pineconeVector{{ID: doc.ID, Values: values, Metadata: doc.Metadata}},
	}
	if err := s.client.PostJSON(ctx, s.host+"/vectors/upsert", h, req, nil); err != nil {
		return httpclient.Classify(err)
	}
	return nil
}

// Query implements VectorStore.
func (s *PineconeStore) Query(ctx context.Context, values []float32, topK int) ([]Match, error) {
	h, err := s.headers(ctx)
	if err != nil {
		return nil, err
	}

	req := queryRequest{
		Namespace:       s.namespace,
		TopK:            topK,
		Vector:          values,
		IncludeMetadata: true,
	}
	var resp queryResponse
	if err := s.client.PostJSON(ctx, s.host+"/query", h, req, &resp); err != nil {
		return nil, httpclient.Classify(err)
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		snippet := m.Metadata.Content
		if snippet == "" {
			snippet = NoContent
		}
		matches = append(matches, Match{
			ID:      m.ID,
			Source:  m.Metadata.Source,
			Score:   m.Score,
			Snippet: snippet,
		})
	}
	return matches, nil
}
