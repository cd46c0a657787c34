// Package store 提供知识克隆服务的向量存储与设置存储。
package store

import (
	"context"
	"fmt"
	"strings"
)

// NoContent 是匹配结果缺少内容时使用的片段。
const NoContent = "No content available"

// Metadata 文档元数据。
type Metadata struct {
	Source string `json:"source"`
	// Timestamp RFC3339 格式的上传时间。
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	// Content 截断后的文本片段，检索时作为匹配结果的内容。
	Content string `json:"content,omitempty"`
}

// Document 表示一个待写入向量库的文档。
type Document struct {
	ID       string
	Content  string
	Metadata Metadata
}

// Match 表示一次向量检索的命中结果。
type Match struct {
	ID      string
	Source  string
	Score   float64
	Snippet string
}

// VectorStore 定义向量存储接口。
// Upsert 按 ID 幂等：重复写入相同 ID 会覆盖之前的记录。
type VectorStore interface {
	Upsert(ctx context.Context, doc Document, values []float32) error
	// Query 返回按分数降序排列的最多 topK 条结果。
	Query(ctx context.Context, values []float32, topK int) ([]Match, error)
	Name() string
}

// FormatMatches 将检索结果渲染为模型上下文文本。
func FormatMatches(matches []Match) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		snippet := m.Snippet
		if snippet == "" {
			snippet = NoContent
		}
		parts = append(parts, fmt.Sprintf("Source: %s\nRelevance: %v\n%s\n", m.Source, m.Score, snippet))
	}
	return strings.Join(parts, "\n---\n")
}
