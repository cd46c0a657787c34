package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/knowledge-clone/pkg/errors"
	"github.com/kart-io/knowledge-clone/pkg/options/clone"
	"github.com/kart-io/knowledge-clone/pkg/utils/httpclient"
)

// StubNotice 是占位网页检索返回的固定文本。
const StubNotice = "Web search is not connected. No live web results are available for this question."

// Retriever 网页检索接口。
type Retriever interface {
	Search(ctx context.Context, query string) (string, error)
}

// StubRetriever 返回固定提示，不访问网络。
type StubRetriever struct{}

// Search implements Retriever.
func (StubRetriever) Search(context.Context, string) (string, error) {
	return StubNotice, nil
}

// HTTPRetriever 调用外部搜索接口。
type HTTPRetriever struct {
	endpoint   string
	apiKey     string
	maxResults int
	client     *httpclient.Client
}

// NewHTTPRetriever 创建 HTTP 搜索检索器。
func NewHTTPRetriever(endpoint, apiKey string, maxResults int, timeout time.Duration) *HTTPRetriever {
	return &HTTPRetriever{
		endpoint:   endpoint,
		apiKey:     apiKey,
		maxResults: maxResults,
		client:     httpclient.NewClient(timeout, 0),
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search implements Retriever.
func (r *HTTPRetriever) Search(ctx context.Context, query string) (string, error) {
	headers := map[string]string{}
	if r.apiKey != "" {
		headers["Authorization"] = "Bearer " + r.apiKey
	}

	var resp searchResponse
	req := searchRequest{Query: query, MaxResults: r.maxResults}
	if err := r.client.PostJSON(ctx, r.endpoint, headers, req, &resp); err != nil {
		return "", httpclient.Classify(err)
	}

	parts := make([]string, 0, len(resp.Results))
	for _, res := range resp.Results {
		parts = append(parts, fmt.Sprintf("Title: %s\nURL: %s\n%s\n", res.Title, res.URL, res.Content))
	}
	return strings.Join(parts, "\n---\n"), nil
}

// NewRetriever 按配置选择检索器实现。
func NewRetriever(opts *clone.WebOptions) (Retriever, error) {
	switch opts.Kind {
	case "", clone.WebStub:
		return StubRetriever{}, nil
	case clone.WebHTTP:
		if opts.Endpoint == "" {
			return nil, errors.ErrConfig.WithMessage("web search endpoint is required for the http retriever")
		}
		return NewHTTPRetriever(opts.Endpoint, opts.APIKey, opts.MaxResults, opts.Timeout), nil
	default:
		return nil, errors.ErrConfig.WithMessagef("unknown web retriever %q", opts.Kind)
	}
}
