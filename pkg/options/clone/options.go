// Package clone provides options for the chat pipeline itself.
package clone

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Web retriever kinds.
const (
	WebStub = "stub"
	WebHTTP = "http"
)

// WebOptions configures web retrieval.
type WebOptions struct {
	Kind       string        `json:"kind" mapstructure:"kind"`
	Endpoint   string        `json:"endpoint" mapstructure:"endpoint"`
	APIKey     string        `json:"-" mapstructure:"api-key"`
	MaxResults int           `json:"max-results" mapstructure:"max-results"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
}

// UploadOptions configures document ingestion.
type UploadOptions struct {
	MaxBytes   int64    `json:"max-bytes" mapstructure:"max-bytes"`
	Extensions []string `json:"extensions" mapstructure:"extensions"`

	// SnippetChars of content are stored alongside the vector.
	SnippetChars int `json:"snippet-chars" mapstructure:"snippet-chars"`

	// MaxEmbedChars caps the text sent to the embedding model.
	MaxEmbedChars int `json:"max-embed-chars" mapstructure:"max-embed-chars"`

	// MaxInflatedBytes caps the decompressed PDF content streams and DOCX
	// body read while extracting one document.
	MaxInflatedBytes int64 `json:"max-inflated-bytes" mapstructure:"max-inflated-bytes"`

	// WatchDir, when set, is ingested in the background on create/write.
	WatchDir string `json:"watch-dir" mapstructure:"watch-dir"`
}

// EmbeddingCacheOptions configures the Redis embedding cache.
type EmbeddingCacheOptions struct {
	// Enabled requires the redis section to point at a reachable server.
	Enabled   bool          `json:"enabled" mapstructure:"enabled"`
	TTL       time.Duration `json:"ttl" mapstructure:"ttl"`
	KeyPrefix string        `json:"key-prefix" mapstructure:"key-prefix"`
}

// Options configures the composer, sessions and ingestion.
type Options struct {
	// TokenRatio converts result length into max_tokens.
	TokenRatio float64 `json:"token-ratio" mapstructure:"token-ratio"`

	// HistoryWindow is how many prior messages reach the model.
	HistoryWindow int `json:"history-window" mapstructure:"history-window"`

	// ParallelRetrieval runs vector and web retrieval concurrently.
	ParallelRetrieval bool `json:"parallel-retrieval" mapstructure:"parallel-retrieval"`

	// TurnTimeout bounds a whole turn; the client cannot cancel it.
	TurnTimeout time.Duration `json:"turn-timeout" mapstructure:"turn-timeout"`

	Web            *WebOptions            `json:"web" mapstructure:"web"`
	Upload         *UploadOptions         `json:"upload" mapstructure:"upload"`
	EmbeddingCache *EmbeddingCacheOptions `json:"embedding-cache" mapstructure:"embedding-cache"`
}

// NewOptions creates pipeline options with defaults.
func NewOptions() *Options {
	return &Options{
		TokenRatio:        1.5,
		HistoryWindow:     5,
		ParallelRetrieval: true,
		TurnTimeout:       90 * time.Second,
		Web: &WebOptions{
			Kind:       WebStub,
			MaxResults: 3,
			Timeout:    15 * time.Second,
		},
		Upload: &UploadOptions{
			MaxBytes:         10 << 20,
			Extensions:       []string{".pdf", ".doc", ".docx", ".txt", ".md"},
			SnippetChars:     2000,
			MaxEmbedChars:    24000,
			MaxInflatedBytes: 64 << 20,
		},
		EmbeddingCache: &EmbeddingCacheOptions{
			TTL:       24 * time.Hour,
			KeyPrefix: "knowledge-clone:emb:",
		},
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "clone."
	fs.Float64Var(&o.TokenRatio, p+"token-ratio", o.TokenRatio, "max_tokens = round(result length * ratio).")
	fs.IntVar(&o.HistoryWindow, p+"history-window", o.HistoryWindow, "Prior messages sent to the model.")
	fs.BoolVar(&o.ParallelRetrieval, p+"parallel-retrieval", o.ParallelRetrieval, "Run vector and web retrieval concurrently.")
	fs.DurationVar(&o.TurnTimeout, p+"turn-timeout", o.TurnTimeout, "Upper bound for a single chat turn.")

	fs.StringVar(&o.Web.Kind, p+"web.kind", o.Web.Kind, "Web retriever (stub|http).")
	fs.StringVar(&o.Web.Endpoint, p+"web.endpoint", o.Web.Endpoint, "Search endpoint for the http retriever.")
	fs.StringVar(&o.Web.APIKey, p+"web.api-key", o.Web.APIKey, "Bearer key for the search endpoint.")
	fs.IntVar(&o.Web.MaxResults, p+"web.max-results", o.Web.MaxResults, "Search results rendered into context.")
	fs.DurationVar(&o.Web.Timeout, p+"web.timeout", o.Web.Timeout, "Search request timeout.")

	fs.Int64Var(&o.Upload.MaxBytes, p+"upload.max-bytes", o.Upload.MaxBytes, "Largest accepted document.")
	fs.StringSliceVar(&o.Upload.Extensions, p+"upload.extensions", o.Upload.Extensions, "Accepted document extensions.")
	fs.IntVar(&o.Upload.SnippetChars, p+"upload.snippet-chars", o.Upload.SnippetChars, "Characters of content stored with each vector.")
	fs.IntVar(&o.Upload.MaxEmbedChars, p+"upload.max-embed-chars", o.Upload.MaxEmbedChars, "Characters sent to the embedding model.")
	fs.Int64Var(&o.Upload.MaxInflatedBytes, p+"upload.max-inflated-bytes", o.Upload.MaxInflatedBytes, "Decompressed bytes read while extracting one document.")
	fs.StringVar(&o.Upload.WatchDir, p+"upload.watch-dir", o.Upload.WatchDir, "Directory ingested in the background (empty disables).")
	fs.BoolVar(&o.EmbeddingCache.Enabled, p+"embedding-cache.enabled", o.EmbeddingCache.Enabled, "Cache embeddings in Redis.")
	fs.DurationVar(&o.EmbeddingCache.TTL, p+"embedding-cache.ttl", o.EmbeddingCache.TTL, "Embedding cache TTL (0 keeps entries forever).")
	fs.StringVar(&o.EmbeddingCache.KeyPrefix, p+"embedding-cache.key-prefix", o.EmbeddingCache.KeyPrefix, "Embedding cache key prefix.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TokenRatio <= 0 {
		errs = append(errs, fmt.Errorf("clone.token-ratio must be positive"))
	}
	if o.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("clone.history-window must not be negative"))
	}
	if o.TurnTimeout <= 0 {
		errs = append(errs, fmt.Errorf("clone.turn-timeout must be positive"))
	}
	switch o.Web.Kind {
	case WebStub:
	case WebHTTP:
		if o.Web.Endpoint == "" {
			errs = append(errs, fmt.Errorf("clone.web.endpoint is required for the http retriever"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported web retriever %q", o.Web.Kind))
	}
	if o.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("clone.upload.max-bytes must be positive"))
	}
	if o.Upload.MaxInflatedBytes <= 0 {
		errs = append(errs, fmt.Errorf("clone.upload.max-inflated-bytes must be positive"))
	}
	if len(o.Upload.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("clone.upload.extensions must not be empty"))
	}
	if o.Upload.SnippetChars < 0 || o.Upload.MaxEmbedChars <= 0 {
		errs = append(errs, fmt.Errorf("clone.upload snippet/embed limits are invalid"))
	}
	if o.EmbeddingCache.TTL < 0 {
		errs = append(errs, fmt.Errorf("clone.embedding-cache.ttl must not be negative"))
	}
	return errs
}
