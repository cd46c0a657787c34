// Package vectorstore provides options for the vector store backend.
package vectorstore

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Vector store backends.
const (
	BackendPinecone = "pinecone"
	BackendMilvus   = "milvus"
	BackendMemory   = "memory"
)

// PineconeOptions configures the REST index.
type PineconeOptions struct {
	// Host is the index base URL; requests go to <host>/vectors/upsert and <host>/query.
	Host       string        `json:"host" mapstructure:"host"`
	Timeout    time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries int           `json:"max-retries" mapstructure:"max-retries"`
}

// Options configures the vector store.
type Options struct {
	Backend   string           `json:"backend" mapstructure:"backend"`
	Namespace string           `json:"namespace" mapstructure:"namespace"`
	TopK      int              `json:"top-k" mapstructure:"top-k"`
	Pinecone  *PineconeOptions `json:"pinecone" mapstructure:"pinecone"`
}

// NewOptions creates vector store options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:   BackendPinecone,
		Namespace: "knowledge-clone",
		TopK:      3,
		Pinecone: &PineconeOptions{
			Host:    "https://api.pinecone.io",
			Timeout: 30 * time.Second,
		},
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "vector."
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Vector store backend (pinecone|milvus|memory).")
	fs.StringVar(&o.Namespace, p+"namespace", o.Namespace, "Vector namespace.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Matches returned per query.")
	fs.StringVar(&o.Pinecone.Host, p+"pinecone.host", o.Pinecone.Host, "Pinecone index host URL.")
	fs.DurationVar(&o.Pinecone.Timeout, p+"pinecone.timeout", o.Pinecone.Timeout, "Pinecone request timeout.")
	fs.IntVar(&o.Pinecone.MaxRetries, p+"pinecone.max-retries", o.Pinecone.MaxRetries, "Retries for 5xx and transport errors (0 disables retries).")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendPinecone:
		if o.Pinecone == nil || o.Pinecone.Host == "" {
			errs = append(errs, fmt.Errorf("vector.pinecone.host is required for the pinecone backend"))
		}
	case BackendMilvus, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported vector backend %q", o.Backend))
	}
	if o.Namespace == "" {
		errs = append(errs, fmt.Errorf("vector.namespace is required"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("vector.top-k must be positive"))
	}
	return errs
}
