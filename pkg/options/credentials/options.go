// Package credentials holds the built-in fallback API keys. Keys stored in the
// settings store take precedence over these at call time.
package credentials

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains the fallback credentials.
type Options struct {
	// OpenAIAPIKey is used for embeddings and completions.
	OpenAIAPIKey string `json:"-" mapstructure:"openai-api-key"`

	// PineconeAPIKey is used for the vector store.
	PineconeAPIKey string `json:"-" mapstructure:"pinecone-api-key"`
}

// NewOptions creates Options with no keys configured.
func NewOptions() *Options {
	return &Options{}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "credentials."
	fs.StringVar(&o.OpenAIAPIKey, p+"openai-api-key", o.OpenAIAPIKey, "Fallback OpenAI API key used when no override is stored.")
	fs.StringVar(&o.PineconeAPIKey, p+"pinecone-api-key", o.PineconeAPIKey, "Fallback Pinecone API key used when no override is stored.")
}

// Validate accepts empty keys: an override may be stored later through the API.
func (o *Options) Validate() []error {
	return nil
}

// String returns a representation with keys redacted.
func (o *Options) String() string {
	return fmt.Sprintf("Credentials{openai=%s, pinecone=%s}", options.Redact(o.OpenAIAPIKey), options.Redact(o.PineconeAPIKey))
}
