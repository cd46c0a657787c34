// Package options contains flags and options for initializing the knowledge clone server.
package options

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	clonesvc "github.com/kart-io/knowledge-clone/internal/clone"
	cliflag "github.com/kart-io/knowledge-clone/pkg/app/cliflag"
	cloneopts "github.com/kart-io/knowledge-clone/pkg/options/clone"
	"github.com/kart-io/knowledge-clone/pkg/options/credentials"
	dbopts "github.com/kart-io/knowledge-clone/pkg/options/database"
	llmopts "github.com/kart-io/knowledge-clone/pkg/options/llm"
	logopts "github.com/kart-io/knowledge-clone/pkg/options/logger"
	middlewareopts "github.com/kart-io/knowledge-clone/pkg/options/middleware"
	milvusopts "github.com/kart-io/knowledge-clone/pkg/options/milvus"
	redisopts "github.com/kart-io/knowledge-clone/pkg/options/redis"
	httpopts "github.com/kart-io/knowledge-clone/pkg/options/server/http"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
	tracingopts "github.com/kart-io/knowledge-clone/pkg/options/tracing"
	"github.com/kart-io/knowledge-clone/pkg/options/vectorstore"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// LLMOptions configures the embedding and chat provider.
	LLMOptions *llmopts.ProviderOptions `json:"llm" mapstructure:"llm"`

	// CredentialsOptions holds fallback API keys.
	CredentialsOptions *credentials.Options `json:"credentials" mapstructure:"credentials"`

	// MilvusOptions is used when vector.backend is milvus.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions is used by the redis settings backend and the embedding cache.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// DatabaseOptions is used when settings.backend is database.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	SettingsOptions   *settings.Options       `json:"settings" mapstructure:"settings"`
	VectorOptions     *vectorstore.Options    `json:"vector" mapstructure:"vector"`
	CloneOptions      *cloneopts.Options      `json:"clone" mapstructure:"clone"`
	MiddlewareOptions *middlewareopts.Options `json:"middleware" mapstructure:"middleware"`
	TracingOptions    *tracingopts.Options    `json:"tracing" mapstructure:"tracing"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:        httpopts.NewOptions(),
		LogOptions:         logopts.NewOptions(),
		LLMOptions:         llmopts.NewProviderOptions(),
		CredentialsOptions: credentials.NewOptions(),
		MilvusOptions:      milvusopts.NewOptions(),
		RedisOptions:       redisopts.NewOptions(),
		DatabaseOptions:    dbopts.NewOptions(),
		SettingsOptions:    settings.NewOptions(),
		VectorOptions:      vectorstore.NewOptions(),
		CloneOptions:       cloneopts.NewOptions(),
		MiddlewareOptions:  middlewareopts.NewOptions(),
		TracingOptions:     tracingopts.NewOptions(),
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.LLMOptions.AddFlags(fss.FlagSet("llm"))
	o.CredentialsOptions.AddFlags(fss.FlagSet("credentials"))
	o.SettingsOptions.AddFlags(fss.FlagSet("settings"))
	o.VectorOptions.AddFlags(fss.FlagSet("vector"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.RedisOptions.AddFlags(fss.FlagSet("redis"))
	o.DatabaseOptions.AddFlags(fss.FlagSet("database"))
	o.CloneOptions.AddFlags(fss.FlagSet("clone"))
	o.MiddlewareOptions.AddFlags(fss.FlagSet("middleware"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	if err := o.LLMOptions.Complete(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := o.MiddlewareOptions.Complete(); err != nil {
		return fmt.Errorf("middleware: %w", err)
	}
	if err := o.TracingOptions.Complete(); err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}

	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.LogOptions.Validate()...)
	errs = append(errs, o.LLMOptions.Validate()...)
	errs = append(errs, o.CredentialsOptions.Validate()...)
	errs = append(errs, o.SettingsOptions.Validate()...)
	errs = append(errs, o.VectorOptions.Validate()...)
	errs = append(errs, o.CloneOptions.Validate()...)
	errs = append(errs, o.MiddlewareOptions.Validate()...)
	errs = append(errs, o.TracingOptions.Validate()...)

	// 仅校验实际启用的后端
	if o.VectorOptions.Backend == vectorstore.BackendMilvus {
		errs = append(errs, o.MilvusOptions.Validate()...)
	}
	if o.SettingsOptions.Backend == settings.BackendRedis || o.CloneOptions.EmbeddingCache.Enabled {
		errs = append(errs, o.RedisOptions.Validate()...)
	}
	if o.SettingsOptions.Backend == settings.BackendDatabase {
		errs = append(errs, o.DatabaseOptions.Validate()...)
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a clonesvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*clonesvc.Config, error) {
	return &clonesvc.Config{
		HTTPOptions:        o.HTTPOptions,
		LogOptions:         o.LogOptions,
		LLMOptions:         o.LLMOptions,
		CredentialsOptions: o.CredentialsOptions,
		MilvusOptions:      o.MilvusOptions,
		RedisOptions:       o.RedisOptions,
		DatabaseOptions:    o.DatabaseOptions,
		SettingsOptions:    o.SettingsOptions,
		VectorOptions:      o.VectorOptions,
		CloneOptions:       o.CloneOptions,
		MiddlewareOptions:  o.MiddlewareOptions,
		TracingOptions:     o.TracingOptions,
	}, nil
}
