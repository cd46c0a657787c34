// Package settings provides options for the persisted settings store.
package settings

import (
	"fmt"
	"slices"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Settings store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDatabase = "database"
)

// Options configures where settings live and their defaults.
type Options struct {
	// Backend is one of memory, redis, database.
	Backend string `json:"backend" mapstructure:"backend"`

	// RedisKey is the hash holding the settings when Backend is redis.
	RedisKey string `json:"redis-key" mapstructure:"redis-key"`

	// VectorPercentage is the default vector weight (0..100).
	VectorPercentage int `json:"vector-percentage" mapstructure:"vector-percentage"`

	// ResultLength is the default response length budget in tokens.
	ResultLength int `json:"result-length" mapstructure:"result-length"`

	// SummarizeThreshold is the default word count above which replies are summarised.
	SummarizeThreshold int `json:"summarize-threshold" mapstructure:"summarize-threshold"`

	// AllowedResultLengths restricts what the settings API accepts.
	AllowedResultLengths []int `json:"allowed-result-lengths" mapstructure:"allowed-result-lengths"`

	// MinSummarizeThreshold is the smallest threshold the settings API accepts.
	MinSummarizeThreshold int `json:"min-summarize-threshold" mapstructure:"min-summarize-threshold"`
}

// NewOptions creates settings options with defaults.
func NewOptions() *Options {
	return &Options{
		Backend:               BackendMemory,
		RedisKey:              "knowledge-clone:settings",
		VectorPercentage:      75,
		ResultLength:          200,
		SummarizeThreshold:    500,
		AllowedResultLengths:  []int{100, 200, 300, 500},
		MinSummarizeThreshold: 100,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "settings."
	fs.StringVar(&o.Backend, p+"backend", o.Backend, "Settings store backend (memory|redis|database).")
	fs.StringVar(&o.RedisKey, p+"redis-key", o.RedisKey, "Redis hash holding the settings.")
	fs.IntVar(&o.VectorPercentage, p+"vector-percentage", o.VectorPercentage, "Default vector weight (0-100); web weight is the remainder.")
	fs.IntVar(&o.ResultLength, p+"result-length", o.ResultLength, "Default response length budget.")
	fs.IntVar(&o.SummarizeThreshold, p+"summarize-threshold", o.SummarizeThreshold, "Default word count above which replies are summarised.")
	fs.IntSliceVar(&o.AllowedResultLengths, p+"allowed-result-lengths", o.AllowedResultLengths, "Result lengths accepted by the settings API.")
	fs.IntVar(&o.MinSummarizeThreshold, p+"min-summarize-threshold", o.MinSummarizeThreshold, "Smallest threshold accepted by the settings API.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	switch o.Backend {
	case BackendMemory, BackendRedis, BackendDatabase:
	default:
		errs = append(errs, fmt.Errorf("unsupported settings backend %q", o.Backend))
	}
	if o.Backend == BackendRedis && o.RedisKey == "" {
		errs = append(errs, fmt.Errorf("settings.redis-key is required for the redis backend"))
	}
	if o.VectorPercentage < 0 || o.VectorPercentage > 100 {
		errs = append(errs, fmt.Errorf("settings.vector-percentage must be within 0..100"))
	}
	if o.ResultLength <= 0 {
		errs = append(errs, fmt.Errorf("settings.result-length must be positive"))
	}
	if o.SummarizeThreshold <= 0 {
		errs = append(errs, fmt.Errorf("settings.summarize-threshold must be positive"))
	}
	if len(o.AllowedResultLengths) > 0 && !slices.Contains(o.AllowedResultLengths, o.ResultLength) {
		errs = append(errs, fmt.Errorf("settings.result-length %d is not one of %v", o.ResultLength, o.AllowedResultLengths))
	}
	return errs
}
