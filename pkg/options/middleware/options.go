// Package middleware provides options for the HTTP middleware chain.
package middleware

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/knowledge-clone/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// RecoveryOptions configures the panic recovery middleware.
type RecoveryOptions struct {
	// EnableStackTrace returns the stack to clients. Ignored in production.
	EnableStackTrace bool `json:"enable-stack-trace" mapstructure:"enable-stack-trace"`
}

// RequestIDOptions configures the request id middleware.
type RequestIDOptions struct {
	// Header carries an incoming id and echoes the assigned one.
	Header string `json:"header" mapstructure:"header"`
}

// LoggerOptions configures the access log middleware.
type LoggerOptions struct {
	// SkipPaths are not logged.
	SkipPaths []string `json:"skip-paths" mapstructure:"skip-paths"`
}

// Options groups the middleware configuration.
type Options struct {
	Recovery  *RecoveryOptions  `json:"recovery" mapstructure:"recovery"`
	RequestID *RequestIDOptions `json:"request-id" mapstructure:"request-id"`
	Logger    *LoggerOptions    `json:"logger" mapstructure:"logger"`
}

// NewRecoveryOptions creates default recovery options.
func NewRecoveryOptions() *RecoveryOptions {
	return &RecoveryOptions{}
}

// NewRequestIDOptions creates default request id options.
func NewRequestIDOptions() *RequestIDOptions {
	return &RequestIDOptions{Header: "X-Request-ID"}
}

// NewLoggerOptions creates default logger options.
func NewLoggerOptions() *LoggerOptions {
	return &LoggerOptions{SkipPaths: []string{"/healthz"}}
}

// NewOptions creates middleware options with defaults.
func NewOptions() *Options {
	return &Options{
		Recovery:  NewRecoveryOptions(),
		RequestID: NewRequestIDOptions(),
		Logger:    NewLoggerOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "middleware."
	fs.BoolVar(&o.Recovery.EnableStackTrace, p+"recovery.enable-stack-trace", o.Recovery.EnableStackTrace, "Return panic stack traces to clients (never in production).")
	fs.StringVar(&o.RequestID.Header, p+"request-id.header", o.RequestID.Header, "Header carrying the request id.")
	fs.StringSliceVar(&o.Logger.SkipPaths, p+"logger.skip-paths", o.Logger.SkipPaths, "Paths excluded from the access log.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.RequestID != nil && o.RequestID.Header == "" {
		errs = append(errs, fmt.Errorf("middleware.request-id.header must not be empty"))
	}
	return errs
}

// Complete fills nil sub-options with defaults.
func (o *Options) Complete() error {
	if o.Recovery == nil {
		o.Recovery = NewRecoveryOptions()
	}
	if o.RequestID == nil {
		o.RequestID = NewRequestIDOptions()
	}
	if o.Logger == nil {
		o.Logger = NewLoggerOptions()
	}
	return nil
}
