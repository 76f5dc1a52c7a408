package mirror

import (
	"go.uber.org/net/metrics"
	"go.uber.org/zap"

	"github.com/daimatz/mirror/pkg/loader"
	"github.com/daimatz/mirror/pkg/signature"
)

// Option configures a Mirror.
type Option func(*options)

type options struct {
	logger             *zap.Logger
	meter              *metrics.Scope
	hook               AdaptHook
	signatureCacheSize int
	policy             loader.Policy
}

func newOptions(opts []Option) options {
	o := options{
		logger:             zap.NewNop(),
		signatureCacheSize: signature.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger for construction and eviction events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics registers cache counters on meter.
func WithMetrics(meter *metrics.Scope) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithAdaptHook is called after every class-file adaptation.
func WithAdaptHook(hook AdaptHook) Option {
	return func(o *options) {
		o.hook = hook
	}
}

// WithSignatureCacheSize bounds the number of parsed descriptors and
// signatures kept in memory.
func WithSignatureCacheSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.signatureCacheSize = size
		}
	}
}

// WithAccessPolicy refuses to mirror the classes policy denies, even when
// the class loader can read them.
func WithAccessPolicy(policy loader.Policy) Option {
	return func(o *options) {
		o.policy = policy
	}
}
