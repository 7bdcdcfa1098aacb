package cache

import "github.com/EchoTools/blamFileTools/internal/logger"

// Option configures Open.
type Option func(*options)

type options struct {
	log       logger.Logger
	res       *Resources
	cacheType CacheType
	prewarm   bool
}

func defaultOptions() options {
	return options{
		log:       logger.Discard(),
		cacheType: Unknown,
		prewarm:   true,
	}
}

// WithLogger sets the logger used for open and pre-warm diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithResources replaces the embedded build, string-id and key tables.
func WithResources(r *Resources) Option {
	return func(o *options) {
		o.res = r
	}
}

// WithCacheType skips build detection and reads the file as c.
func WithCacheType(c CacheType) Option {
	return func(o *options) {
		o.cacheType = c
	}
}

// WithoutPrewarm disables the background parse of global tags.
func WithoutPrewarm() Option {
	return func(o *options) {
		o.prewarm = false
	}
}
