package config

import "context"

type contextKey struct{}

// WithContext returns a copy of ctx carrying cfg.
func (cfg *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the Config stored in ctx, or the defaults.
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok && cfg != nil {
		return cfg
	}
	return Default()
}
