// Package config loads semdelta settings from HCL or YAML files.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/resultcache"
	"github.com/walteh/semdelta/pkg/tracing"
)

const (
	DefaultExpiration      = "30m"
	DefaultCleanupInterval = "1h"
	DefaultLogLevel        = "info"
	DefaultTraceExporter   = "stdout"
	DefaultServiceName     = "semdelta"
)

// 📝 Config file structure
type Config struct {
	// 🗄️ result cache tuning
	Cache *CacheBlock `json:"cache,omitempty" hcl:"cache,block" yaml:"cache,omitempty"`
	// 📐 sequence aligner limits
	Aligner *AlignerBlock `json:"aligner,omitempty" hcl:"aligner,block" yaml:"aligner,omitempty"`
	// 📣 logging
	Log *LogBlock `json:"log,omitempty" hcl:"log,block" yaml:"log,omitempty"`
	// 🔭 span export
	Trace *TraceBlock `json:"trace,omitempty" hcl:"trace,block" yaml:"trace,omitempty"`
}

type CacheBlock struct {
	// Expiration is a Go duration; "0" keeps entries until their document closes.
	Expiration      string `json:"expiration,omitempty" hcl:"expiration,optional" yaml:"expiration,omitempty"`
	CleanupInterval string `json:"cleanup_interval,omitempty" hcl:"cleanup_interval,optional" yaml:"cleanup_interval,omitempty"`
}

type AlignerBlock struct {
	MaxCells *int `json:"max_cells,omitempty" hcl:"max_cells,optional" yaml:"max_cells,omitempty"`
}

type LogBlock struct {
	Level string `json:"level,omitempty" hcl:"level,optional" yaml:"level,omitempty"`
}

type TraceBlock struct {
	Enabled     bool   `json:"enabled,omitempty" hcl:"enabled,optional" yaml:"enabled,omitempty"`
	Exporter    string `json:"exporter,omitempty" hcl:"exporter,optional" yaml:"exporter,omitempty"`
	ServiceName string `json:"service_name,omitempty" hcl:"service_name,optional" yaml:"service_name,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return (&Config{}).withDefaults()
}

func (cfg *Config) withDefaults() *Config {
	if cfg.Cache == nil {
		cfg.Cache = &CacheBlock{}
	}
	if cfg.Cache.Expiration == "" {
		cfg.Cache.Expiration = DefaultExpiration
	}
	if cfg.Cache.CleanupInterval == "" {
		cfg.Cache.CleanupInterval = DefaultCleanupInterval
	}
	if cfg.Aligner == nil {
		cfg.Aligner = &AlignerBlock{}
	}
	if cfg.Aligner.MaxCells == nil {
		cells := lcs.DefaultMaxCells
		cfg.Aligner.MaxCells = &cells
	}
	if cfg.Log == nil {
		cfg.Log = &LogBlock{}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Trace == nil {
		cfg.Trace = &TraceBlock{}
	}
	if cfg.Trace.Exporter == "" {
		cfg.Trace.Exporter = DefaultTraceExporter
	}
	if cfg.Trace.ServiceName == "" {
		cfg.Trace.ServiceName = DefaultServiceName
	}
	return cfg
}

// evalContext exposes the process environment to HCL expressions as env.NAME.
func evalContext() *hcl.EvalContext {
	env := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = cty.StringVal(value)
	}

	vars := cty.MapValEmpty(cty.String)
	if len(env) > 0 {
		vars = cty.MapVal(env)
	}

	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": vars,
		},
	}
}

// 📝 Load config from file (supports YAML and HCL)
func Load(fs afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	cfg, err := parse(data, path)
	if err != nil {
		return nil, err
	}

	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

func parse(data []byte, path string) (*Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var cfg Config
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(&cfg); err != nil {
			// an empty document is a valid, all-defaults config
			if errors.Is(err, io.EOF) {
				return &cfg, nil
			}
			return nil, errors.Errorf("parsing YAML: %w", err)
		}
		return &cfg, nil
	}

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(hclFile.Body, evalContext(), &cfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once.
func (cfg *Config) Validate() error {
	var result *multierror.Error

	if cfg.Cache != nil {
		if _, err := parseDuration("cache.expiration", cfg.Cache.Expiration); err != nil {
			result = multierror.Append(result, err)
		}
		if _, err := parseDuration("cache.cleanup_interval", cfg.Cache.CleanupInterval); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if cfg.Aligner != nil && cfg.Aligner.MaxCells != nil && *cfg.Aligner.MaxCells < 0 {
		result = multierror.Append(result, errors.Errorf("aligner.max_cells must not be negative, got %d", *cfg.Aligner.MaxCells))
	}
	if cfg.Log != nil && cfg.Log.Level != "" {
		if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
			result = multierror.Append(result, errors.Errorf("log.level: %w", err))
		}
	}

	if cfg.Trace != nil {
		switch cfg.Trace.Exporter {
		case "", "stdout", "none":
		default:
			result = multierror.Append(result, errors.Errorf("trace.exporter must be stdout or none, got %q", cfg.Trace.Exporter))
		}
	}

	return result.ErrorOrNil()
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Errorf("%s: %w", field, err)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", field, value)
	}
	return d, nil
}

// CacheOptions translates the cache block into resultcache options.
func (cfg *Config) CacheOptions() ([]resultcache.Option, error) {
	if cfg.Cache == nil {
		return nil, nil
	}
	expiration, err := parseDuration("cache.expiration", cfg.Cache.Expiration)
	if err != nil {
		return nil, err
	}
	cleanup, err := parseDuration("cache.cleanup_interval", cfg.Cache.CleanupInterval)
	if err != nil {
		return nil, err
	}
	return []resultcache.Option{
		resultcache.WithExpiration(expiration),
		resultcache.WithCleanupInterval(cleanup),
	}, nil
}

// AlignOptions translates the aligner block into lcs options.
func (cfg *Config) AlignOptions() []lcs.Option {
	if cfg.Aligner == nil || cfg.Aligner.MaxCells == nil {
		return nil
	}
	return []lcs.Option{lcs.WithMaxCells(*cfg.Aligner.MaxCells)}
}

// LogLevel returns the configured zerolog level, defaulting to info.
func (cfg *Config) LogLevel() zerolog.Level {
	if cfg.Log == nil {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || cfg.Log.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}

// TraceConfig translates the trace block into provider settings.
func (cfg *Config) TraceConfig() tracing.Config {
	if cfg.Trace == nil {
		return tracing.Config{}
	}
	return tracing.Config{
		Enabled:     cfg.Trace.Enabled,
		Exporter:    cfg.Trace.Exporter,
		ServiceName: cfg.Trace.ServiceName,
	}
}
