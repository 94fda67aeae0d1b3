// Package config provides configuration types and helpers for sentinel.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/bimmerbailey/sentinel/internal/bulk"
	"github.com/bimmerbailey/sentinel/internal/kernel"
)

// Config holds the application-wide configuration.
type Config struct {
	Format     string           `mapstructure:"format"`
	Verbose    bool             `mapstructure:"verbose"`
	Redaction  RedactionConfig  `mapstructure:"redaction"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
	Bulk       BulkConfig       `mapstructure:"bulk"`
}

// RedactionConfig selects the detectors and the mask policy.
type RedactionConfig struct {
	// Detectors lists the enabled detectors by name, or "all".
	// Available: private_key, jwt, aws_key, key_value, email, uuid, mac_address, ipv6, ipv4, credit_card
	Detectors []string `mapstructure:"detectors"`

	MaskToken string `mapstructure:"mask_token"` // e.g. "[REDACTED]"
	Fill      string `mapstructure:"fill"`       // single punctuation byte, e.g. "*"
	Mode      string `mapstructure:"mode"`       // "same_length" or "collapse"
}

// SimilarityConfig selects the vector similarity metric.
type SimilarityConfig struct {
	Metric string `mapstructure:"metric"` // "cosine", "dot" or "euclidean"
}

// BulkConfig tunes chunked redaction of large inputs.
type BulkConfig struct {
	ChunkSize int `mapstructure:"chunk_size"` // bytes per chunk
	Workers   int `mapstructure:"workers"`    // 0 means GOMAXPROCS
}

// Output formats accepted by the format setting.
var validFormats = []string{"text", "json", "table", "yaml"}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("format", "text")
	v.SetDefault("verbose", false)
	v.SetDefault("redaction.detectors", kernel.DefaultDetectorNames())
	v.SetDefault("redaction.mask_token", kernel.DefaultMaskToken)
	v.SetDefault("redaction.fill", string(rune(kernel.DefaultMaskFill)))
	v.SetDefault("redaction.mode", kernel.MaskSameLength.String())
	v.SetDefault("similarity.metric", kernel.Cosine.String())
	v.SetDefault("bulk.chunk_size", bulk.DefaultChunkSize)
	v.SetDefault("bulk.workers", 0)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and reports the first problem found.
func (c *Config) Validate() error {
	if !isValidFormat(c.Format) {
		return fmt.Errorf("invalid format %q (must be one of %s)", c.Format, strings.Join(validFormats, ", "))
	}
	if _, err := c.Redaction.Redactor(); err != nil {
		return fmt.Errorf("redaction: %w", err)
	}
	if _, err := c.Similarity.Scorer(); err != nil {
		return fmt.Errorf("similarity: %w", err)
	}
	if err := c.Bulk.Validate(); err != nil {
		return fmt.Errorf("bulk: %w", err)
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if format == f {
			return true
		}
	}
	return false
}

// DetectorSet parses the detector list. An empty list selects the defaults;
// an unknown name is an error.
func (c RedactionConfig) DetectorSet() (kernel.DetectorSet, error) {
	if len(c.Detectors) == 0 {
		return kernel.DefaultDetectors(), nil
	}
	return kernel.ParseDetectors(c.Detectors)
}

// Policy builds the mask policy, falling back to the default token and fill
// when they are unset.
func (c RedactionConfig) Policy() (kernel.MaskPolicy, error) {
	policy := kernel.DefaultMaskPolicy()
	if c.MaskToken != "" {
		policy.Token = c.MaskToken
	}
	switch len(c.Fill) {
	case 0:
	case 1:
		policy.Fill = c.Fill[0]
	default:
		return kernel.MaskPolicy{}, fmt.Errorf("fill %q must be a single byte", c.Fill)
	}
	mode, err := kernel.ParseMaskMode(c.Mode)
	if err != nil {
		return kernel.MaskPolicy{}, err
	}
	policy.Mode = mode

	if err := policy.Validate(); err != nil {
		return kernel.MaskPolicy{}, err
	}
	return policy, nil
}

// Redactor builds a kernel redactor from the configuration.
func (c RedactionConfig) Redactor() (*kernel.Redactor, error) {
	set, err := c.DetectorSet()
	if err != nil {
		return nil, err
	}
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	return kernel.NewRedactor(set, policy)
}

// Scorer builds a kernel scorer for the configured metric.
func (c SimilarityConfig) Scorer() (*kernel.Scorer, error) {
	metric, err := kernel.ParseMetric(c.Metric)
	if err != nil {
		return nil, err
	}
	return kernel.NewScorer(metric)
}

// Validate rejects negative sizes. Zero selects the defaults.
func (c BulkConfig) Validate() error {
	if c.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative, got %d", c.ChunkSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
