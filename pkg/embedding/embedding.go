// Package embedding provides text embedding providers for the document
// store. The production provider talks to an OpenAI-compatible API; an
// optional Redis-backed cache can wrap any provider.
package embedding

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Provider converts text to fixed-length vectors.
type Provider interface {
	// Embed returns the embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Config holds embedding provider configuration.
type Config struct {
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`

	// Dimensions requests reduced-dimension vectors when positive
	// (supported by text-embedding-3 models).
	Dimensions int `toml:"dimensions"`

	// BatchSize caps the number of texts per provider call.
	BatchSize int `toml:"batch_size"`

	// MaxRetries bounds retries of transient failures per call.
	MaxRetries int `toml:"max_retries"`

	// CacheEnabled turns on the Redis embedding cache when Redis is
	// configured.
	CacheEnabled bool   `toml:"cache_enabled"`
	CacheTTL     string `toml:"cache_ttl"`
}

// Validate checks embedding configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("api_key is required")
	}
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.CacheEnabled && c.CacheTTL != "" {
		if _, err := time.ParseDuration(c.CacheTTL); err != nil {
			return errors.New("cache_ttl is invalid: " + err.Error())
		}
	}
	return nil
}

// ModelName returns the configured model identifier.
func (c *Config) ModelName() string {
	return c.Model
}
