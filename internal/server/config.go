package server

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/Zereker/docstore/pkg/embedding"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/mq"
	"github.com/Zereker/docstore/pkg/redis"
	"github.com/Zereker/docstore/pkg/vector"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig     `toml:"server"`
	Log       log.Config       `toml:"log"`
	Embedding embedding.Config `toml:"embedding"`
	Storage   vector.Config    `toml:"storage"`
	Redis     redis.Config     `toml:"redis"`
	Kafka     mq.KafkaConfig   `toml:"kafka"`
	Documents DocumentsConfig  `toml:"documents"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	Port int `toml:"port"`
}

// DocumentsConfig tunes the document service itself.
type DocumentsConfig struct {
	Collection       string `toml:"collection"`
	ChunkSize        int    `toml:"chunk_size"`
	ChunkOverlap     int    `toml:"chunk_overlap"`
	BatchConcurrency int    `toml:"batch_concurrency"`
}

// Validate checks server configuration
func (s *ServerConfig) Validate() error {
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("port is required and must be between 1 and 65535")
	}
	return nil
}

// Validate checks document service configuration
func (d *DocumentsConfig) Validate() error {
	if d.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}
	if d.ChunkOverlap < 0 {
		return fmt.Errorf("chunk_overlap must not be negative")
	}
	if d.ChunkSize > 0 && d.ChunkOverlap >= d.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}
	if d.BatchConcurrency < 0 {
		return fmt.Errorf("batch_concurrency must not be negative")
	}
	return nil
}

// Validate checks all configuration fields
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if err := c.Embedding.Validate(); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	if err := c.Redis.Validate(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	if err := c.Kafka.Validate(); err != nil {
		return fmt.Errorf("kafka: %w", err)
	}

	if err := c.Documents.Validate(); err != nil {
		return fmt.Errorf("documents: %w", err)
	}

	return nil
}

// LoadConfig reads and parses the configuration file
func LoadConfig(filename string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(filename)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
