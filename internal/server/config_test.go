package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfig = `
[server]
port = 8080

[log]
path = "logs"
rotation_time = "24h"
max_age = "168h"
level = "info"
format = "text"

[embedding]
api_key = "sk-test"
model = "text-embedding-3-small"

[storage]
backend = "memory"

[documents]
collection = "documents"
chunk_size = 200
chunk_overlap = 40
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := LoadConfig(writeConfig(t, validConfig))
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Storage.Backend)
		assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
		assert.Equal(t, "documents", cfg.Documents.Collection)
		assert.Equal(t, 40, cfg.Documents.ChunkOverlap)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.Error(t, err)
	})

	t.Run("malformed toml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "[server\nport = "))
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	base := func(t *testing.T) Config {
		cfg, err := LoadConfig(writeConfig(t, validConfig))
		require.NoError(t, err)
		return cfg
	}

	t.Run("invalid port", func(t *testing.T) {
		cfg := base(t)
		cfg.Server.Port = 0
		assert.ErrorContains(t, cfg.Validate(), "server")
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := base(t)
		cfg.Embedding.APIKey = ""
		assert.ErrorContains(t, cfg.Validate(), "embedding")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := base(t)
		cfg.Storage.Backend = "cassette-tape"
		assert.ErrorContains(t, cfg.Validate(), "storage")
	})

	t.Run("overlap must stay below chunk size", func(t *testing.T) {
		cfg := base(t)
		cfg.Documents.ChunkOverlap = cfg.Documents.ChunkSize
		assert.ErrorContains(t, cfg.Validate(), "documents")
	})

	t.Run("kafka enabled without brokers", func(t *testing.T) {
		cfg := base(t)
		cfg.Kafka.Enabled = true
		assert.ErrorContains(t, cfg.Validate(), "kafka")
	})
}
