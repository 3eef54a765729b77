package core_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memoria-ai/memoria-go/pkg/core"
)

func TestValidate(t *testing.T) {
	valid := &core.Config{
		Embedder: core.EmbedderConfig{Provider: "openai"},
		Store:    core.StoreConfig{Provider: "sqlite"},
	}
	assert.NoError(t, valid.Validate())

	missingEmbedder := &core.Config{
		Store: core.StoreConfig{Provider: "sqlite"},
	}
	assert.ErrorIs(t, missingEmbedder.Validate(), core.ErrInvalidConfig)

	missingStore := &core.Config{
		Embedder: core.EmbedderConfig{Provider: "openai"},
	}
	assert.ErrorIs(t, missingStore.Validate(), core.ErrInvalidConfig)
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
		"embedder": {"provider": "qwen", "api_key": "sk-test", "dimensions": 1024},
		"store": {"provider": "memory"},
		"retrieval": {"private_top_k": 3},
		"curator": {"decay_rate": 0.2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	config, err := core.LoadConfigFromJSON(path)
	require.NoError(t, err)
	assert.Equal(t, "qwen", config.Embedder.Provider)
	assert.Equal(t, 1024, config.Embedder.Dimensions)
	assert.Equal(t, "memory", config.Store.Provider)
	assert.Equal(t, 3, config.Retrieval.PrivateTopK)
	assert.Equal(t, 0.2, config.Curator.DecayRate)
}

func TestLoadConfigFromJSONMissingFile(t *testing.T) {
	_, err := core.LoadConfigFromJSON(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadConfigFromJSONMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := core.LoadConfigFromJSON(path)
	assert.Error(t, err)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("STORE_PROVIDER", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("EMBEDDING_PROVIDER", "qwen")
	t.Setenv("EMBEDDING_API_KEY", "sk-env")
	t.Setenv("EMBEDDING_DIMENSIONS", "1024")
	t.Setenv("CURATOR_DECAY_RATE", "0.05")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "postgres", config.Store.Provider)
	assert.Equal(t, "db.internal", config.Store.Host)
	assert.Equal(t, 5433, config.Store.Port)
	assert.Equal(t, "secret", config.Store.Password)
	assert.Equal(t, "qwen", config.Embedder.Provider)
	assert.Equal(t, "sk-env", config.Embedder.APIKey)
	assert.Equal(t, 1024, config.Embedder.Dimensions)
	assert.Equal(t, 0.05, config.Curator.DecayRate)
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_PROVIDER", "sqlite")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("EMBEDDING_DIMENSIONS", "")

	config, err := core.LoadConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Store.Provider)
	assert.Equal(t, "./memoria.db", config.Store.Path)
	assert.Equal(t, "memories", config.Store.Table)
	assert.Equal(t, "openai", config.Embedder.Provider)
	assert.Equal(t, 1536, config.Embedder.Dimensions)
}
