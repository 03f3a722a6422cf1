package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-highlighter/internal/types"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvOpenAIAPIKey, EnvOpenAIBaseURL, EnvOpenAIModel, EnvWordPrompt} {
		t.Setenv(k, "")
	}
}

func TestNewConfigManager(t *testing.T) {
	t.Run("with custom path", func(t *testing.T) {
		cm, err := NewConfigManager("/tmp/test-config.json")
		require.NoError(t, err)
		assert.Equal(t, "/tmp/test-config.json", cm.GetConfigPath())
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		cm, err := NewConfigManager("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfigFileName, filepath.Base(cm.GetConfigPath()))
	})
}

func TestConfigManager_LoadSave(t *testing.T) {
	clearEnv(t)

	for _, name := range []string{"config.json", "config.toml"} {
		t.Run(name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), name)

			cm, err := NewConfigManager(configPath)
			require.NoError(t, err)
			require.NoError(t, cm.Load())
			assert.Equal(t, DefaultModel, cm.GetConfig().Model)
			assert.Equal(t, DefaultChunkSize, cm.GetConfig().ChunkSize)

			cfg := DefaultConfig()
			cfg.APIKey = "test-api-key"
			cfg.Model = "deepseek-chat"
			cfg.ChunkSize = 1500
			cfg.WordPrompt = "rare words"
			cm.SetConfig(cfg)
			require.NoError(t, cm.Save())

			reloaded, err := NewConfigManager(configPath)
			require.NoError(t, err)
			require.NoError(t, reloaded.Load())
			got := reloaded.GetConfig()
			assert.Equal(t, "test-api-key", got.APIKey)
			assert.Equal(t, "deepseek-chat", got.Model)
			assert.Equal(t, 1500, got.ChunkSize)
			assert.Equal(t, "rare words", got.WordPrompt)
			assert.Equal(t, DefaultConcurrency, got.Concurrency)
		})
	}
}

func TestConfigManager_LoadInvalidFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"bad.json", "{ not json"},
		{"bad.toml", "model = = ="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), tt.name)
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), 0600))

			cm, err := NewConfigManager(configPath)
			require.NoError(t, err)
			require.NoError(t, cm.Load())
			assert.Equal(t, DefaultConfig(), cm.GetConfig())
		})
	}
}

func TestConfigManager_PartialFileGetsDefaults(t *testing.T) {
	clearEnv(t)

	configPath := filepath.Join(t.TempDir(), "partial.toml")
	require.NoError(t, os.WriteFile(configPath, []byte("model = \"qwen-plus\"\nchunk_size = 800\n"), 0600))

	cm, err := NewConfigManager(configPath)
	require.NoError(t, err)
	require.NoError(t, cm.Load())

	cfg := cm.GetConfig()
	assert.Equal(t, "qwen-plus", cfg.Model)
	assert.Equal(t, 800, cfg.ChunkSize)
	assert.Equal(t, DefaultBaseURL, cfg.APIURL)
	assert.Equal(t, DefaultSelectionTimeoutSeconds, cfg.SelectionTimeoutSeconds)
	assert.Equal(t, 300*time.Second, cm.GetSelectionTimeout())
}

func TestConfigManager_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvOpenAIAPIKey, "env-key")
	t.Setenv(EnvOpenAIBaseURL, "https://example.test/v1")
	t.Setenv(EnvWordPrompt, "verbs only")

	configPath := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"api_key":"file-key","model":"m"}`), 0600))

	cm, err := NewConfigManager(configPath)
	require.NoError(t, err)
	require.NoError(t, cm.Load())

	cfg := cm.GetConfig()
	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "https://example.test/v1", cfg.APIURL)
	assert.Equal(t, "verbs only", cfg.WordPrompt)
	assert.Equal(t, "m", cfg.Model)
}

func TestConfigManager_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *types.Config)
		wantErr bool
	}{
		{"defaults are valid", func(c *types.Config) {}, false},
		{"bad url", func(c *types.Config) { c.APIURL = "not a url" }, true},
		{"unknown backend", func(c *types.Config) { c.Backend = "grpc" }, true},
		{"chunk size too small", func(c *types.Config) { c.ChunkSize = 10 }, true},
		{"zero concurrency", func(c *types.Config) { c.Concurrency = 0 }, true},
		{"bad log level", func(c *types.Config) { c.LogLevel = "loud" }, true},
		{"empty log level allowed", func(c *types.Config) { c.LogLevel = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cm, err := NewConfigManager(filepath.Join(t.TempDir(), "c.json"))
			require.NoError(t, err)
			cfg := DefaultConfig()
			tt.mutate(cfg)
			cm.SetConfig(cfg)

			err = cm.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, types.IsCode(err, types.ErrConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigManager_Set(t *testing.T) {
	cm, err := NewConfigManager(filepath.Join(t.TempDir(), "c.json"))
	require.NoError(t, err)

	require.NoError(t, cm.Set("model", "gpt-4o"))
	require.NoError(t, cm.Set("chunk_size", "1200"))
	assert.Equal(t, "gpt-4o", cm.GetConfig().Model)
	assert.Equal(t, 1200, cm.GetConfig().ChunkSize)

	err = cm.Set("chunk_size", "big")
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))

	err = cm.Set("nope", "x")
	assert.True(t, types.IsCode(err, types.ErrInvalidInput))
}

func TestConfigManager_SaveCreatesDirectory(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "dir", "config.toml")
	cm, err := NewConfigManager(configPath)
	require.NoError(t, err)
	require.NoError(t, cm.Save())

	_, err = os.Stat(configPath)
	assert.NoError(t, err)
}
