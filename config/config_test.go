package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ragcheck.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalYAML = `
api:
  base_url: https://example.com
  api_key: secret
  chatbot_id: bot-1
`

func TestLoader(t *testing.T) {
	t.Run("defaults apply under yaml overrides", func(t *testing.T) {
		path := writeConfigFile(t, minimalYAML)
		cfg, err := NewLoader().WithConfigPath(path).Load()
		require.NoError(t, err)

		assert.Equal(t, "https://example.com", cfg.API.BaseURL)
		assert.Equal(t, 60*time.Second, cfg.API.Timeout)
		assert.Equal(t, "standard", cfg.Validation.SimilarityMode)
		assert.Equal(t, 0.3, cfg.Validation.SimilarityThreshold)
		assert.Equal(t, 3, cfg.Validation.Concurrency)
		assert.Equal(t, []string{"---", "|||", "\n\n"}, cfg.Validation.Separators)
		assert.True(t, cfg.Validation.ChainContext)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.False(t, cfg.Telemetry.Enabled)
	})

	t.Run("yaml overrides defaults", func(t *testing.T) {
		path := writeConfigFile(t, minimalYAML+`
validation:
  similarity_mode: character_ratio
  similarity_threshold: 0.5
  concurrency: 8
retry:
  max_attempts: 5
`)
		cfg, err := NewLoader().WithConfigPath(path).Load()
		require.NoError(t, err)

		assert.Equal(t, "character_ratio", cfg.Validation.SimilarityMode)
		assert.Equal(t, 0.5, cfg.Validation.SimilarityThreshold)
		assert.Equal(t, 8, cfg.Validation.Concurrency)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	})

	t.Run("environment overrides yaml", func(t *testing.T) {
		path := writeConfigFile(t, minimalYAML)
		t.Setenv("RAGCHECK_CHATBOT_ID", "bot-from-env")
		t.Setenv("RAGCHECK_CONCURRENCY", "6")
		t.Setenv("RAGCHECK_SIMILARITY_THRESHOLD", "0.7")

		cfg, err := NewLoader().WithConfigPath(path).Load()
		require.NoError(t, err)
		assert.Equal(t, "bot-from-env", cfg.API.ChatbotID)
		assert.Equal(t, 6, cfg.Validation.Concurrency)
		assert.Equal(t, 0.7, cfg.Validation.SimilarityThreshold)
	})

	t.Run("otlp endpoint env enables telemetry", func(t *testing.T) {
		path := writeConfigFile(t, minimalYAML)
		t.Setenv("RAGCHECK_OTLP_ENDPOINT", "collector:4317")

		cfg, err := NewLoader().WithConfigPath(path).Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "collector:4317", cfg.Telemetry.OTLPEndpoint)
	})

	t.Run("custom env prefix", func(t *testing.T) {
		path := writeConfigFile(t, minimalYAML)
		t.Setenv("MYAPP_API_KEY", "other-secret")

		cfg, err := NewLoader().WithConfigPath(path).WithEnvPrefix("MYAPP").Load()
		require.NoError(t, err)
		assert.Equal(t, "other-secret", cfg.API.APIKey)
	})

	t.Run("missing config file fails", func(t *testing.T) {
		_, err := NewLoader().WithConfigPath("/nonexistent/ragcheck.yaml").Load()
		assert.Error(t, err)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.API.BaseURL = "https://example.com"
		cfg.API.APIKey = "k"
		cfg.API.ChatbotID = "b"
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("missing base url fails", func(t *testing.T) {
		cfg := valid()
		cfg.API.BaseURL = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing api key fails", func(t *testing.T) {
		cfg := valid()
		cfg.API.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing chatbot id fails", func(t *testing.T) {
		cfg := valid()
		cfg.API.ChatbotID = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown similarity mode fails", func(t *testing.T) {
		cfg := valid()
		cfg.Validation.SimilarityMode = "cosine"
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range fails", func(t *testing.T) {
		cfg := valid()
		cfg.Validation.SimilarityThreshold = 1.5
		assert.Error(t, cfg.Validate())

		cfg.Validation.SimilarityThreshold = -0.1
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero concurrency fails", func(t *testing.T) {
		cfg := valid()
		cfg.Validation.Concurrency = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero max attempts fails", func(t *testing.T) {
		cfg := valid()
		cfg.Retry.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown log format fails", func(t *testing.T) {
		cfg := valid()
		cfg.Log.Format = "xml"
		assert.Error(t, cfg.Validate())
	})
}
