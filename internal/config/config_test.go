package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnv, "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, DefaultBaseURL, cfg.Upstream.BaseURL)
	assert.Equal(t, DefaultModel, cfg.Upstream.Model)
	assert.Equal(t, DefaultMaxTokens, cfg.Upstream.MaxTokens)
	assert.InDelta(t, DefaultTemperature, cfg.Upstream.Temperature, 1e-9)
	assert.Equal(t, DefaultTimeout, cfg.Upstream.Timeout)
	assert.Equal(t, "sk-test", cfg.Upstream.APIKey)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("ADVISOR_KEY", "sk-file")

	path := writeFile(t, "config.yaml", `
server:
  port: 9090
upstream:
  base_url: http://localhost:1234/v1
  model: gpt-4o
  timeout: 15s
  api_key_env: ADVISOR_KEY
  headers:
    OpenAI-Organization: org-123
logging:
  level: debug
  format: json
metrics:
  enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://localhost:1234/v1", cfg.Upstream.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.Upstream.Model)
	assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, DefaultMaxTokens, cfg.Upstream.MaxTokens)
	assert.Equal(t, "sk-file", cfg.Upstream.APIKey)
	assert.Equal(t, "org-123", cfg.Upstream.Headers["OpenAI-Organization"])
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoad_MissingCredential(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnv, "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultAPIKeyEnv)
}

func TestLoad_Errors(t *testing.T) {
	t.Setenv(DefaultAPIKeyEnv, "sk-test")

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "server: [1, 2")
		_, err := Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config file")
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Upstream.APIKey = "sk-test"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "zero temperature allowed", mutate: func(c *Config) { c.Upstream.Temperature = 0 }},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "temperature above one", mutate: func(c *Config) { c.Upstream.Temperature = 1.5 }, wantErr: "temperature"},
		{name: "non-positive max tokens", mutate: func(c *Config) { c.Upstream.MaxTokens = 0 }, wantErr: "max_tokens"},
		{name: "empty model", mutate: func(c *Config) { c.Upstream.Model = " " }, wantErr: "model"},
		{name: "negative timeout", mutate: func(c *Config) { c.Upstream.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "invalid header", mutate: func(c *Config) { c.Upstream.Headers = Headers{"X_Bad": "1"} }, wantErr: "header"},
		{name: "unknown log level", mutate: func(c *Config) { c.Logging.Level = "verbose" }, wantErr: "logging.level"},
		{name: "unknown log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
		{name: "relative metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: "metrics.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("missing file is ignored", func(t *testing.T) {
		assert.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("populates unset variables", func(t *testing.T) {
		t.Setenv("ADVISOR_DOTENV_TEST", "")
		require.NoError(t, os.Unsetenv("ADVISOR_DOTENV_TEST"))

		path := writeFile(t, ".env", "ADVISOR_DOTENV_TEST=from-file\n")
		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "from-file", os.Getenv("ADVISOR_DOTENV_TEST"))
	})

	t.Run("does not override existing variables", func(t *testing.T) {
		t.Setenv("ADVISOR_DOTENV_TEST", "from-env")

		path := writeFile(t, ".env", "ADVISOR_DOTENV_TEST=from-file\n")
		require.NoError(t, LoadEnvFile(path))
		assert.Equal(t, "from-env", os.Getenv("ADVISOR_DOTENV_TEST"))
	})
}
