package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 8081
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 500
	DefaultTemperature = 0.7
	DefaultTimeout     = 60 * time.Second
	DefaultAPIKeyEnv   = "OPENAI_KEY"
	DefaultMetricsPath = "/metrics"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// UpstreamConfig describes the chat-completion API the advisor delegates to.
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Headers     Headers       `yaml:"headers"`

	// APIKey is resolved from the environment variable named by APIKeyEnv.
	APIKey string `yaml:"-"`
}

// Headers contains additional HTTP headers to send with each upstream request.
type Headers map[string]string

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: DefaultPort},
		Upstream: UpstreamConfig{
			BaseURL:     DefaultBaseURL,
			Model:       DefaultModel,
			MaxTokens:   DefaultMaxTokens,
			Temperature: DefaultTemperature,
			Timeout:     DefaultTimeout,
			APIKeyEnv:   DefaultAPIKeyEnv,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Metrics: MetricsConfig{Enabled: true, Path: DefaultMetricsPath},
	}
}

// LoadEnvFile populates the process environment from a dotenv file.
// A missing file is not an error; variables already set are left untouched.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// Load reads YAML configuration from disk on top of the defaults, resolves the
// upstream credential from the environment and validates the result. An empty
// path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	cfg.applyDefaults()
	cfg.Upstream.APIKey = strings.TrimSpace(os.Getenv(cfg.Upstream.APIKeyEnv))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults restores defaults for keys a config file set to empty values.
func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Upstream.BaseURL) == "" {
		c.Upstream.BaseURL = DefaultBaseURL
	}
	if strings.TrimSpace(c.Upstream.Model) == "" {
		c.Upstream.Model = DefaultModel
	}
	if strings.TrimSpace(c.Upstream.APIKeyEnv) == "" {
		c.Upstream.APIKeyEnv = DefaultAPIKeyEnv
	}
	if c.Upstream.Timeout == 0 {
		c.Upstream.Timeout = DefaultTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if err := validateUpstream(c.Upstream); err != nil {
		return err
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be %q or %q", c.Logging.Format, "console", "json")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path %q must start with /", c.Metrics.Path)
	}

	return nil
}

func validateUpstream(u UpstreamConfig) error {
	if strings.TrimSpace(u.APIKey) == "" {
		return fmt.Errorf("upstream: environment variable %s must be set", u.APIKeyEnv)
	}
	if strings.TrimSpace(u.BaseURL) == "" {
		return errors.New("upstream: base_url must be provided")
	}
	if strings.TrimSpace(u.Model) == "" {
		return errors.New("upstream: model must not be empty")
	}
	if u.MaxTokens <= 0 {
		return fmt.Errorf("upstream: max_tokens must be positive, got %d", u.MaxTokens)
	}
	if u.Temperature < 0 || u.Temperature > 1 {
		return fmt.Errorf("upstream: temperature must be within [0, 1], got %g", u.Temperature)
	}
	if u.Timeout < 0 {
		return fmt.Errorf("upstream: timeout must not be negative, got %s", u.Timeout)
	}

	for headerKey := range u.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("upstream: header %q is not a valid canonical HTTP header", headerKey)
		}
	}

	return nil
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
