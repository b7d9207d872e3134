// Package config resolves process configuration from defaults, an optional
// YAML file, and FIELDFLOW_* environment variables, in that order of
// precedence. Credential material is only ever read from the environment,
// never from config files.
package config

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config is the full resolved configuration.
type Config struct {
	Spec     SpecConfig     `yaml:"spec"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Log      LogConfig      `yaml:"log"`
}

// SpecConfig locates the OpenAPI document.
type SpecConfig struct {
	// Path is a filesystem path or http(s) URL to the OpenAPI document.
	Path string `yaml:"path"`
}

// UpstreamConfig describes the proxied REST service.
type UpstreamConfig struct {
	// BaseURL overrides the spec's servers entry when set.
	BaseURL string `yaml:"base_url"`
	// TimeoutSeconds bounds each forwarded request. Zero means the
	// forwarder default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig selects how the single upstream credential is attached.
// Value is resolved exclusively from FIELDFLOW_AUTH_VALUE.
type AuthConfig struct {
	Type   string `yaml:"type"`   // bearer | apikey | basic
	Header string `yaml:"header"` // defaults per type
	Value  string `yaml:"-"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"` // debug | info | warn | error
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{Addr: "127.0.0.1:8000"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load resolves configuration: defaults, then the YAML file at path (when
// non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Spec.Path, "FIELDFLOW_SPEC_PATH")
	setString(&c.Upstream.BaseURL, "FIELDFLOW_BASE_URL")
	setString(&c.Server.Addr, "FIELDFLOW_ADDR")
	setString(&c.Auth.Type, "FIELDFLOW_AUTH_TYPE")
	setString(&c.Auth.Header, "FIELDFLOW_AUTH_HEADER")
	setString(&c.Auth.Value, "FIELDFLOW_AUTH_VALUE")
	setString(&c.Log.Level, "FIELDFLOW_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		*dst = strings.TrimSpace(v)
	}
}

// Validate checks the parts every command needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Spec.Path) == "" {
		return fmt.Errorf("config: spec path is required (set spec.path or FIELDFLOW_SPEC_PATH)")
	}
	return nil
}

// BuildLogger constructs the process logger for the configured level.
func (c Config) BuildLogger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return nil, fmt.Errorf("config: invalid log level %q: %w", c.Log.Level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	return zcfg.Build()
}
