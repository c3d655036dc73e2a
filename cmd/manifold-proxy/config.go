package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Sternrassler/manifold-client/pkg/client"
	"github.com/Sternrassler/manifold-client/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Config is the proxy configuration. Values are read from an optional YAML
// file and then overridden by environment variables.
type Config struct {
	Port      string `yaml:"port"`
	RedisAddr string `yaml:"redis_addr"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`

	Manifold struct {
		BaseURL           string        `yaml:"base_url"`
		UserAgent         string        `yaml:"user_agent"`
		APIKey            string        `yaml:"api_key"`
		Timeout           time.Duration `yaml:"timeout"`
		MaxConcurrency    int           `yaml:"max_concurrency"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
	} `yaml:"manifold"`
}

// defaultConfig returns the configuration used when nothing is set.
func defaultConfig() Config {
	clientCfg := client.DefaultConfig()

	var cfg Config
	cfg.Port = "8080"
	cfg.Log.Level = string(logging.LevelInfo)
	cfg.Manifold.BaseURL = clientCfg.BaseURL
	cfg.Manifold.UserAgent = clientCfg.UserAgent
	cfg.Manifold.Timeout = clientCfg.Timeout
	cfg.Manifold.MaxConcurrency = clientCfg.MaxConcurrency
	cfg.Manifold.RequestsPerMinute = clientCfg.RequestsPerMinute
	return cfg
}

// loadConfig reads path (if non-empty) over the defaults and applies
// environment overrides.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.RedisAddr = getEnv("REDIS_URL", cfg.RedisAddr)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Manifold.BaseURL = getEnv("MANIFOLD_BASE_URL", cfg.Manifold.BaseURL)
	cfg.Manifold.UserAgent = getEnv("USER_AGENT", cfg.Manifold.UserAgent)
	cfg.Manifold.APIKey = getEnv("MANIFOLD_API_KEY", cfg.Manifold.APIKey)

	if v := os.Getenv("LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("LOG_PRETTY: %w", err)
		}
		cfg.Log.Pretty = pretty
	}
	if v := os.Getenv("MANIFOLD_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MANIFOLD_TIMEOUT: %w", err)
		}
		cfg.Manifold.Timeout = timeout
	}
	if v := os.Getenv("MANIFOLD_MAX_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MANIFOLD_MAX_CONCURRENCY: %w", err)
		}
		cfg.Manifold.MaxConcurrency = n
	}
	if v := os.Getenv("MANIFOLD_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MANIFOLD_REQUESTS_PER_MINUTE: %w", err)
		}
		cfg.Manifold.RequestsPerMinute = n
	}
	return nil
}

// clientConfig converts the proxy configuration to a client configuration.
func (c Config) clientConfig() client.Config {
	return client.Config{
		BaseURL:           c.Manifold.BaseURL,
		UserAgent:         c.Manifold.UserAgent,
		APIKey:            c.Manifold.APIKey,
		Timeout:           c.Manifold.Timeout,
		MaxConcurrency:    c.Manifold.MaxConcurrency,
		RequestsPerMinute: c.Manifold.RequestsPerMinute,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
