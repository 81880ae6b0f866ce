package config

import (
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig    `koanf:"server"`
	Database DatabaseConfig  `koanf:"database"`
	Cache    CacheConfig     `koanf:"cache"`
	Relay    RelayConfig     `koanf:"relay"`
	Channels []ChannelConfig `koanf:"channels"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type DatabaseConfig struct {
	Driver string `koanf:"driver"` // sqlite, postgres
	DSN    string `koanf:"dsn"`
}

type CacheConfig struct {
	TTL      time.Duration `koanf:"ttl"`
	RedisURL string        `koanf:"redis_url"` // empty selects the in-memory cache
}

type RelayConfig struct {
	// HopURL is the optional forwarding hop. When set, upstream calls go
	// through the hop instead of directly to the provider.
	HopURL    string `koanf:"hop_url"`
	HopSecret string `koanf:"hop_secret"`
	// CompletionRatio weights completion tokens against prompt tokens when
	// computing billed quota.
	CompletionRatio int `koanf:"completion_ratio"`
	// EstimateMissingUsage enables tokenizer-based prompt estimation when the
	// upstream response carries no usage object.
	EstimateMissingUsage bool `koanf:"estimate_missing_usage"`
}

type ChannelConfig struct {
	Name     string            `koanf:"name"`
	Type     string            `koanf:"type"`
	Key      string            `koanf:"key"`
	BaseURL  string            `koanf:"base_url"`
	Models   string            `koanf:"models"`
	ModelMap map[string]string `koanf:"model_map"`
	Priority int               `koanf:"priority"`
	Weight   int               `koanf:"weight"`
	Disabled bool              `koanf:"disabled"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the YAML config file if present, then applies NAW_-prefixed
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = "config.yaml"
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := k.Load(env.Provider("NAW_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "NAW_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("database.driver") {
		k.Set("database.driver", "sqlite")
	}
	if !k.Exists("database.dsn") {
		k.Set("database.dsn", "./data/gateway.db")
	}
	if !k.Exists("cache.ttl") {
		k.Set("cache.ttl", "60s")
	}
	if !k.Exists("relay.completion_ratio") {
		k.Set("relay.completion_ratio", 3)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Relay.HopSecret = substituteEnvVars(cfg.Relay.HopSecret)
	for i := range cfg.Channels {
		cfg.Channels[i].Key = substituteEnvVars(cfg.Channels[i].Key)
	}

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
