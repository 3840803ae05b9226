package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Log       LogConfig       `yaml:"log"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	Feed      FeedConfig      `yaml:"feed"`
	Poller    PollerConfig    `yaml:"poller"`
	Selection SelectionConfig `yaml:"selection"`
	Health    HealthConfig    `yaml:"health"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type LogConfig struct {
	Level string `yaml:"level"` // DEBUG, INFO, WARN, ERROR (default: INFO)
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // mirror key lifetime (default: 5m)
}

type FeedConfig struct {
	BaseURL   string            `yaml:"base_url"`
	MirrorURL string            `yaml:"mirror_url"` // Mirror page to resolve the actual base URL
	UserAgent string            `yaml:"user_agent"`
	Timeout   time.Duration     `yaml:"timeout"`
	Headers   map[string]string `yaml:"headers"`
	Version   string            `yaml:"version"`
}

type PollerConfig struct {
	Sports       []string      `yaml:"sports"`        // e.g. ["football", "basketball"]
	Buckets      []string      `yaml:"buckets"`       // e.g. ["live", "today", "early"]
	LiveInterval time.Duration `yaml:"live_interval"` // default: 4s
	LineInterval time.Duration `yaml:"line_interval"` // default: 30s for today/early
}

type SelectionConfig struct {
	DefaultLimit int `yaml:"default_limit"` // 0 = return all eligible accounts
}

type HealthConfig struct {
	Addr string `yaml:"addr"` // e.g. ":8090"
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}
