// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/game"
	"github.com/spf13/viper"
)

// Config is the process configuration, read from the environment (and a .env
// file loaded by godotenv/autoload in main).
type Config struct {
	DevMode  bool   `mapstructure:"dev_mode"`
	Port     string `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	RedisAddr          string `mapstructure:"redis_addr"`
	RedisDB            int    `mapstructure:"redis_db"`
	HistorianQueueName string `mapstructure:"historian_queue_name"`
	DatabaseURL        string `mapstructure:"database_url"`

	// TokenExpireTime is "never", "0" or a Go duration.
	TokenExpireTime       string `mapstructure:"token_expire_time"`
	RequireReconnectToken bool   `mapstructure:"require_reconnect_token"`

	BotDelayMS       int           `mapstructure:"bot_delay_ms"`
	LastClueDelayMS  int           `mapstructure:"last_clue_delay_ms"`
	// DisconnectGrace is how long a disconnected player keeps their seat before
	// being removed. Zero keeps them until they leave explicitly.
	DisconnectGrace  time.Duration `mapstructure:"disconnect_grace"`
	WSRatePerSec     float64       `mapstructure:"ws_rate_per_sec"`
	WSRateBurst      int           `mapstructure:"ws_rate_burst"`
	HistorianBatch   int           `mapstructure:"historian_batch_size"`
	HistorianFlushMS int           `mapstructure:"historian_flush_ms"`
	// GameInactivity is how long the historian waits for events before it
	// marks a game abandoned. Zero disables the sweep.
	GameInactivity time.Duration `mapstructure:"game_inactivity_timeout"`
}

var defaults = map[string]interface{}{
	"dev_mode":                false,
	"port":                    "3001",
	"log_level":               "info",
	"log_file":                "",
	"redis_addr":              "",
	"redis_db":                0,
	"historian_queue_name":    "crystal:round-events",
	"database_url":            "",
	"token_expire_time":       "24h",
	"require_reconnect_token": false,
	"bot_delay_ms":            2000,
	"last_clue_delay_ms":      1000,
	"disconnect_grace":        "60s",
	"ws_rate_per_sec":         10.0,
	"ws_rate_burst":           20,
	"historian_batch_size":    100,
	"historian_flush_ms":      500,
	"game_inactivity_timeout": "10m",
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if _, err := cfg.TokenExpiry(); err != nil {
		return nil, err
	}
	if cfg.WSRatePerSec <= 0 || cfg.WSRateBurst <= 0 {
		return nil, fmt.Errorf("WS_RATE_PER_SEC and WS_RATE_BURST must be positive")
	}
	if cfg.HistorianBatch <= 0 {
		cfg.HistorianBatch = 1
	}
	return &cfg, nil
}

// Durations is the phase duration profile for the current mode.
func (c *Config) Durations() game.Durations {
	if c.DevMode {
		return game.DevDurations()
	}
	return game.NormalDurations()
}

// MinPlayers is 1 in dev mode, 3 otherwise.
func (c *Config) MinPlayers() int {
	if c.DevMode {
		return 1
	}
	return 3
}

// TokenExpiry parses TokenExpireTime. Zero means tokens never expire.
func (c *Config) TokenExpiry() (time.Duration, error) {
	s := strings.TrimSpace(c.TokenExpireTime)
	if s == "" || s == "never" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time %q: %w", s, err)
	}
	return d, nil
}

func (c *Config) BotDelay() time.Duration {
	return time.Duration(c.BotDelayMS) * time.Millisecond
}

func (c *Config) LastClueDelay() time.Duration {
	return time.Duration(c.LastClueDelayMS) * time.Millisecond
}

func (c *Config) HistorianFlushInterval() time.Duration {
	return time.Duration(c.HistorianFlushMS) * time.Millisecond
}
