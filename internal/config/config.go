package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// EnvConfigPath names an optional YAML file; without it only the environment is read.
const EnvConfigPath = "TICTACTOE_CONFIG"

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	LogLevel        string        `yaml:"log-level" env:"TICTACTOE_LOG_LEVEL" env-default:"info"`
	TurnTimeout     time.Duration `yaml:"turn-timeout" env:"TICTACTOE_TURN_TIMEOUT" env-default:"0s"`
	MaxInvalidMoves int           `yaml:"max-invalid-moves" env:"TICTACTOE_MAX_INVALID_MOVES" env-default:"0"`
	MaxPayloadBytes int           `yaml:"max-payload-bytes" env:"TICTACTOE_MAX_PAYLOAD_BYTES" env-default:"65536"`
	HTTPPort        string        `yaml:"http-port" env:"TICTACTOE_HTTP_PORT" env-default:""`
	Redis           Redis         `yaml:"redis"`
}

type Redis struct {
	Host string `yaml:"host" env:"TICTACTOE_REDIS_HOST" env-default:""`
	Port string `yaml:"port" env:"TICTACTOE_REDIS_PORT" env-default:"6379"`
}

// Load - reads path (YAML) when given, otherwise the environment alone.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if path == "" {
		err = cleanenv.ReadEnv(config)
	} else {
		err = cleanenv.ReadConfig(path, config)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (that *Config) Validate() error {
	if that.TurnTimeout < 0 {
		return fmt.Errorf("%w: turn-timeout must not be negative", ErrInvalidConfig)
	}

	if that.MaxInvalidMoves < 0 {
		return fmt.Errorf("%w: max-invalid-moves must not be negative", ErrInvalidConfig)
	}

	if that.MaxPayloadBytes <= 0 {
		return fmt.Errorf("%w: max-payload-bytes must be positive", ErrInvalidConfig)
	}

	if _, ok := parseLevel(that.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log-level %q", ErrInvalidConfig, that.LogLevel)
	}

	return nil
}

// SlogLevel maps log-level onto slog, defaulting to info.
func (that *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(that.LogLevel)
	return level
}

// GetRedisAddr - empty when no redis host is configured.
func (that *Redis) GetRedisAddr() string {
	if that.Host == "" {
		return ""
	}

	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

func parseLevel(raw string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, true
	case "", "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
