package server

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the serve-mode configuration.
type Config struct {
	Host    string    `koanf:"host"`
	Port    int       `koanf:"port"`
	DataDir string    `koanf:"data_dir"`
	Log     LogConfig `koanf:"log"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json|console
}

func DefaultConfig() *Config {
	return &Config{
		Host:    "localhost",
		Port:    5050,
		DataDir: "~/.weekboard",
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

// LoadConfig layers, highest precedence last: defaults, the YAML file at
// configPath (skipped when absent), then WEEKBOARD_* environment variables
// (WEEKBOARD_PORT, WEEKBOARD_DATA_DIR, WEEKBOARD_LOG_LEVEL, ...).
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("WEEKBOARD_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

// envKey maps WEEKBOARD_LOG_LEVEL -> log.level, WEEKBOARD_DATA_DIR ->
// data_dir, and so on.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "WEEKBOARD_"))
	switch s {
	case "log_level":
		return "log.level"
	case "log_format":
		return "log.format"
	default:
		return s
	}
}

// NewLogger builds the zap logger the server runs with.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}
	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("log format must be 'json' or 'console', got %q", cfg.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
