// Package config loads runtime settings from .env, the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Load.
const (
	EnvConfigFile    = "DEEPFRAME_CONFIG"
	EnvDataDir       = "DEEPFRAME_DATA_DIR"
	EnvLogLevel      = "DEEPFRAME_LOG_LEVEL"
	EnvCacheSize     = "DEEPFRAME_CACHE_SIZE"
	EnvMaxConditions = "DEEPFRAME_MAX_CONDITIONS"
)

// Config holds the settings shared by the server and the CLI.
type Config struct {
	DataDir       string `yaml:"data_dir"`
	LogLevel      string `yaml:"log_level"`
	CacheSize     int    `yaml:"cache_size"`
	MaxConditions int    `yaml:"max_conditions"`
}

// Default returns the built-in settings.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".deepframe"),
		LogLevel:      "info",
		CacheSize:     128,
		MaxConditions: 10,
	}
}

// Load builds the configuration. A .env file in the working directory is
// applied to the environment first. The YAML file named by DEEPFRAME_CONFIG
// overrides the defaults and individual environment variables override the
// file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := strings.TrimSpace(os.Getenv(EnvConfigFile)); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.mergeEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if file.DataDir != "" {
		c.DataDir = file.DataDir
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.CacheSize != 0 {
		c.CacheSize = file.CacheSize
	}
	if file.MaxConditions != 0 {
		c.MaxConditions = file.MaxConditions
	}
	return nil
}

func (c *Config) mergeEnv() error {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		c.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	var err error
	if c.CacheSize, err = envInt(EnvCacheSize, c.CacheSize); err != nil {
		return err
	}
	if c.MaxConditions, err = envInt(EnvMaxConditions, c.MaxConditions); err != nil {
		return err
	}
	return nil
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s=%q is not an integer", name, raw)
	}
	return n, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.DataDir == "" {
		errs = append(errs, errors.New("config: data dir is required"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("config: log level: %w", err))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, fmt.Errorf("config: cache size must be positive, got %d", c.CacheSize))
	}
	if c.MaxConditions <= 0 {
		errs = append(errs, fmt.Errorf("config: max conditions must be positive, got %d", c.MaxConditions))
	}
	return errors.Join(errs...)
}
