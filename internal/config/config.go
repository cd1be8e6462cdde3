// Package config provides configuration management for the pricing engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "optpricer/internal/errors"
	"optpricer/internal/logging"
	"optpricer/internal/pricing"
)

// Config holds all application configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Market  MarketConfig  `mapstructure:"market"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	UI      UIConfig      `mapstructure:"ui"`
}

// EngineConfig holds scenario engine configuration.
type EngineConfig struct {
	Workers  int      `mapstructure:"workers" validate:"gte=0,lte=1024"` // 0 = one per CPU
	Measures []string `mapstructure:"measures"`
}

// MarketConfig holds market data defaults.
type MarketConfig struct {
	DefaultRate float64 `mapstructure:"default_rate" validate:"gte=-1,lte=1"`
}

// StoreConfig holds the market data store configuration.
type StoreConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path" validate:"required_if=File true"`
	MaxSize    int    `mapstructure:"max_size" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAge     int    `mapstructure:"max_age" validate:"gte=0"`
}

// MetricsConfig holds metrics export configuration.
type MetricsConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	TextfilePath string `mapstructure:"textfile_path" validate:"required_if=Enabled true"`
}

// UIConfig holds output configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format" validate:"required"`
	Precision    int    `mapstructure:"precision" validate:"gte=0,lte=12"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/optpricer"
	}
	return filepath.Join(home, ".config", "optpricer")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is created from the template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(target)
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.measures", []string{"price", "delta", "gamma", "exposure"})
	v.SetDefault("market.default_rate", 0.0)
	v.SetDefault("store.path", filepath.Join(configDir, "optpricer.db"))
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", false)
	v.SetDefault("logging.file_path", filepath.Join(configDir, "logs", "optpricer.log"))
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 7)
	v.SetDefault("logging.max_age", 30)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile_path", filepath.Join(configDir, "optpricer.prom"))
	v.SetDefault("ui.color_enabled", true)
	v.SetDefault("ui.date_format", "2006-01-02")
	v.SetDefault("ui.precision", 4)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPTPRICER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.Workers = n
		}
	}
	if v := os.Getenv("OPTPRICER_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("OPTPRICER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, err.Error())
	}
	if _, err := pricing.ParseMeasures(c.Engine.Measures); err != nil {
		return apperrors.Wrap(apperrors.ErrConfigInvalid, err.Error())
	}
	return nil
}

// DefaultMeasures returns the configured measures.
func (c *Config) DefaultMeasures() []pricing.Measure {
	ms, err := pricing.ParseMeasures(c.Engine.Measures)
	if err != nil {
		return pricing.DefaultMeasures
	}
	return ms
}

// LogConfig converts the logging section for the logging package.
func (c *Config) LogConfig() logging.LogConfig {
	return logging.LogConfig{
		Level:      c.Logging.Level,
		Console:    true,
		File:       c.Logging.File,
		FilePath:   c.Logging.FilePath,
		MaxSize:    c.Logging.MaxSize,
		MaxBackups: c.Logging.MaxBackups,
		MaxAge:     c.Logging.MaxAge,
	}
}
