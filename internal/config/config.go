// Package config provides configuration management for the paper trading server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"papertrader/internal/errors"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Market  MarketConfig  `mapstructure:"market"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// EngineConfig holds trade lifecycle engine configuration.
type EngineConfig struct {
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	MinSignalAge   time.Duration `mapstructure:"min_signal_age"`
	MaxPositionAge time.Duration `mapstructure:"max_position_age"` // 0 disables the hard age policy
	HistoryLimit   int           `mapstructure:"history_limit"`
}

// MarketConfig holds the simulated price feed configuration.
type MarketConfig struct {
	InitialBalances map[string]float64 `mapstructure:"initial_balances"`
	Seed            int64              `mapstructure:"seed"` // 0 seeds from the clock
}

// OracleConfig holds prediction oracle configuration.
type OracleConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Console  bool   `mapstructure:"console"`
	File     bool   `mapstructure:"file"`
	FilePath string `mapstructure:"file_path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/papertrader"
	}
	return filepath.Join(home, ".config", "papertrader")
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			SweepInterval:  30 * time.Second,
			MinSignalAge:   time.Hour,
			MaxPositionAge: 0,
			HistoryLimit:   50,
		},
		Market: MarketConfig{
			InitialBalances: map[string]float64{
				"USD": 10000,
				"BTC": 0.5,
				"ETH": 3.2,
				"SOL": 10,
				"ADA": 1000,
				"DOT": 50,
			},
		},
		Oracle: OracleConfig{
			Model:   "gpt-4o-mini",
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from the specified directory, falling back to
// defaults when no config file exists. If configDir is empty, uses the
// default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "loading config.toml")
		}
	} else if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "parsing config.toml")
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Oracle.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}
	if v := os.Getenv("PAPERTRADER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("PAPERTRADER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Engine.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive")
	}
	if c.Engine.MinSignalAge < 0 {
		return fmt.Errorf("min_signal_age must be non-negative")
	}
	if c.Engine.MaxPositionAge < 0 {
		return fmt.Errorf("max_position_age must be non-negative")
	}
	if c.Engine.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive")
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("oracle timeout must be positive")
	}
	if cash, ok := c.Market.InitialBalances["USD"]; !ok || cash < 0 {
		return fmt.Errorf("initial_balances must include a non-negative USD balance")
	}
	return nil
}

// OracleEnabled reports whether an oracle API key is configured.
func (c *Config) OracleEnabled() bool {
	return c.Oracle.APIKey != ""
}
