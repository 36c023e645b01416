package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Papertrader Configuration

[server]
# HTTP listen port
port = 8080
read_timeout = "15s"
write_timeout = "30s"
shutdown_timeout = "10s"

[engine]
# How often the sweep re-marks positions and applies close conditions
sweep_interval = "30s"
# Minimum position age before close signals are consulted
min_signal_age = "1h"
# Hard position age limit; "0s" disables it
max_position_age = "0s"
# Number of recent trades returned in the status payload
history_limit = 50

[market]
# Random walk seed; 0 seeds from the clock
seed = 0

[market.initial_balances]
USD = 10000.0
BTC = 0.5
ETH = 3.2
SOL = 10.0
ADA = 1000.0
DOT = 50.0

[oracle]
# API key is usually supplied via OPENAI_API_KEY instead
api_key = ""
model = "gpt-4o-mini"
timeout = "10s"

[logging]
# Levels: trace, debug, info, warn, error
level = "info"
console = true
file = false
`

// EnsureConfigDir creates the config directory and writes the commented
// default config.toml on first run. Existing files are never touched.
func EnsureConfigDir(configDir string) error {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := os.WriteFile(configPath, []byte(configTemplate), 0644); err != nil {
			return fmt.Errorf("writing default config: %w", err)
		}
	}
	return nil
}
