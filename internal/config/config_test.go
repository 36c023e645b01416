package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Engine.SweepInterval)
	assert.Equal(t, time.Hour, cfg.Engine.MinSignalAge)
	assert.Zero(t, cfg.Engine.MaxPositionAge)
	assert.Equal(t, 50, cfg.Engine.HistoryLimit)
	assert.Equal(t, 10000.0, cfg.Market.InitialBalances["USD"])
	assert.Equal(t, "gpt-4o-mini", cfg.Oracle.Model)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Port, cfg.Server.Port)
}

func TestLoad_TOMLOverrides(t *testing.T) {
	dir := t.TempDir()
	toml := `
[server]
port = 9090

[engine]
sweep_interval = "10s"
history_limit = 20

[oracle]
model = "gpt-4o"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Engine.SweepInterval)
	assert.Equal(t, 20, cfg.Engine.HistoryLimit)
	assert.Equal(t, "gpt-4o", cfg.Oracle.Model)
	// Untouched sections keep defaults.
	assert.Equal(t, time.Hour, cfg.Engine.MinSignalAge)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PAPERTRADER_PORT", "7070")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Oracle.APIKey)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.True(t, cfg.OracleEnabled())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Engine.SweepInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Engine.HistoryLimit = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	delete(cfg.Market.InitialBalances, "USD")
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Oracle.Timeout = 0
	assert.Error(t, cfg.Validate())
}

func TestOracleEnabled(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.OracleEnabled())
	cfg.Oracle.APIKey = "sk-x"
	assert.True(t, cfg.OracleEnabled())
}
