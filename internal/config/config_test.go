package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRequiresWalletWhenTradingEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet")

	cfg.Wallet.PrivateKey = "deadbeef"
	require.NoError(t, cfg.Validate())
}

func TestValidateRequiresListingsProvider(t *testing.T) {
	cfg := Defaults()
	cfg.Providers.CoinCap.Enabled = false
	cfg.Providers.CoinMarketCap.Enabled = false
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "coincap or coinmarketcap")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "scan"

[pipeline]
scan_interval = "5m"

[trading]
stop_loss_pct = 30.0
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "scan", cfg.Mode)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.ScanInterval.Duration)
	assert.InDelta(t, 30.0, cfg.Trading.StopLossPct, 1e-9)
	// Untouched values keep their defaults.
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.InDelta(t, 50.0, cfg.Trading.ProfitTargetPct, 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCOUT_MODE", "monitor")
	t.Setenv("SCOUT_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("SCOUT_TRADING_ENABLED", "true")
	t.Setenv("SCOUT_PIPELINE_SCAN_INTERVAL", "90s")
	t.Setenv("SCOUT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.True(t, cfg.Trading.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.ScanInterval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "deadbeef"
	cfg.Postgres.Password = "pgpass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Providers.Explorers = []ExplorerEndpoint{{Chain: "eth", BaseURL: "https://api.etherscan.io", ApiKey: "abc"}}

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Wallet.PrivateKey)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Providers.Explorers[0].ApiKey)
	// Original untouched.
	assert.Equal(t, "deadbeef", cfg.Wallet.PrivateKey)
	assert.Equal(t, "abc", cfg.Providers.Explorers[0].ApiKey)
}
