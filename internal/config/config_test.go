package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	t.Setenv("CORE_DATA_DIR", filepath.Join(t.TempDir(), "data"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.CronEnabled)
	assert.EqualValues(t, 30_000, cfg.CronAlertIntervalMS)
	assert.True(t, cfg.TradingDryRun)
	assert.Equal(t, 3, cfg.HTTPMaxAttempts)
	assert.Equal(t, []string{"GET", "HEAD", "OPTIONS"}, cfg.HTTPRetryMethods)
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, "https://gamma-api.polymarket.com", cfg.PolymarketGammaURL)
	assert.Equal(t, "https://trading-api.kalshi.com", cfg.KalshiURL)
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	t.Setenv("CORE_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("CRON_ALERT_INTERVAL_MS", "5000")
	t.Setenv("TRADING_DRY_RUN", "false")
	t.Setenv("HTTP_RETRY_METHODS", "get, post")
	t.Setenv("VENUE_KALSHI_URL", "https://example.test/kalshi")

	cfg, err := Load()
	require.NoError(t, err)

	assert.EqualValues(t, 5000, cfg.CronAlertIntervalMS)
	assert.False(t, cfg.TradingDryRun)
	assert.Equal(t, []string{"GET", "POST"}, cfg.HTTPRetryMethods)
	assert.Equal(t, "https://example.test/kalshi", cfg.KalshiURL)
}

func TestLoad_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	t.Setenv("CORE_DATA_DIR", dir)

	_, err := Load()
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
