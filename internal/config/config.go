// Package config loads application configuration from environment
// variables (optionally via a .env file), the way the teacher's
// internal/config package does: .env first, then process environment,
// with typed accessors and documented defaults for every key in spec §6.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable the core reads from its environment.
type Config struct {
	DataDir string
	LogLevel string
	Pretty  bool

	CronEnabled            bool
	CronAlertIntervalMS     int64
	CronPortfolioIntervalMS int64
	CronDigestIntervalMS    int64
	CronStopLossIntervalMS  int64

	TradingDryRun            bool
	TradingStopLossCooldownMS int64

	HTTPMaxAttempts   int
	HTTPMinDelayMS    int64
	HTTPMaxDelayMS    int64
	HTTPJitter        float64
	HTTPBackoffMult   float64
	HTTPRetryMethods  []string
	HTTPRateDefaultN  int
	HTTPRateDefaultWindowMS int64

	MarketIndexStaleMS int64

	AlertPriceChangeWindowSecs int64
	AlertVolumeSpikeMult       float64

	WorkerPoolSize int

	HostRateOverridesPath string

	PolymarketGammaURL string
	PolymarketCLOBURL  string
	KalshiURL          string
	ManifoldURL        string
	HyperliquidURL     string
	BinanceURL         string
	BybitURL           string
	MEXCURL            string
	MetaculusURL       string
}

// getEnv returns the environment value for key, or fallback if unset/empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt(key string, fallback int) int {
	return int(getEnvInt64(key, int64(fallback)))
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

// Load reads configuration from .env (if present) then the process
// environment. Values are never required; every key has a spec-mandated
// default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:  getEnv("CORE_DATA_DIR", "./data"),
		LogLevel: getEnv("CORE_LOG_LEVEL", "info"),
		Pretty:   getEnvBool("CORE_LOG_PRETTY", false),

		CronEnabled:             getEnvBool("CRON_ENABLED", true),
		CronAlertIntervalMS:     getEnvInt64("CRON_ALERT_INTERVAL_MS", 30_000),
		CronPortfolioIntervalMS: getEnvInt64("CRON_PORTFOLIO_INTERVAL_MS", time.Hour.Milliseconds()),
		CronDigestIntervalMS:    getEnvInt64("CRON_DIGEST_INTERVAL_MS", 5*time.Minute.Milliseconds()),
		CronStopLossIntervalMS:  getEnvInt64("CRON_STOPLOSS_INTERVAL_MS", 2*time.Minute.Milliseconds()),

		TradingDryRun:             getEnvBool("TRADING_DRY_RUN", true),
		TradingStopLossCooldownMS: getEnvInt64("TRADING_STOPLOSS_COOLDOWN_MS", 10*time.Minute.Milliseconds()),

		HTTPMaxAttempts:         getEnvInt("HTTP_MAX_ATTEMPTS", 3),
		HTTPMinDelayMS:          getEnvInt64("HTTP_MIN_DELAY_MS", 500),
		HTTPMaxDelayMS:          getEnvInt64("HTTP_MAX_DELAY_MS", 30_000),
		HTTPJitter:              getEnvFloat("HTTP_JITTER", 0.1),
		HTTPBackoffMult:         getEnvFloat("HTTP_BACKOFF_MULT", 2.0),
		HTTPRetryMethods:        splitCSV(getEnv("HTTP_RETRY_METHODS", "GET,HEAD,OPTIONS")),
		HTTPRateDefaultN:        getEnvInt("HTTP_RATE_DEFAULT_N", 60),
		HTTPRateDefaultWindowMS: getEnvInt64("HTTP_RATE_DEFAULT_WINDOW_MS", time.Minute.Milliseconds()),

		MarketIndexStaleMS: getEnvInt64("MARKETINDEX_STALE_MS", 7*24*time.Hour.Milliseconds()),

		AlertPriceChangeWindowSecs: getEnvInt64("ALERT_PRICE_CHANGE_WINDOW_SECS", 600),
		AlertVolumeSpikeMult:       getEnvFloat("ALERT_VOLUME_SPIKE_MULT", 3.0),

		WorkerPoolSize: getEnvInt("CORE_WORKER_POOL_SIZE", 4),

		HostRateOverridesPath: getEnv("HTTP_HOST_RATE_OVERRIDES_PATH", ""),

		PolymarketGammaURL: getEnv("VENUE_POLYMARKET_GAMMA_URL", "https://gamma-api.polymarket.com"),
		PolymarketCLOBURL:  getEnv("VENUE_POLYMARKET_CLOB_URL", "https://clob.polymarket.com"),
		KalshiURL:          getEnv("VENUE_KALSHI_URL", "https://trading-api.kalshi.com"),
		ManifoldURL:        getEnv("VENUE_MANIFOLD_URL", "https://api.manifold.markets"),
		HyperliquidURL:     getEnv("VENUE_HYPERLIQUID_URL", "https://api.hyperliquid.xyz"),
		BinanceURL:         getEnv("VENUE_BINANCE_URL", "https://fapi.binance.com"),
		BybitURL:           getEnv("VENUE_BYBIT_URL", "https://api.bybit.com"),
		MEXCURL:            getEnv("VENUE_MEXC_URL", "https://contract.mexc.com"),
		MetaculusURL:       getEnv("VENUE_METACULUS_URL", "https://www.metaculus.com"),
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	return cfg, nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
