// Package main is the entry point for the prediction-market alerting
// and portfolio core: it loads configuration, wires every engine behind
// the core's capability struct, starts the Scheduler, and blocks until
// a shutdown signal arrives (spec §4.J, §6).
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/config"
	"github.com/marketwatch/agentcore/internal/core"
	"github.com/marketwatch/agentcore/internal/httpfabric"
	"github.com/marketwatch/agentcore/internal/notifier"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
	"github.com/marketwatch/agentcore/pkg/logger"
)

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New(logger.Config{Level: "info", Pretty: true})
		fallback.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})
	log.Info().Str("version", getEnv("VERSION", "dev")).Msg("starting agent core")

	db, err := store.Open(store.Config{Path: filepath.Join(cfg.DataDir, "agentcore.db")})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	clk := clock.Real{}

	httpCfg := httpfabric.DefaultConfig()
	overrides, err := config.LoadHostRateOverrides(cfg.HostRateOverridesPath)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.HostRateOverridesPath).Msg("failed to load host rate overrides, using defaults only")
	} else if overrides != nil {
		httpCfg.PerHostOverride = overrides
	}

	fab := httpfabric.New(httpCfg, clk, log)
	registry := venues.NewRegistry(fab, venues.Endpoints{
		PolymarketGammaURL: cfg.PolymarketGammaURL,
		PolymarketCLOBURL:  cfg.PolymarketCLOBURL,
		KalshiURL:          cfg.KalshiURL,
		ManifoldURL:        cfg.ManifoldURL,
		HyperliquidURL:     cfg.HyperliquidURL,
		BinanceURL:         cfg.BinanceURL,
		BybitURL:           cfg.BybitURL,
		MEXCURL:            cfg.MEXCURL,
		MetaculusURL:       cfg.MetaculusURL,
	})

	sender := core.NewLogSender(log)
	notify := notifier.New(db, sender, log)
	creds := core.NewEnvCredentialResolver()

	c := core.New(cfg, core.Capabilities{
		Store:    db,
		Fabric:   fab,
		Venues:   registry,
		Notifier: notify,
		Clock:    clk,
		Log:      log,
	}, creds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if status := c.Health(ctx); !status.OK {
		log.Fatal().Str("detail", status.Detail).Msg("store failed readiness check")
	}

	if !cfg.CronEnabled {
		log.Warn().Msg("CRON_ENABLED=false, scheduler will not start; engines are wired but idle")
	} else if err := c.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	} else {
		log.Info().Msg("scheduler started")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, draining")
	cancel()
	if cfg.CronEnabled {
		c.Stop()
	}
	log.Info().Msg("agent core stopped")
}
