// Package core wires every engine behind a single capability struct and
// drives the Scheduler's dispatch (spec §4.J, §9 "prefer dependency
// injection via an explicit capability struct passed to each engine;
// avoid back-pointers"). Grounded on the teacher's cmd/server/main.go
// wiring order (config -> logger -> dependencies -> lifecycle ->
// signal handling) and its internal/di constructor-injection package.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/alertengine"
	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/config"
	"github.com/marketwatch/agentcore/internal/digest"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/httpfabric"
	"github.com/marketwatch/agentcore/internal/marketindex"
	"github.com/marketwatch/agentcore/internal/notifier"
	"github.com/marketwatch/agentcore/internal/portfoliosync"
	"github.com/marketwatch/agentcore/internal/scheduler"
	"github.com/marketwatch/agentcore/internal/stoploss"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
)

// drainTimeout bounds how long Stop waits for in-flight jobs before
// returning (spec §4.J: "waits up to a drain timeout for in-flight jobs").
const drainTimeout = 30 * time.Second

// Capabilities is the explicit dependency set every engine is
// constructed from; nothing in this package holds a reference back to
// Core itself.
type Capabilities struct {
	Store    *store.DB
	Fabric   *httpfabric.Fabric
	Venues   venues.Registry
	Notifier *notifier.Notifier
	Clock    clock.Clock
	Log      zerolog.Logger
}

// Core owns every scheduled engine and the Scheduler that drives them.
type Core struct {
	caps Capabilities
	log  zerolog.Logger

	alerts    *alertengine.Engine
	portfolio *portfoliosync.Engine
	stopLoss  *stoploss.Engine
	digest    *digest.Engine
	index     *marketindex.Engine

	scheduler *scheduler.Scheduler
}

// New builds every engine from cfg and caps and wires the Scheduler's
// Dispatcher to route each payload kind to its engine (spec §3 CronJob
// payload tagged union).
func New(cfg *config.Config, caps Capabilities, creds venues.CredentialResolver) *Core {
	c := &Core{
		caps: caps,
		log:  caps.Log.With().Str("component", "core").Logger(),
	}

	c.alerts = alertengine.New(caps.Store, caps.Venues, caps.Notifier, caps.Clock, caps.Log, alertengine.Config{
		DefaultTimeWindowSecs:  cfg.AlertPriceChangeWindowSecs,
		DefaultVolumeSpikeMult: cfg.AlertVolumeSpikeMult,
	})
	c.portfolio = portfoliosync.New(caps.Store, caps.Venues, creds, caps.Clock, caps.Log, portfoliosync.Config{
		WorkerPoolSize: cfg.WorkerPoolSize,
	})
	c.stopLoss = stoploss.New(caps.Store, caps.Venues, creds, caps.Notifier, caps.Clock, caps.Log, stoploss.Config{
		DryRun:         cfg.TradingDryRun,
		CooldownMS:     cfg.TradingStopLossCooldownMS,
		WorkerPoolSize: cfg.WorkerPoolSize,
	})
	c.digest = digest.New(caps.Store, caps.Notifier, caps.Clock, caps.Log)
	c.index = marketindex.NewEngine(caps.Store, caps.Venues, nil, caps.Clock, caps.Log)

	c.scheduler = scheduler.New(caps.Store, c, caps.Clock, caps.Log, scheduler.DefaultIntervalsMS{
		AlertScanMS:     cfg.CronAlertIntervalMS,
		PortfolioSyncMS: cfg.CronPortfolioIntervalMS,
		DailyDigestMS:   cfg.CronDigestIntervalMS,
		StopLossScanMS:  cfg.CronStopLossIntervalMS,
	})

	return c
}

// Dispatch implements scheduler.Dispatcher, routing each CronJob's
// payload kind to the engine that owns it. Unknown kinds are
// forward-compatible no-ops (spec §7).
func (c *Core) Dispatch(ctx context.Context, job domain.CronJob) error {
	switch job.Payload.Kind {
	case domain.PayloadAlertScan:
		return c.alerts.Scan(ctx)
	case domain.PayloadAlertSingle:
		return c.alerts.EvaluateByID(ctx, job.Payload.AlertID)
	case domain.PayloadPortfolioSync:
		return c.portfolio.Sync(ctx)
	case domain.PayloadStopLossScan:
		return c.stopLoss.Scan(ctx)
	case domain.PayloadDailyDigest:
		return c.digest.Run(ctx)
	case domain.PayloadMarketCheck:
		return c.dispatchMarketCheck(ctx, job.Payload)
	case domain.PayloadAgentTurn, domain.PayloadSystemEvent:
		c.log.Info().Str("kind", string(job.Payload.Kind)).Msg("payload kind has no core-side handler, skipped")
		return nil
	default:
		c.log.Warn().Str("kind", string(job.Payload.Kind)).Msg("unknown payload kind, treated as no-op")
		return nil
	}
}

func (c *Core) dispatchMarketCheck(ctx context.Context, p domain.Payload) error {
	if p.Platform == "" {
		return fmt.Errorf("marketCheck payload missing platform")
	}
	_, err := c.index.Sync(ctx, marketindex.SyncOptions{Platforms: []domain.Venue{p.Platform}})
	return err
}

// Start bootstraps default jobs and begins the Scheduler's timer and
// catch-up loops (spec §4.A step 2, §4.E).
func (c *Core) Start(ctx context.Context) error {
	return c.scheduler.Start(ctx)
}

// Run starts the Scheduler, blocks until ctx is cancelled, then drains
// and stops it before returning (spec §6: "the core exposes a Run(ctx)
// returning an error"). Start/Stop remain available separately for
// callers that need the signal-handling window between them, such as
// cmd/agent's own readiness logging.
func (c *Core) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	c.Stop()
	return nil
}

// Stop cancels timers and waits up to drainTimeout for in-flight jobs
// before returning (spec §4.J).
func (c *Core) Stop() {
	done := make(chan struct{})
	go func() {
		c.scheduler.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		c.log.Warn().Dur("timeout", drainTimeout).Msg("scheduler stop exceeded drain timeout")
	}
}

// MarketIndex exposes the ingestion engine for on-demand search/sync
// calls from a session or agent layer outside this package (spec §9:
// "MarketIndex... is consulted by higher layers on demand").
func (c *Core) MarketIndex() *marketindex.Engine { return c.index }

// Health reports whether the store is reachable and structurally
// intact, for an operator's readiness probe.
func (c *Core) Health(ctx context.Context) store.HealthStatus {
	return c.caps.Store.Health(ctx)
}
