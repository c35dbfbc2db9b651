// Package alertengine evaluates every active Alert against a cached
// market snapshot on each scheduled scan (spec §4.F). Grounded on the
// teacher's service-with-injected-capabilities idiom
// (aristath-sentinel/internal/di/services.go constructor-injection
// pattern), applied to prediction-market price conditions instead of
// equity scoring.
package alertengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/notifier"
	"github.com/marketwatch/agentcore/internal/numeric"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
)

const (
	defaultTimeWindowSecs  = 600
	defaultVolumeSpikeMult = 3.0
)

// Config carries the env-driven defaults (spec §6:
// ALERT_PRICE_CHANGE_WINDOW_SECS, ALERT_VOLUME_SPIKE_MULT).
type Config struct {
	DefaultTimeWindowSecs  int64
	DefaultVolumeSpikeMult float64
}

func (c Config) withDefaults() Config {
	if c.DefaultTimeWindowSecs <= 0 {
		c.DefaultTimeWindowSecs = defaultTimeWindowSecs
	}
	if c.DefaultVolumeSpikeMult <= 0 {
		c.DefaultVolumeSpikeMult = defaultVolumeSpikeMult
	}
	return c
}

// Engine runs the per-scan condition evaluation.
type Engine struct {
	db       *store.DB
	registry venues.Registry
	notify   *notifier.Notifier
	clock    clock.Clock
	log      zerolog.Logger
	cfg      Config
}

func New(db *store.DB, registry venues.Registry, notify *notifier.Notifier, clk clock.Clock, log zerolog.Logger, cfg Config) *Engine {
	return &Engine{db: db, registry: registry, notify: notify, clock: clk, log: log.With().Str("component", "alertengine").Logger(), cfg: cfg.withDefaults()}
}

// Scan evaluates every active alert once. Per-alert errors are logged
// and do not abort the scan (spec §4.F).
func (e *Engine) Scan(ctx context.Context) error {
	alerts, err := e.db.ListActiveAlerts(ctx)
	if err != nil {
		return fmt.Errorf("list active alerts: %w", err)
	}

	for _, a := range alerts {
		if err := e.evaluateOne(ctx, a); err != nil {
			e.log.Warn().Err(err).Str("alert_id", a.ID).Msg("alert evaluation failed")
		}
	}
	return nil
}

// EvaluateByID evaluates a single alert, for the CronJob AlertSingle
// payload (spec §3 CronJob.payload tagged union).
func (e *Engine) EvaluateByID(ctx context.Context, alertID string) error {
	a, err := e.db.GetAlert(ctx, alertID)
	if err != nil {
		return fmt.Errorf("get alert %s: %w", alertID, err)
	}
	return e.evaluateOne(ctx, a)
}

func (e *Engine) evaluateOne(ctx context.Context, a domain.Alert) error {
	adapter, ok := e.registry.Get(a.Platform)
	if !ok {
		return fmt.Errorf("no adapter for platform %s", a.Platform)
	}

	market, err := adapter.GetMarket(ctx, a.MarketID)
	if err != nil {
		return fmt.Errorf("fetch market: %w", err)
	}

	outcome, ok := market.PrimaryOutcome()
	if !ok || math.IsNaN(outcome.Price) || math.IsInf(outcome.Price, 0) {
		return nil
	}

	windowSecs := a.Condition.TimeWindowSecs
	if windowSecs <= 0 {
		windowSecs = e.cfg.DefaultTimeWindowSecs
	}

	prevMarket, hasPrev := e.lookupPrevious(ctx, a.Platform, a.MarketID, windowSecs)

	var prevPrice float64
	havePrevPrice := false
	if hasPrev {
		if prevOutcome, ok := prevMarket.PrimaryOutcome(); ok {
			prevPrice = prevOutcome.Price
			havePrevPrice = true
		}
	}
	if !havePrevPrice && outcome.PreviousPrice != nil {
		prevPrice = *outcome.PreviousPrice
		havePrevPrice = true
	}

	var prevVolume float64
	if hasPrev && prevMarket.Volume24h != nil {
		prevVolume = *prevMarket.Volume24h
	}
	var currentVolume float64
	if market.Volume24h != nil {
		currentVolume = *market.Volume24h
	}

	triggered := e.evaluateCondition(a.Condition, outcome.Price, prevPrice, havePrevPrice, currentVolume, prevVolume)

	if err := e.db.UpsertMarketCache(ctx, domain.Market{
		Platform: market.Platform, MarketID: market.MarketID, Question: market.Question,
		Outcomes: market.Outcomes, Volume24h: market.Volume24h, CachedAt: e.clock.Now().UnixMilli(),
	}); err != nil {
		return fmt.Errorf("write market cache: %w", err)
	}

	if !triggered {
		return nil
	}

	a.Triggered = true
	if err := e.db.UpsertAlert(ctx, a); err != nil {
		return fmt.Errorf("mark alert triggered: %w", err)
	}

	user, err := e.db.GetUser(ctx, a.UserID)
	if err != nil {
		return fmt.Errorf("load alert owner: %w", err)
	}

	text := formatTriggerMessage(a, market, outcome.Price, prevPrice, havePrevPrice)
	if err := e.notify.Notify(ctx, user, a.Channel, a.ChatID, text); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (e *Engine) lookupPrevious(ctx context.Context, platform domain.Venue, marketID string, windowSecs int64) (domain.Market, bool) {
	cached, err := e.db.GetMarketCache(ctx, platform, marketID)
	if err != nil {
		return domain.Market{}, false
	}
	age := e.clock.Now().Sub(time.UnixMilli(cached.CachedAt))
	if age > time.Duration(windowSecs)*time.Second {
		return domain.Market{}, false
	}
	return cached, true
}

func (e *Engine) evaluateCondition(cond domain.AlertCondition, current, prev float64, havePrev bool, currentVolume, prevVolume float64) bool {
	switch cond.Type {
	case domain.ConditionPriceAbove:
		return current >= cond.Threshold
	case domain.ConditionPriceBelow:
		return current <= cond.Threshold
	case domain.ConditionPriceChangePct:
		if !havePrev || prev <= 0 {
			return false
		}
		pct := (current - prev) / prev * 100
		_, thresholdPct := numeric.NormalizePct(cond.Threshold)
		switch cond.Direction {
		case domain.DirectionUp:
			return pct >= thresholdPct
		case domain.DirectionDown:
			return pct <= -thresholdPct
		default:
			return math.Abs(pct) >= thresholdPct
		}
	case domain.ConditionVolumeSpike:
		if prevVolume <= 0 {
			return false
		}
		multiplier := cond.Threshold
		if multiplier <= 0 {
			multiplier = e.cfg.DefaultVolumeSpikeMult
		}
		return currentVolume/prevVolume >= multiplier
	default:
		return false
	}
}

func cents(price float64) float64 {
	return math.Round(price*1000) / 10
}

// formatTriggerMessage renders a human-readable alert message, matching
// the exact substrings spec §8's scenarios require (e.g. "72.5¢",
// "above 72.0¢", "+6.00%", "40.0¢ → 42.4¢").
func formatTriggerMessage(a domain.Alert, m domain.Market, current, prev float64, havePrev bool) string {
	switch a.Condition.Type {
	case domain.ConditionPriceAbove:
		return fmt.Sprintf("%s: %.1f¢, above %.1f¢", m.Question, cents(current), cents(a.Condition.Threshold))
	case domain.ConditionPriceBelow:
		return fmt.Sprintf("%s: %.1f¢, below %.1f¢", m.Question, cents(current), cents(a.Condition.Threshold))
	case domain.ConditionPriceChangePct:
		if !havePrev || prev <= 0 {
			return fmt.Sprintf("%s: %.1f¢", m.Question, cents(current))
		}
		pct := (current - prev) / prev * 100
		return fmt.Sprintf("%s: %+.2f%%, %.1f¢ → %.1f¢", m.Question, pct, cents(prev), cents(current))
	case domain.ConditionVolumeSpike:
		return fmt.Sprintf("%s: volume spike, threshold %.2fx", m.Question, a.Condition.Threshold)
	default:
		return fmt.Sprintf("%s: condition triggered", m.Question)
	}
}
