// Package stoploss scans every user's positions against their
// configured stop-loss percentage and dispatches a market sell through
// the owning venue adapter when the threshold is breached (spec §4.H).
// Grounded on the teacher's constructor-injection service pattern
// (aristath-sentinel/internal/di/services.go) and its
// callback-to-interface redesign for execution hand-off (spec §9,
// "Callback-based executeClose").
package stoploss

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/notifier"
	"github.com/marketwatch/agentcore/internal/numeric"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
	"github.com/marketwatch/agentcore/internal/workerpool"
)

const defaultCooldownMS = 10 * 60 * 1000

// executableVenues are the only platforms StopLossEngine may call
// ExecuteMarketSell on (spec §4.H step 4).
var executableVenues = map[domain.Venue]bool{
	domain.VenuePolymarket: true,
	domain.VenueKalshi:     true,
	domain.VenueManifold:   true,
}

// Config carries env-driven knobs (spec §6: TRADING_DRY_RUN,
// TRADING_STOPLOSS_COOLDOWN_MS).
type Config struct {
	DryRun         bool
	CooldownMS     int64
	WorkerPoolSize int
}

func (c Config) withDefaults() Config {
	if c.CooldownMS <= 0 {
		c.CooldownMS = defaultCooldownMS
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = workerpool.DefaultSize
	}
	return c
}

// Engine runs one stop-loss scan across every user with a configured
// threshold.
type Engine struct {
	db       *store.DB
	registry venues.Registry
	creds    venues.CredentialResolver
	notify   *notifier.Notifier
	clock    clock.Clock
	log      zerolog.Logger
	cfg      Config
}

func New(db *store.DB, registry venues.Registry, creds venues.CredentialResolver, notify *notifier.Notifier, clk clock.Clock, log zerolog.Logger, cfg Config) *Engine {
	return &Engine{db: db, registry: registry, creds: creds, notify: notify, clock: clk, log: log.With().Str("component", "stoploss").Logger(), cfg: cfg.withDefaults()}
}

// Scan evaluates every user's positions against their stopLossPct
// (spec §4.H), bounded-pool concurrent across users.
func (e *Engine) Scan(ctx context.Context) error {
	users, err := e.db.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var candidates []domain.User
	for _, u := range users {
		if u.Settings.StopLossPct > 0 {
			candidates = append(candidates, u)
		}
	}

	tasks := make([]workerpool.Task, len(candidates))
	for i, u := range candidates {
		u := u
		tasks[i] = func(ctx context.Context) error {
			e.scanUser(ctx, u)
			return nil
		}
	}
	workerpool.Run(ctx, e.cfg.WorkerPoolSize, tasks)
	return nil
}

func (e *Engine) scanUser(ctx context.Context, user domain.User) {
	pct, _ := numeric.NormalizePct(user.Settings.StopLossPct)

	positions, err := e.db.ListPositionsByUser(ctx, user.ID, "")
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", user.ID).Msg("list positions failed")
		return
	}

	for _, p := range positions {
		threshold := p.AvgPrice * (1 - pct)
		if p.CurrentPrice > threshold {
			continue
		}
		e.evaluateTrigger(ctx, user, p, threshold)
	}
}

func (e *Engine) evaluateTrigger(ctx context.Context, user domain.User, p domain.Position, threshold float64) {
	now := e.clock.Now().UnixMilli()

	existing, err := e.db.GetStopLossTrigger(ctx, user.ID, p.Platform, p.OutcomeID)
	if err == nil && existing.CooldownUntil > now {
		return
	}

	trigger := domain.StopLossTrigger{
		UserID: user.ID, Platform: p.Platform, OutcomeID: p.OutcomeID, MarketID: p.MarketID,
		TriggeredAt: now, LastPrice: p.CurrentPrice, CooldownUntil: now + e.cfg.CooldownMS,
	}

	status, execErr := e.execute(ctx, user.ID, p)
	trigger.Status = status
	if execErr != nil {
		trigger.LastError = execErr.Error()
	}

	if err := e.db.UpsertStopLossTrigger(ctx, trigger); err != nil {
		e.log.Warn().Err(err).Str("user_id", user.ID).Msg("persist stop-loss trigger failed")
	}

	text := formatStopLossMessage(p, threshold, status, trigger.LastError)
	if err := e.notify.Notify(ctx, user, "", "", text); err != nil {
		e.log.Warn().Err(err).Str("user_id", user.ID).Msg("stop-loss notify failed")
	}
}

func (e *Engine) execute(ctx context.Context, userID string, p domain.Position) (domain.StopLossStatus, error) {
	if !executableVenues[p.Platform] {
		return domain.StopLossFailed, fmt.Errorf("platform %s does not support stop-loss execution", p.Platform)
	}
	if e.cfg.DryRun {
		return domain.StopLossDryRun, nil
	}

	adapter, ok := e.registry.Get(p.Platform)
	if !ok {
		return domain.StopLossFailed, fmt.Errorf("no adapter for %s", p.Platform)
	}
	creds, err := e.creds.Resolve(ctx, userID, p.Platform)
	if err != nil {
		return domain.StopLossFailed, fmt.Errorf("resolve credentials: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := adapter.ExecuteMarketSell(ctx, creds, p.OutcomeID, "all"); err != nil {
		return domain.StopLossFailed, fmt.Errorf("execute market sell: %w", err)
	}
	return domain.StopLossExecuted, nil
}

func formatStopLossMessage(p domain.Position, threshold float64, status domain.StopLossStatus, lastErr string) string {
	msg := fmt.Sprintf("Stop-loss %s: %s %s shares=%.4f avg=%.4f current=%.4f threshold=%.4f",
		status, p.Platform, p.Side, p.Shares, p.AvgPrice, p.CurrentPrice, threshold)
	if status == domain.StopLossDryRun {
		msg += " — Dry run enabled - no trade executed."
	}
	if lastErr != "" {
		msg += " error=" + lastErr
	}
	return msg
}
