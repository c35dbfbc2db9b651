// Package digest sends each opted-in user their daily portfolio
// summary at their configured UTC time (spec §3 UserSettings.digestTime,
// §9 "Digest: a surface feature delivered by other subsystems; the core
// only schedules and routes their notifications"). The core supplies the
// schedule and the routing; the content here is the portfolio snapshot
// already computed by PortfolioSync, not a news feed — no Feeds adapter
// exists in this build, so the digest body is the latest snapshot only.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/notifier"
	"github.com/marketwatch/agentcore/internal/store"
)

// toleranceMinutes bounds how long after a user's digestTime a tick may
// land and still count as "today's" digest, matching the default
// DailyDigest job interval (every 5 minutes, spec §4.A step 2).
const toleranceMinutes = 5

// Engine sends one digest message per opted-in user whose digestTime
// falls within the current tick window.
type Engine struct {
	db     *store.DB
	notify *notifier.Notifier
	clock  clock.Clock
	log    zerolog.Logger
}

func New(db *store.DB, notify *notifier.Notifier, clk clock.Clock, log zerolog.Logger) *Engine {
	return &Engine{db: db, notify: notify, clock: clk, log: log.With().Str("component", "digest").Logger()}
}

// Run evaluates every user's digestTime against the current UTC clock
// and delivers a digest to each match. Per-user errors are logged and
// do not abort the run.
func (e *Engine) Run(ctx context.Context) error {
	users, err := e.db.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	now := e.clock.Now().UTC()
	for _, u := range users {
		if !u.Settings.DigestEnabled || !dueNow(u.Settings.DigestTime, now) {
			continue
		}
		if err := e.sendOne(ctx, u); err != nil {
			e.log.Warn().Err(err).Str("user_id", u.ID).Msg("daily digest failed")
		}
	}
	return nil
}

// dueNow reports whether now falls in the toleranceMinutes-wide window
// that starts at hhmm ("HH:MM", UTC), wrapping past midnight, so a
// 5-minute-interval job matches a user's configured minute on exactly
// one tick a day even when the tick lands a few seconds off.
func dueNow(hhmm string, now time.Time) bool {
	target, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	nowMinutes := now.Hour()*60 + now.Minute()
	targetMinutes := target.Hour()*60 + target.Minute()
	diff := (nowMinutes - targetMinutes + 24*60) % (24 * 60)
	return diff < toleranceMinutes
}

func (e *Engine) sendOne(ctx context.Context, u domain.User) error {
	snap, err := e.db.LatestSnapshot(ctx, u.ID)
	if err != nil {
		return e.notify.Notify(ctx, u, "", "", "Daily digest: no portfolio activity yet.")
	}
	text := fmt.Sprintf(
		"Daily digest: %d positions, value %.2f, pnl %+.2f (%+.2f%%)",
		snap.PositionsCount, snap.TotalValue, snap.TotalPnl, snap.TotalPnlPct,
	)
	return e.notify.Notify(ctx, u, "", "", text)
}
