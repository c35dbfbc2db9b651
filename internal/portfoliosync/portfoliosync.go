// Package portfoliosync reconciles each user's positions against every
// venue they hold an enabled credential for, then appends a portfolio
// snapshot (spec §4.G). Grounded on the teacher's
// constructor-injection service pattern (aristath-sentinel/internal/di/services.go)
// and its bounded-worker-pool style for per-user fan-out.
package portfoliosync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
	"github.com/marketwatch/agentcore/internal/workerpool"
)

const snapshotRetention = 90 * 24 * time.Hour

// Config controls fan-out width (spec §5, default 4).
type Config struct {
	WorkerPoolSize int
}

// Engine runs one PortfolioSync pass across every enabled user.
type Engine struct {
	db       *store.DB
	registry venues.Registry
	creds    venues.CredentialResolver
	clock    clock.Clock
	log      zerolog.Logger
	cfg      Config
}

func New(db *store.DB, registry venues.Registry, creds venues.CredentialResolver, clk clock.Clock, log zerolog.Logger, cfg Config) *Engine {
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = workerpool.DefaultSize
	}
	return &Engine{db: db, registry: registry, creds: creds, clock: clk, log: log.With().Str("component", "portfoliosync").Logger(), cfg: cfg}
}

// Sync runs one pass over every user with at least one enabled trading
// credential, bounded-pool concurrent across users, serialized per
// user (spec §4.G, §5).
func (e *Engine) Sync(ctx context.Context) error {
	userIDs, err := e.db.ListEnabledUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list enabled users: %w", err)
	}

	tasks := make([]workerpool.Task, len(userIDs))
	for i, uid := range userIDs {
		uid := uid
		tasks[i] = func(ctx context.Context) error {
			e.syncUser(ctx, uid)
			return nil
		}
	}
	workerpool.Run(ctx, e.cfg.WorkerPoolSize, tasks)

	cutoff := e.clock.Now().Add(-snapshotRetention).UnixMilli()
	if _, err := e.db.PruneSnapshotsBefore(ctx, cutoff); err != nil {
		e.log.Warn().Err(err).Msg("prune old snapshots failed")
	}
	return nil
}

func (e *Engine) syncUser(ctx context.Context, userID string) {
	creds, err := e.db.ListEnabledCredentialsByUser(ctx, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("list credentials failed")
		return
	}

	for _, c := range creds {
		if _, err := e.syncVenue(ctx, userID, c.Platform); err != nil {
			e.log.Warn().Err(err).Str("user_id", userID).Str("platform", string(c.Platform)).Msg("venue sync failed")
			_ = e.db.RecordCredentialFailure(ctx, userID, c.Platform, err.Error(), 5)
			continue
		}
		_ = e.db.RecordCredentialSuccess(ctx, userID, c.Platform, e.clock.Now().UnixMilli())
	}

	// Snapshot from the user's full reconciled position set, not just
	// the venues that refreshed this tick — a venue error leaves its
	// already-persisted positions untouched, and they must still count
	// toward totalValue/totalPnl (spec §1: "tolerating partial failure
	// of external venues").
	allPositions, err := e.db.ListPositionsByUser(ctx, userID, "")
	if err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("load positions for snapshot failed")
		return
	}

	snapshot := computeSnapshot(userID, allPositions, e.clock.Now().UnixMilli())
	if err := e.db.AppendSnapshot(ctx, snapshot); err != nil {
		e.log.Warn().Err(err).Str("user_id", userID).Msg("append snapshot failed")
	}
}

// syncVenue fetches, normalizes, and reconciles positions for one
// (user, venue) pair (spec §4.G steps 2-4).
func (e *Engine) syncVenue(ctx context.Context, userID string, platform domain.Venue) ([]domain.Position, error) {
	adapter, ok := e.registry.Get(platform)
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %s", platform)
	}

	creds, err := e.creds.Resolve(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	fresh, err := adapter.ListPositions(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	for i := range fresh {
		fresh[i].UserID = userID
	}

	existing, err := e.db.ListPositionsByUser(ctx, userID, platform)
	if err != nil {
		return nil, fmt.Errorf("load existing positions: %w", err)
	}

	currentIDs := make(map[string]bool, len(fresh))
	for _, p := range fresh {
		currentIDs[p.OutcomeID] = true
		if err := e.db.UpsertPosition(ctx, p); err != nil {
			return nil, fmt.Errorf("upsert position %s: %w", p.OutcomeID, err)
		}
	}
	for _, p := range existing {
		if !currentIDs[p.OutcomeID] {
			if err := e.db.DeletePosition(ctx, userID, platform, p.OutcomeID); err != nil {
				return nil, fmt.Errorf("delete stale position %s: %w", p.OutcomeID, err)
			}
		}
	}
	return fresh, nil
}

// computeSnapshot aggregates totalValue/totalPnl/byPlatform across
// every position a user currently holds (spec §4.G).
func computeSnapshot(userID string, positions []domain.Position, nowMS int64) domain.PortfolioSnapshot {
	s := domain.PortfolioSnapshot{
		UserID:     userID,
		TS:         nowMS,
		ByPlatform: make(map[domain.Venue]domain.PlatformPnl),
	}
	for _, p := range positions {
		costBasis := p.Shares * p.AvgPrice
		pnl := p.Value - costBasis
		s.TotalValue += p.Value
		s.TotalCostBasis += costBasis
		pp := s.ByPlatform[p.Platform]
		pp.Value += p.Value
		pp.Pnl += pnl
		s.ByPlatform[p.Platform] = pp
	}
	s.TotalPnl = s.TotalValue - s.TotalCostBasis
	if s.TotalCostBasis != 0 {
		s.TotalPnlPct = s.TotalPnl / s.TotalCostBasis * 100
	}
	s.PositionsCount = len(positions)
	return s
}
