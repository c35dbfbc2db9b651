package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertMarketCache writes the current market snapshot, which also
// becomes the rolling "previous" snapshot for the next AlertEngine scan
// (spec §4.F step 5).
func (db *DB) UpsertMarketCache(ctx context.Context, m domain.Market) error {
	outcomesJSON, err := json.Marshal(m.Outcomes)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO markets_cache (platform, market_id, question, outcomes_json, volume24h, cached_at_ms)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(platform, market_id) DO UPDATE SET
			question=excluded.question, outcomes_json=excluded.outcomes_json,
			volume24h=excluded.volume24h, cached_at_ms=excluded.cached_at_ms`,
		string(m.Platform), m.MarketID, m.Question, string(outcomesJSON), m.Volume24h, m.CachedAt)
	if err != nil {
		return backend("UpsertMarketCache", err)
	}
	return nil
}

// GetMarketCache returns the cached market if present, regardless of
// age; callers apply their own TTL/window logic (spec §4.F step 3
// treats the window as alert-scoped, not a single fixed TTL).
func (db *DB) GetMarketCache(ctx context.Context, platform domain.Venue, marketID string) (domain.Market, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT platform, market_id, question, outcomes_json, volume24h, cached_at_ms
		FROM markets_cache WHERE platform=? AND market_id=?`, string(platform), marketID)

	var m domain.Market
	var outcomesJSON string
	var vol sql.NullFloat64
	err := row.Scan(&m.Platform, &m.MarketID, &m.Question, &outcomesJSON, &vol, &m.CachedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Market{}, notFound("markets_cache", string(platform)+"/"+marketID)
		}
		return domain.Market{}, backend("GetMarketCache", err)
	}
	if vol.Valid {
		v := vol.Float64
		m.Volume24h = &v
	}
	if err := json.Unmarshal([]byte(outcomesJSON), &m.Outcomes); err != nil {
		return domain.Market{}, err
	}
	return m, nil
}
