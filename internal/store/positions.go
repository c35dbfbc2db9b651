package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertPosition creates or updates a position, keyed by (user, platform,
// outcome), which PortfolioSync relies on for idempotent reconciliation
// (spec §3, §8 round-trip law).
func (db *DB) UpsertPosition(ctx context.Context, p domain.Position) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO positions (id, user_id, platform, market_id, outcome_id, side, shares, avg_price, current_price, pnl, pnl_pct, value, opened_at_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, platform, outcome_id) DO UPDATE SET
			market_id=excluded.market_id, side=excluded.side, shares=excluded.shares,
			avg_price=excluded.avg_price, current_price=excluded.current_price,
			pnl=excluded.pnl, pnl_pct=excluded.pnl_pct, value=excluded.value`,
		p.ID, p.UserID, string(p.Platform), p.MarketID, p.OutcomeID, string(p.Side),
		p.Shares, p.AvgPrice, p.CurrentPrice, p.Pnl, p.PnlPct, p.Value, p.OpenedAt)
	if err != nil {
		return backend("UpsertPosition", err)
	}
	return nil
}

// DeletePosition removes a position by (user, platform, outcome).
func (db *DB) DeletePosition(ctx context.Context, userID string, platform domain.Venue, outcomeID string) error {
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM positions WHERE user_id=? AND platform=? AND outcome_id=?`,
		userID, string(platform), outcomeID)
	if err != nil {
		return backend("DeletePosition", err)
	}
	return nil
}

// ListPositionsByUser returns every position the Store currently holds
// for a user, optionally scoped to one platform.
func (db *DB) ListPositionsByUser(ctx context.Context, userID string, platform domain.Venue) ([]domain.Position, error) {
	var rows *sql.Rows
	var err error
	if platform == "" {
		rows, err = db.conn.QueryContext(ctx, `
			SELECT id, user_id, platform, market_id, outcome_id, side, shares, avg_price, current_price, pnl, pnl_pct, value, opened_at_ms
			FROM positions WHERE user_id=?`, userID)
	} else {
		rows, err = db.conn.QueryContext(ctx, `
			SELECT id, user_id, platform, market_id, outcome_id, side, shares, avg_price, current_price, pnl, pnl_pct, value, opened_at_ms
			FROM positions WHERE user_id=? AND platform=?`, userID, string(platform))
	}
	if err != nil {
		return nil, backend("ListPositionsByUser", err)
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.ID, &p.UserID, &p.Platform, &p.MarketID, &p.OutcomeID, &p.Side,
			&p.Shares, &p.AvgPrice, &p.CurrentPrice, &p.Pnl, &p.PnlPct, &p.Value, &p.OpenedAt); err != nil {
			return nil, backend("scan position", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendSnapshot appends a PortfolioSnapshot row (spec §4.G).
func (db *DB) AppendSnapshot(ctx context.Context, s domain.PortfolioSnapshot) error {
	byPlatform, err := json.Marshal(s.ByPlatform)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO portfolio_snapshots (user_id, ts, total_value, total_pnl, total_pnl_pct, total_cost_basis, positions_count, by_platform_json)
		VALUES (?,?,?,?,?,?,?,?)`,
		s.UserID, s.TS, s.TotalValue, s.TotalPnl, s.TotalPnlPct, s.TotalCostBasis, s.PositionsCount, byPlatform)
	if err != nil {
		return backend("AppendSnapshot", err)
	}
	return nil
}

// PruneSnapshotsBefore deletes every snapshot with ts < cutoffMS,
// called after every PortfolioSync cycle (spec §4.G, 90-day retention).
func (db *DB) PruneSnapshotsBefore(ctx context.Context, cutoffMS int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM portfolio_snapshots WHERE ts < ?`, cutoffMS)
	if err != nil {
		return 0, backend("PruneSnapshotsBefore", err)
	}
	return res.RowsAffected()
}

// LatestSnapshot returns the most recent snapshot for a user.
func (db *DB) LatestSnapshot(ctx context.Context, userID string) (domain.PortfolioSnapshot, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, ts, total_value, total_pnl, total_pnl_pct, total_cost_basis, positions_count, by_platform_json
		FROM portfolio_snapshots WHERE user_id=? ORDER BY ts DESC LIMIT 1`, userID)

	var s domain.PortfolioSnapshot
	var byPlatformJSON string
	err := row.Scan(&s.UserID, &s.TS, &s.TotalValue, &s.TotalPnl, &s.TotalPnlPct, &s.TotalCostBasis, &s.PositionsCount, &byPlatformJSON)
	if err != nil {
		return domain.PortfolioSnapshot{}, backend("LatestSnapshot", err)
	}
	if err := json.Unmarshal([]byte(byPlatformJSON), &s.ByPlatform); err != nil {
		return domain.PortfolioSnapshot{}, err
	}
	return s, nil
}
