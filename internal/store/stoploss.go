package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertStopLossTrigger records the outcome of a stop-loss evaluation,
// keyed by (user, platform, outcome) so the cooldown book is per-position.
func (db *DB) UpsertStopLossTrigger(ctx context.Context, t domain.StopLossTrigger) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO stop_loss_triggers (user_id, platform, outcome_id, market_id, status, triggered_at_ms, last_price, last_error, cooldown_until_ms)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, platform, outcome_id) DO UPDATE SET
			market_id=excluded.market_id, status=excluded.status, triggered_at_ms=excluded.triggered_at_ms,
			last_price=excluded.last_price, last_error=excluded.last_error, cooldown_until_ms=excluded.cooldown_until_ms`,
		t.UserID, string(t.Platform), t.OutcomeID, t.MarketID, string(t.Status), t.TriggeredAt, t.LastPrice,
		nullableString(t.LastError), t.CooldownUntil)
	if err != nil {
		return backend("UpsertStopLossTrigger", err)
	}
	return nil
}

// GetStopLossTrigger returns the most recent trigger record for a
// position, or coreerr.ErrStoreNotFound if the position has never fired.
func (db *DB) GetStopLossTrigger(ctx context.Context, userID string, platform domain.Venue, outcomeID string) (domain.StopLossTrigger, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, platform, outcome_id, market_id, status, triggered_at_ms, last_price, last_error, cooldown_until_ms
		FROM stop_loss_triggers WHERE user_id=? AND platform=? AND outcome_id=?`,
		userID, string(platform), outcomeID)

	var t domain.StopLossTrigger
	var lastError sql.NullString
	err := row.Scan(&t.UserID, &t.Platform, &t.OutcomeID, &t.MarketID, &t.Status, &t.TriggeredAt, &t.LastPrice, &lastError, &t.CooldownUntil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.StopLossTrigger{}, notFound("stop_loss_triggers", userID+"/"+string(platform)+"/"+outcomeID)
		}
		return domain.StopLossTrigger{}, backend("GetStopLossTrigger", err)
	}
	t.LastError = lastError.String
	return t, nil
}

// ListStopLossTriggersByUser returns every trigger record for a user.
func (db *DB) ListStopLossTriggersByUser(ctx context.Context, userID string) ([]domain.StopLossTrigger, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, platform, outcome_id, market_id, status, triggered_at_ms, last_price, last_error, cooldown_until_ms
		FROM stop_loss_triggers WHERE user_id=?`, userID)
	if err != nil {
		return nil, backend("ListStopLossTriggersByUser", err)
	}
	defer rows.Close()

	var out []domain.StopLossTrigger
	for rows.Next() {
		var t domain.StopLossTrigger
		var lastError sql.NullString
		if err := rows.Scan(&t.UserID, &t.Platform, &t.OutcomeID, &t.MarketID, &t.Status, &t.TriggeredAt, &t.LastPrice, &lastError, &t.CooldownUntil); err != nil {
			return nil, backend("scan stop loss trigger", err)
		}
		t.LastError = lastError.String
		out = append(out, t)
	}
	return out, rows.Err()
}
