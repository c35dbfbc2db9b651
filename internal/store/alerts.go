package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertAlert creates or updates an alert row.
func (db *DB) UpsertAlert(ctx context.Context, a domain.Alert) error {
	condJSON, err := json.Marshal(a.Condition)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO alerts (id, user_id, platform, market_id, condition_json, enabled, triggered, channel, chat_id)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			user_id=excluded.user_id, platform=excluded.platform, market_id=excluded.market_id,
			condition_json=excluded.condition_json, enabled=excluded.enabled, triggered=excluded.triggered,
			channel=excluded.channel, chat_id=excluded.chat_id`,
		a.ID, a.UserID, string(a.Platform), a.MarketID, string(condJSON), a.Enabled, a.Triggered,
		nullableString(string(a.Channel)), nullableString(a.ChatID))
	if err != nil {
		return backend("UpsertAlert", err)
	}
	return nil
}

// DeleteAlert removes an alert by id.
func (db *DB) DeleteAlert(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM alerts WHERE id=?`, id)
	if err != nil {
		return backend("DeleteAlert", err)
	}
	return nil
}

// ListActiveAlerts returns every enabled alert, the AlertEngine's scan input.
func (db *DB) ListActiveAlerts(ctx context.Context) ([]domain.Alert, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, platform, market_id, condition_json, enabled, triggered, channel, chat_id
		FROM alerts WHERE enabled=1`)
	if err != nil {
		return nil, backend("ListActiveAlerts", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// ListAlertsByUser returns every alert a user owns, regardless of state.
func (db *DB) ListAlertsByUser(ctx context.Context, userID string) ([]domain.Alert, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, user_id, platform, market_id, condition_json, enabled, triggered, channel, chat_id
		FROM alerts WHERE user_id=?`, userID)
	if err != nil {
		return nil, backend("ListAlertsByUser", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// GetAlert looks up a single alert by id.
func (db *DB) GetAlert(ctx context.Context, id string) (domain.Alert, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, user_id, platform, market_id, condition_json, enabled, triggered, channel, chat_id
		FROM alerts WHERE id=?`, id)

	var a domain.Alert
	var condJSON string
	var channel, chatID sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Platform, &a.MarketID, &condJSON, &a.Enabled, &a.Triggered, &channel, &chatID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Alert{}, notFound("alerts", id)
		}
		return domain.Alert{}, backend("GetAlert", err)
	}
	if err := json.Unmarshal([]byte(condJSON), &a.Condition); err != nil {
		return domain.Alert{}, err
	}
	a.Channel = domain.Channel(channel.String)
	a.ChatID = chatID.String
	return a, nil
}

func scanAlertRows(rows *sql.Rows) ([]domain.Alert, error) {
	var out []domain.Alert
	for rows.Next() {
		var a domain.Alert
		var condJSON string
		var channel, chatID sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.Platform, &a.MarketID, &condJSON, &a.Enabled, &a.Triggered, &channel, &chatID); err != nil {
			return nil, backend("scanAlertRows", err)
		}
		if err := json.Unmarshal([]byte(condJSON), &a.Condition); err != nil {
			return nil, err
		}
		a.Channel = domain.Channel(channel.String)
		a.ChatID = chatID.String
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
