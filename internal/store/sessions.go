package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertSession creates or refreshes a session keyed by s.Key.
func (db *DB) UpsertSession(ctx context.Context, s domain.Session) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO sessions (id, key, user_id, channel, chat_id, last_activity_ms)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(key) DO UPDATE SET
			channel=excluded.channel, chat_id=excluded.chat_id, last_activity_ms=excluded.last_activity_ms`,
		s.ID, s.Key, s.UserID, string(s.Channel), s.ChatID, s.LastActivity)
	if err != nil {
		return backend("UpsertSession", err)
	}
	return nil
}

// LatestSessionForUser returns the most recently active session for a
// user, used by the Notifier's recipient resolution (spec §4.I).
func (db *DB) LatestSessionForUser(ctx context.Context, userID string) (domain.Session, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, key, user_id, channel, chat_id, last_activity_ms FROM sessions
		WHERE user_id=? ORDER BY last_activity_ms DESC LIMIT 1`, userID)

	var s domain.Session
	err := row.Scan(&s.ID, &s.Key, &s.UserID, &s.Channel, &s.ChatID, &s.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, notFound("sessions", userID)
		}
		return domain.Session{}, backend("LatestSessionForUser", err)
	}
	return s, nil
}
