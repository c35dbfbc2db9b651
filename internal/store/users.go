package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertUser creates u if (platform, platformUserId) is unseen, else
// updates its settings in place. Returns the row's id (generated on
// create, preserved on update).
func (db *DB) UpsertUser(ctx context.Context, u domain.User) (domain.User, error) {
	settingsJSON, err := json.Marshal(u.Settings)
	if err != nil {
		return domain.User{}, fmt.Errorf("marshal settings: %w", err)
	}

	existing, err := db.GetUserByPlatformID(ctx, u.Platform, u.PlatformUserID)
	switch {
	case err == nil:
		u.ID = existing.ID
		u.CreatedAt = existing.CreatedAt
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET settings_json=? WHERE id=?`, string(settingsJSON), u.ID)
		if err != nil {
			return domain.User{}, backend("UpsertUser", err)
		}
		return u, nil
	case errors.Is(err, coreerr.ErrStoreNotFound):
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		_, err = db.conn.ExecContext(ctx,
			`INSERT INTO users (id, platform, platform_user_id, settings_json, created_at_ms) VALUES (?,?,?,?,?)`,
			u.ID, string(u.Platform), u.PlatformUserID, string(settingsJSON), u.CreatedAt)
		if err != nil {
			return domain.User{}, backend("UpsertUser insert", err)
		}
		return u, nil
	default:
		return domain.User{}, err
	}
}

// GetUserByPlatformID looks up a user by their (platform, platformUserId)
// pair, the natural unique key (spec §3).
func (db *DB) GetUserByPlatformID(ctx context.Context, platform domain.Channel, platformUserID string) (domain.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, platform, platform_user_id, settings_json, created_at_ms FROM users WHERE platform=? AND platform_user_id=?`,
		string(platform), platformUserID)
	return scanUser(row)
}

// GetUser looks up a user by id.
func (db *DB) GetUser(ctx context.Context, id string) (domain.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, platform, platform_user_id, settings_json, created_at_ms FROM users WHERE id=?`, id)
	return scanUser(row)
}

// ListUsers returns every user row, used by the StopLoss and digest
// scans to find candidates.
func (db *DB) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, platform, platform_user_id, settings_json, created_at_ms FROM users`)
	if err != nil {
		return nil, backend("ListUsers", err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		u, err := scanUserRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (domain.User, error) {
	return scanUserGeneric(row)
}

func scanUserRows(rows *sql.Rows) (domain.User, error) {
	return scanUserGeneric(rows)
}

func scanUserGeneric(s rowScanner) (domain.User, error) {
	var u domain.User
	var settingsJSON string
	err := s.Scan(&u.ID, &u.Platform, &u.PlatformUserID, &settingsJSON, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, notFound("users", "?")
		}
		return domain.User{}, backend("scanUser", err)
	}
	if err := json.Unmarshal([]byte(settingsJSON), &u.Settings); err != nil {
		return domain.User{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	return u, nil
}
