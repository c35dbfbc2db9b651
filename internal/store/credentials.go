package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertTradingCredential creates or updates a credential's metadata row.
// The secret material itself never passes through the Store; this table
// only tracks enablement and failure bookkeeping (SPEC_FULL §4 supplement).
func (db *DB) UpsertTradingCredential(ctx context.Context, c domain.TradingCredential) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO trading_credentials (user_id, platform, enabled, last_error, consecutive_failures, last_success_at_ms)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(user_id, platform) DO UPDATE SET
			enabled=excluded.enabled, last_error=excluded.last_error,
			consecutive_failures=excluded.consecutive_failures, last_success_at_ms=excluded.last_success_at_ms`,
		c.UserID, string(c.Platform), c.Enabled, nullableString(c.LastError), c.ConsecutiveFailures, c.LastSuccessAtMS)
	if err != nil {
		return backend("UpsertTradingCredential", err)
	}
	return nil
}

// GetTradingCredential looks up one credential's metadata.
func (db *DB) GetTradingCredential(ctx context.Context, userID string, platform domain.Venue) (domain.TradingCredential, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT user_id, platform, enabled, last_error, consecutive_failures, last_success_at_ms
		FROM trading_credentials WHERE user_id=? AND platform=?`, userID, string(platform))

	var c domain.TradingCredential
	var lastError sql.NullString
	err := row.Scan(&c.UserID, &c.Platform, &c.Enabled, &lastError, &c.ConsecutiveFailures, &c.LastSuccessAtMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.TradingCredential{}, notFound("trading_credentials", userID+"/"+string(platform))
		}
		return domain.TradingCredential{}, backend("GetTradingCredential", err)
	}
	c.LastError = lastError.String
	return c, nil
}

// ListEnabledCredentialsByUser returns every venue a user has an
// enabled trading credential for, PortfolioSync's per-user venue list
// (spec §4.G: "Runs per enabled user ... for each user and each linked
// venue").
func (db *DB) ListEnabledCredentialsByUser(ctx context.Context, userID string) ([]domain.TradingCredential, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, platform, enabled, last_error, consecutive_failures, last_success_at_ms
		FROM trading_credentials WHERE user_id=? AND enabled=1`, userID)
	if err != nil {
		return nil, backend("ListEnabledCredentialsByUser", err)
	}
	defer rows.Close()
	return scanCredentialRows(rows)
}

// ListEnabledUserIDs returns the distinct set of user ids with at least
// one enabled trading credential, the candidate pool PortfolioSync fans
// out over.
func (db *DB) ListEnabledUserIDs(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM trading_credentials WHERE enabled=1`)
	if err != nil {
		return nil, backend("ListEnabledUserIDs", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, backend("scan user id", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanCredentialRows(rows *sql.Rows) ([]domain.TradingCredential, error) {
	var out []domain.TradingCredential
	for rows.Next() {
		var c domain.TradingCredential
		var lastError sql.NullString
		if err := rows.Scan(&c.UserID, &c.Platform, &c.Enabled, &lastError, &c.ConsecutiveFailures, &c.LastSuccessAtMS); err != nil {
			return nil, backend("scan credential", err)
		}
		c.LastError = lastError.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordCredentialFailure increments the failure counter and disables
// the credential once it crosses maxFailures, stopping PortfolioSync
// from retrying a venue that keeps rejecting the same keys.
func (db *DB) RecordCredentialFailure(ctx context.Context, userID string, platform domain.Venue, errMsg string, maxFailures int) error {
	c, err := db.GetTradingCredential(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, coreerr.ErrStoreNotFound) {
			c = domain.TradingCredential{UserID: userID, Platform: platform, Enabled: true}
		} else {
			return err
		}
	}
	c.ConsecutiveFailures++
	c.LastError = errMsg
	if c.ConsecutiveFailures >= maxFailures {
		c.Enabled = false
	}
	return db.UpsertTradingCredential(ctx, c)
}

// RecordCredentialSuccess resets the failure counter and stamps the
// success timestamp, re-enabling the credential if it was dormant.
func (db *DB) RecordCredentialSuccess(ctx context.Context, userID string, platform domain.Venue, nowMS int64) error {
	c, err := db.GetTradingCredential(ctx, userID, platform)
	if err != nil {
		if errors.Is(err, coreerr.ErrStoreNotFound) {
			c = domain.TradingCredential{UserID: userID, Platform: platform}
		} else {
			return err
		}
	}
	c.Enabled = true
	c.ConsecutiveFailures = 0
	c.LastError = ""
	c.LastSuccessAtMS = nowMS
	return db.UpsertTradingCredential(ctx, c)
}
