package store

import "context"

// HealthStatus is the result of one readiness probe against the
// backing database.
type HealthStatus struct {
	OK     bool
	Detail string
}

// Health runs a cheap connectivity check plus a sqlite integrity_check
// pragma, for the lifecycle's readiness reporting (SPEC_FULL §4).
func (db *DB) Health(ctx context.Context) HealthStatus {
	if err := db.conn.PingContext(ctx); err != nil {
		return HealthStatus{OK: false, Detail: "ping failed: " + err.Error()}
	}

	var result string
	if err := db.conn.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return HealthStatus{OK: false, Detail: "integrity_check failed: " + err.Error()}
	}
	if result != "ok" {
		return HealthStatus{OK: false, Detail: "integrity_check reported: " + result}
	}
	return HealthStatus{OK: true, Detail: "ok"}
}
