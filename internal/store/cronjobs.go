package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// jobRow is the JSON blob persisted in cron_jobs.data_json, carrying
// everything except the indexed id/name/enabled columns.
type jobRow struct {
	Schedule      domain.Schedule      `json:"schedule"`
	SessionTarget domain.SessionTarget `json:"sessionTarget"`
	WakeMode      domain.WakeMode      `json:"wakeMode"`
	Payload       domain.Payload       `json:"payload"`
	State         domain.JobState      `json:"state"`
	DeleteAfterRun bool                `json:"deleteAfterRun"`
}

// UpsertCronJob creates or replaces a job row in full (spec §3 CronJob
// lifecycle: "Upserted on add/update/tick").
func (db *DB) UpsertCronJob(ctx context.Context, j domain.CronJob, nowMS int64) error {
	data, err := json.Marshal(jobRow{j.Schedule, j.SessionTarget, j.WakeMode, j.Payload, j.State, j.DeleteAfterRun})
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO cron_jobs (id, name, data_json, enabled, created_at_ms, updated_at_ms)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, data_json=excluded.data_json, enabled=excluded.enabled, updated_at_ms=excluded.updated_at_ms`,
		j.ID, j.Name, string(data), j.Enabled, nowMS, nowMS)
	if err != nil {
		return backend("UpsertCronJob", err)
	}
	return nil
}

// DeleteCronJob removes a job row, used for one-shot completion and
// user-initiated deletes.
func (db *DB) DeleteCronJob(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, `DELETE FROM cron_jobs WHERE id=?`, id)
	if err != nil {
		return backend("DeleteCronJob", err)
	}
	return nil
}

// GetCronJob looks up a single job by id.
func (db *DB) GetCronJob(ctx context.Context, id string) (domain.CronJob, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT id, name, data_json, enabled FROM cron_jobs WHERE id=?`, id)
	return scanJobRow(row)
}

// ListCronJobs returns every job row, loaded at Scheduler.Start().
func (db *DB) ListCronJobs(ctx context.Context) ([]domain.CronJob, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, data_json, enabled FROM cron_jobs`)
	if err != nil {
		return nil, backend("ListCronJobs", err)
	}
	defer rows.Close()

	var out []domain.CronJob
	for rows.Next() {
		j, err := scanJobRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJobRow(s rowScanner) (domain.CronJob, error) {
	var j domain.CronJob
	var data string
	if err := s.Scan(&j.ID, &j.Name, &data, &j.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.CronJob{}, notFound("cron_jobs", j.ID)
		}
		return domain.CronJob{}, backend("scanJobRow", err)
	}
	var body jobRow
	if err := json.Unmarshal([]byte(data), &body); err != nil {
		return domain.CronJob{}, err
	}
	j.Schedule = body.Schedule
	j.SessionTarget = body.SessionTarget
	j.WakeMode = body.WakeMode
	j.Payload = body.Payload
	j.State = body.State
	j.DeleteAfterRun = body.DeleteAfterRun
	return j, nil
}

// AppendJobRun records one run-history entry (SPEC_FULL §4 supplement).
func (db *DB) AppendJobRun(ctx context.Context, r domain.JobRun) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO cron_job_runs (job_id, started_at_ms, duration_ms, status, error)
		VALUES (?,?,?,?,?)`,
		r.JobID, r.StartedAt, r.DurationMS, string(r.Status), nullableString(r.Error))
	if err != nil {
		return backend("AppendJobRun", err)
	}
	return nil
}

// RecentJobRuns returns the last limit runs for a job, newest first.
func (db *DB) RecentJobRuns(ctx context.Context, jobID string, limit int) ([]domain.JobRun, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT job_id, started_at_ms, duration_ms, status, error FROM cron_job_runs
		WHERE job_id=? ORDER BY started_at_ms DESC LIMIT ?`, jobID, limit)
	if err != nil {
		return nil, backend("RecentJobRuns", err)
	}
	defer rows.Close()

	var out []domain.JobRun
	for rows.Next() {
		var r domain.JobRun
		var errStr sql.NullString
		if err := rows.Scan(&r.JobID, &r.StartedAt, &r.DurationMS, &r.Status, &errStr); err != nil {
			return nil, backend("scan job run", err)
		}
		r.Error = errStr.String
		out = append(out, r)
	}
	return out, rows.Err()
}
