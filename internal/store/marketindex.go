package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertMarketIndexEntry writes one catalog entry keyed by
// (platform, market_id), the MarketIndex ingestion's unit of work.
func (db *DB) UpsertMarketIndexEntry(ctx context.Context, e domain.MarketIndexEntry) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO market_index (platform, market_id, slug, question, description, outcomes_json, tags_json,
			status, url, end_date, resolved, volume24h, liquidity, open_interest, predictions, content_hash, updated_at_ms)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(platform, market_id) DO UPDATE SET
			slug=excluded.slug, question=excluded.question, description=excluded.description,
			outcomes_json=excluded.outcomes_json, tags_json=excluded.tags_json, status=excluded.status,
			url=excluded.url, end_date=excluded.end_date, resolved=excluded.resolved,
			volume24h=excluded.volume24h, liquidity=excluded.liquidity, open_interest=excluded.open_interest,
			predictions=excluded.predictions, content_hash=excluded.content_hash, updated_at_ms=excluded.updated_at_ms`,
		string(e.Platform), e.MarketID, e.Slug, e.Question, e.Description, e.OutcomesJSON, e.TagsJSON,
		e.Status, e.URL, e.EndDate, e.Resolved, e.Volume24h, e.Liquidity, e.OpenInterest, e.Predictions,
		e.ContentHash, e.UpdatedAt)
	if err != nil {
		return backend("UpsertMarketIndexEntry", err)
	}
	return nil
}

// GetMarketIndexEntry looks up one catalog entry, used to compare the
// stored content hash against a freshly-fetched one before re-embedding.
func (db *DB) GetMarketIndexEntry(ctx context.Context, platform domain.Venue, marketID string) (domain.MarketIndexEntry, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT platform, market_id, slug, question, description, outcomes_json, tags_json,
			status, url, end_date, resolved, volume24h, liquidity, open_interest, predictions, content_hash, updated_at_ms
		FROM market_index WHERE platform=? AND market_id=?`, string(platform), marketID)
	e, err := scanMarketIndexEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.MarketIndexEntry{}, notFound("market_index", string(platform)+"/"+marketID)
	}
	return e, err
}

// ListMarketIndexByPlatform returns the full catalog for a platform,
// the hybrid search's lexical pre-filter input.
func (db *DB) ListMarketIndexByPlatform(ctx context.Context, platform domain.Venue) ([]domain.MarketIndexEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT platform, market_id, slug, question, description, outcomes_json, tags_json,
			status, url, end_date, resolved, volume24h, liquidity, open_interest, predictions, content_hash, updated_at_ms
		FROM market_index WHERE platform=?`, string(platform))
	if err != nil {
		return nil, backend("ListMarketIndexByPlatform", err)
	}
	defer rows.Close()
	return scanMarketIndexRows(rows)
}

// ListMarketIndexAll returns the entire catalog across platforms.
func (db *DB) ListMarketIndexAll(ctx context.Context) ([]domain.MarketIndexEntry, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT platform, market_id, slug, question, description, outcomes_json, tags_json,
			status, url, end_date, resolved, volume24h, liquidity, open_interest, predictions, content_hash, updated_at_ms
		FROM market_index`)
	if err != nil {
		return nil, backend("ListMarketIndexAll", err)
	}
	defer rows.Close()
	return scanMarketIndexRows(rows)
}

// PruneMarketIndexBefore removes catalog entries not refreshed since
// cutoffMS, keeping the index bounded to venues still being ingested.
func (db *DB) PruneMarketIndexBefore(ctx context.Context, cutoffMS int64) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM market_index WHERE updated_at_ms < ?`, cutoffMS)
	if err != nil {
		return 0, backend("PruneMarketIndexBefore", err)
	}
	return res.RowsAffected()
}

func scanMarketIndexRows(rows *sql.Rows) ([]domain.MarketIndexEntry, error) {
	var out []domain.MarketIndexEntry
	for rows.Next() {
		e, err := scanMarketIndexEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanMarketIndexEntry(s rowScanner) (domain.MarketIndexEntry, error) {
	var e domain.MarketIndexEntry
	var slug, description, outcomesJSON, tagsJSON, status, url sql.NullString
	var endDate sql.NullInt64
	var volume24h, liquidity, openInterest, predictions sql.NullFloat64
	err := s.Scan(&e.Platform, &e.MarketID, &slug, &e.Question, &description, &outcomesJSON, &tagsJSON,
		&status, &url, &endDate, &e.Resolved, &volume24h, &liquidity, &openInterest, &predictions,
		&e.ContentHash, &e.UpdatedAt)
	if err != nil {
		return domain.MarketIndexEntry{}, err
	}
	e.Slug = slug.String
	e.Description = description.String
	e.OutcomesJSON = outcomesJSON.String
	e.TagsJSON = tagsJSON.String
	e.Status = status.String
	e.URL = url.String
	e.EndDate = endDate.Int64
	if volume24h.Valid {
		v := volume24h.Float64
		e.Volume24h = &v
	}
	if liquidity.Valid {
		v := liquidity.Float64
		e.Liquidity = &v
	}
	if openInterest.Valid {
		v := openInterest.Float64
		e.OpenInterest = &v
	}
	if predictions.Valid {
		v := predictions.Float64
		e.Predictions = &v
	}
	return e, nil
}

// marshalJSON serializes v to a JSON string; nothing in the module
// calls it (venue adapters fill OutcomesJSON themselves).
func marshalJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
