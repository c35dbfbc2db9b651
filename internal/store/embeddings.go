package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"math"

	"github.com/marketwatch/agentcore/internal/domain"
)

// UpsertEmbedding stores a market's vector, keyed by content hash so a
// re-ingest with an unchanged hash can skip recomputation.
func (db *DB) UpsertEmbedding(ctx context.Context, e domain.Embedding) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO market_index_embeddings (platform, market_id, content_hash, vector)
		VALUES (?,?,?,?)
		ON CONFLICT(platform, market_id) DO UPDATE SET
			content_hash=excluded.content_hash, vector=excluded.vector`,
		string(e.Platform), e.MarketID, e.ContentHash, encodeVector(e.Vector))
	if err != nil {
		return backend("UpsertEmbedding", err)
	}
	return nil
}

// GetEmbedding returns the stored vector for a market, or
// coreerr.ErrStoreNotFound if it has never been embedded.
func (db *DB) GetEmbedding(ctx context.Context, platform domain.Venue, marketID string) (domain.Embedding, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT platform, market_id, content_hash, vector FROM market_index_embeddings
		WHERE platform=? AND market_id=?`, string(platform), marketID)

	var e domain.Embedding
	var raw []byte
	err := row.Scan(&e.Platform, &e.MarketID, &e.ContentHash, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Embedding{}, notFound("market_index_embeddings", string(platform)+"/"+marketID)
		}
		return domain.Embedding{}, backend("GetEmbedding", err)
	}
	e.Vector = decodeVector(raw)
	return e, nil
}

// ListEmbeddingsByPlatform returns every stored vector for a platform,
// the corpus the hybrid search ranks against.
func (db *DB) ListEmbeddingsByPlatform(ctx context.Context, platform domain.Venue) ([]domain.Embedding, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT platform, market_id, content_hash, vector FROM market_index_embeddings WHERE platform=?`,
		string(platform))
	if err != nil {
		return nil, backend("ListEmbeddingsByPlatform", err)
	}
	defer rows.Close()

	var out []domain.Embedding
	for rows.Next() {
		var e domain.Embedding
		var raw []byte
		if err := rows.Scan(&e.Platform, &e.MarketID, &e.ContentHash, &raw); err != nil {
			return nil, backend("scan embedding", err)
		}
		e.Vector = decodeVector(raw)
		out = append(out, e)
	}
	return out, rows.Err()
}

// encodeVector packs a float32 slice as little-endian bytes for BLOB
// storage; sqlite has no native vector type, so we roll our own.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(raw []byte) []float32 {
	vec := make([]float32, len(raw)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return vec
}
