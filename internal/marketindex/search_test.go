package marketindex

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/venues"
)

func mustUpsert(t *testing.T, db interface {
	UpsertMarketIndexEntry(context.Context, domain.MarketIndexEntry) error
}, e domain.MarketIndexEntry) {
	t.Helper()
	e.ContentHash = ContentHash(e)
	require.NoError(t, db.UpsertMarketIndexEntry(context.Background(), e))
}

func TestSearch_OrdersByScoreDescending(t *testing.T) {
	db := newTestDB(t)
	mustUpsert(t, db, domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "low", Question: "weekly forecast report"})
	mustUpsert(t, db, domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "high", Question: "rain tomorrow forecast widely expected"})

	e := NewEngine(db, venues.Registry{}, HashEmbedder{}, clock.Real{}, zerolog.Nop())
	results, err := e.Search(context.Background(), SearchOptions{Query: "rain tomorrow forecast"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].Entry.MarketID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_TiesBrokenByInputOrder(t *testing.T) {
	db := newTestDB(t)
	mustUpsert(t, db, domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "identical question text"})
	mustUpsert(t, db, domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m2", Question: "identical question text"})

	e := NewEngine(db, venues.Registry{}, HashEmbedder{}, clock.Real{}, zerolog.Nop())
	results, err := e.Search(context.Background(), SearchOptions{Query: "identical question text"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9)
	assert.Equal(t, "m1", results[0].Entry.MarketID)
	assert.Equal(t, "m2", results[1].Entry.MarketID)
}

func TestSearch_RespectsLimit(t *testing.T) {
	db := newTestDB(t)
	for _, id := range []string{"a", "b", "c"} {
		mustUpsert(t, db, domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: id, Question: "will the market resolve yes"})
	}

	e := NewEngine(db, venues.Registry{}, HashEmbedder{}, clock.Real{}, zerolog.Nop())
	results, err := e.Search(context.Background(), SearchOptions{Query: "will the market resolve yes", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearch_ReusesCachedEmbeddingWhenContentHashUnchanged(t *testing.T) {
	db := newTestDB(t)
	entry := domain.MarketIndexEntry{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "will it rain tomorrow"}
	mustUpsert(t, db, entry)

	e := NewEngine(db, venues.Registry{}, HashEmbedder{}, clock.Real{}, zerolog.Nop())
	_, err := e.Search(context.Background(), SearchOptions{Query: "rain"})
	require.NoError(t, err)

	cached, err := db.GetEmbedding(context.Background(), domain.VenuePolymarket, "m1")
	require.NoError(t, err)
	assert.Equal(t, ContentHash(entry), cached.ContentHash)

	_, err = e.Search(context.Background(), SearchOptions{Query: "rain"})
	require.NoError(t, err)
	recached, err := db.GetEmbedding(context.Background(), domain.VenuePolymarket, "m1")
	require.NoError(t, err)
	assert.Equal(t, cached.Vector, recached.Vector)
}
