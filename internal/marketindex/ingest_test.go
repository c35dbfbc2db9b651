package marketindex

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/store"
	"github.com/marketwatch/agentcore/internal/venues"
)

func newTestDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(store.Config{Path: "file::memory:?cache=shared&_busy_timeout=5000"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fakeLister struct {
	platform domain.Venue
	pages    [][]domain.MarketIndexEntry
}

func (f *fakeLister) Platform() domain.Venue { return f.platform }
func (f *fakeLister) ListPositions(context.Context, venues.Credentials) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakeLister) GetMarket(context.Context, string) (domain.Market, error) {
	return domain.Market{}, nil
}
func (f *fakeLister) ExecuteMarketSell(context.Context, venues.Credentials, string, string) (venues.ExecResult, error) {
	return venues.ExecResult{}, nil
}
func (f *fakeLister) ListMarketPage(_ context.Context, _ string, page, _ int) (venues.ListingPage, error) {
	if page >= len(f.pages) {
		return venues.ListingPage{}, nil
	}
	return venues.ListingPage{Entries: f.pages[page], HasMore: page+1 < len(f.pages)}, nil
}

func TestSync_IngestsPagesAndSkipsUnchangedContentHash(t *testing.T) {
	db := newTestDB(t)
	lister := &fakeLister{
		platform: domain.VenuePolymarket,
		pages: [][]domain.MarketIndexEntry{
			{{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "Will it rain?"}},
		},
	}
	reg := venues.Registry{domain.VenuePolymarket: lister}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e := NewEngine(db, reg, HashEmbedder{}, clk, zerolog.Nop())

	counts, err := e.Sync(context.Background(), SyncOptions{Platforms: []domain.Venue{domain.VenuePolymarket}})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.VenuePolymarket])

	counts, err = e.Sync(context.Background(), SyncOptions{Platforms: []domain.Venue{domain.VenuePolymarket}})
	require.NoError(t, err)
	assert.Equal(t, 0, counts[domain.VenuePolymarket], "unchanged content hash should not re-upsert")
}

func TestSync_ExcludeSportsFiltersTaggedEntries(t *testing.T) {
	db := newTestDB(t)
	lister := &fakeLister{
		platform: domain.VenueKalshi,
		pages: [][]domain.MarketIndexEntry{
			{
				{Platform: domain.VenueKalshi, MarketID: "nfl-1", Question: "Will the NFL team win?"},
				{Platform: domain.VenueKalshi, MarketID: "pol-1", Question: "Will the bill pass?"},
			},
		},
	}
	reg := venues.Registry{domain.VenueKalshi: lister}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e := NewEngine(db, reg, HashEmbedder{}, clk, zerolog.Nop())

	counts, err := e.Sync(context.Background(), SyncOptions{
		Platforms:     []domain.Venue{domain.VenueKalshi},
		ExcludeSports: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.VenueKalshi])

	entries, err := db.ListMarketIndexByPlatform(context.Background(), domain.VenueKalshi)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pol-1", entries[0].MarketID)
}

func TestSync_UnregisteredVenueYieldsZero(t *testing.T) {
	db := newTestDB(t)
	reg := venues.Registry{}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	e := NewEngine(db, reg, HashEmbedder{}, clk, zerolog.Nop())

	counts, err := e.Sync(context.Background(), SyncOptions{Platforms: []domain.Venue{domain.VenuePolymarket}})
	require.NoError(t, err)
	assert.Equal(t, 0, counts[domain.VenuePolymarket])
}
