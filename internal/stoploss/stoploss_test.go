package stoploss

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketwatch/agentcore/internal/clock"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/notifier"
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

type fakeAdapter struct {
	platform domain.Venue
	calls    int
}

func (f *fakeAdapter) Platform() domain.Venue { return f.platform }
func (f *fakeAdapter) ListPositions(context.Context, venues.Credentials) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakeAdapter) GetMarket(context.Context, string) (domain.Market, error) { return domain.Market{}, nil }
func (f *fakeAdapter) ExecuteMarketSell(context.Context, venues.Credentials, string, string) (venues.ExecResult, error) {
	f.calls++
	return venues.ExecResult{TxID: "tx1"}, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string, domain.Venue) (venues.Credentials, error) {
	return venues.Credentials{}, nil
}

type recordingSender struct {
	texts []string
}

func (s *recordingSender) SendMessage(_ context.Context, _ domain.Channel, _ string, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func TestScan_S3_DryRunDoesNotCallAdapter(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sender := &recordingSender{}
	n := notifier.New(db, sender, zerolog.Nop())
	adapter := &fakeAdapter{platform: domain.VenuePolymarket}
	registry := venues.Registry{domain.VenuePolymarket: adapter}

	_, err := db.UpsertUser(context.Background(), domain.User{
		ID: "u1", Platform: domain.ChannelTelegram, PlatformUserID: "tg1",
		Settings: domain.UserSettings{StopLossPct: 10},
	})
	require.NoError(t, err)

	pos := domain.Position{ID: "p1", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m1",
		OutcomeID: "m1-YES", Side: domain.SideYES, Shares: 100, AvgPrice: 0.50, CurrentPrice: 0.44}
	pos.Recompute()
	require.NoError(t, db.UpsertPosition(context.Background(), pos))

	e := New(db, registry, stubResolver{}, n, clk, zerolog.Nop(), Config{DryRun: true})
	require.NoError(t, e.Scan(context.Background()))

	assert.Equal(t, 0, adapter.calls)
	trigger, err := db.GetStopLossTrigger(context.Background(), "u1", domain.VenuePolymarket, "m1-YES")
	require.NoError(t, err)
	assert.Equal(t, domain.StopLossDryRun, trigger.Status)
	assert.Equal(t, clk.Now().UnixMilli()+defaultCooldownMS, trigger.CooldownUntil)

	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "Dry run enabled - no trade executed.")
}

func TestScan_AboveThresholdDoesNotTrigger(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sender := &recordingSender{}
	n := notifier.New(db, sender, zerolog.Nop())
	adapter := &fakeAdapter{platform: domain.VenuePolymarket}
	registry := venues.Registry{domain.VenuePolymarket: adapter}

	_, err := db.UpsertUser(context.Background(), domain.User{
		ID: "u1", Platform: domain.ChannelTelegram, PlatformUserID: "tg1",
		Settings: domain.UserSettings{StopLossPct: 10},
	})
	require.NoError(t, err)

	pos := domain.Position{ID: "p1", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m1",
		OutcomeID: "m1-YES", Side: domain.SideYES, Shares: 100, AvgPrice: 0.50, CurrentPrice: 0.48}
	pos.Recompute()
	require.NoError(t, db.UpsertPosition(context.Background(), pos))

	e := New(db, registry, stubResolver{}, n, clk, zerolog.Nop(), Config{DryRun: true})
	require.NoError(t, e.Scan(context.Background()))

	assert.Empty(t, sender.texts)
	_, err = db.GetStopLossTrigger(context.Background(), "u1", domain.VenuePolymarket, "m1-YES")
	assert.Error(t, err)
}

func TestScan_CooldownSkipsRepeatTrigger(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sender := &recordingSender{}
	n := notifier.New(db, sender, zerolog.Nop())
	adapter := &fakeAdapter{platform: domain.VenuePolymarket}
	registry := venues.Registry{domain.VenuePolymarket: adapter}

	_, err := db.UpsertUser(context.Background(), domain.User{
		ID: "u1", Platform: domain.ChannelTelegram, PlatformUserID: "tg1",
		Settings: domain.UserSettings{StopLossPct: 10},
	})
	require.NoError(t, err)

	pos := domain.Position{ID: "p1", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m1",
		OutcomeID: "m1-YES", Side: domain.SideYES, Shares: 100, AvgPrice: 0.50, CurrentPrice: 0.44}
	pos.Recompute()
	require.NoError(t, db.UpsertPosition(context.Background(), pos))

	e := New(db, registry, stubResolver{}, n, clk, zerolog.Nop(), Config{DryRun: true, CooldownMS: 600_000})
	require.NoError(t, e.Scan(context.Background()))
	require.Len(t, sender.texts, 1)

	clk.Advance(time.Minute)
	require.NoError(t, e.Scan(context.Background()))
	assert.Len(t, sender.texts, 1, "second scan within cooldown should not notify again")
}

func TestScan_NonExecutableVenueRecordsFailedStatus(t *testing.T) {
	db := newTestDB(t)
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	sender := &recordingSender{}
	n := notifier.New(db, sender, zerolog.Nop())
	adapter := &fakeAdapter{platform: domain.VenueHyperliquid}
	registry := venues.Registry{domain.VenueHyperliquid: adapter}

	_, err := db.UpsertUser(context.Background(), domain.User{
		ID: "u1", Platform: domain.ChannelTelegram, PlatformUserID: "tg1",
		Settings: domain.UserSettings{StopLossPct: 10},
	})
	require.NoError(t, err)

	pos := domain.Position{ID: "p1", UserID: "u1", Platform: domain.VenueHyperliquid, MarketID: "m1",
		OutcomeID: "m1-long", Side: domain.SideLong, Shares: 100, AvgPrice: 0.50, CurrentPrice: 0.44}
	pos.Recompute()
	require.NoError(t, db.UpsertPosition(context.Background(), pos))

	e := New(db, registry, stubResolver{}, n, clk, zerolog.Nop(), Config{DryRun: false})
	require.NoError(t, e.Scan(context.Background()))

	trigger, err := db.GetStopLossTrigger(context.Background(), "u1", domain.VenueHyperliquid, "m1-long")
	require.NoError(t, err)
	assert.Equal(t, domain.StopLossFailed, trigger.Status)
	assert.NotEmpty(t, trigger.LastError)
}
