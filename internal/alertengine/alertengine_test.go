package alertengine

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
	market   domain.Market
}

func (f *fakeAdapter) Platform() domain.Venue { return f.platform }
func (f *fakeAdapter) ListPositions(context.Context, venues.Credentials) ([]domain.Position, error) {
	return nil, nil
}
func (f *fakeAdapter) GetMarket(context.Context, string) (domain.Market, error) { return f.market, nil }
func (f *fakeAdapter) ExecuteMarketSell(context.Context, venues.Credentials, string, string) (venues.ExecResult, error) {
	return venues.ExecResult{}, nil
}

type recordingSender struct {
	texts []string
}

func (s *recordingSender) SendMessage(_ context.Context, _ domain.Channel, _ string, text string) error {
	s.texts = append(s.texts, text)
	return nil
}

func setup(t *testing.T, market domain.Market) (*Engine, *store.DB, *recordingSender, *clock.Fake) {
	db := newTestDB(t)
	sender := &recordingSender{}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	n := notifier.New(db, sender, zerolog.Nop())
	registry := venues.Registry{domain.VenuePolymarket: &fakeAdapter{platform: domain.VenuePolymarket, market: market}}
	e := New(db, registry, n, clk, zerolog.Nop(), Config{})

	user := domain.User{ID: "u1", Platform: domain.ChannelTelegram, PlatformUserID: "tg1"}
	_, err := db.UpsertUser(context.Background(), user)
	require.NoError(t, err)
	return e, db, sender, clk
}

func TestScan_S1_PriceAboveTriggersOnSecondTick(t *testing.T) {
	market := domain.Market{Platform: domain.VenuePolymarket, MarketID: "m1", Question: "Will it happen?",
		Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.715}}}
	e, db, sender, clk := setup(t, market)

	alert := domain.Alert{ID: "a1", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m1", Enabled: true,
		Condition: domain.AlertCondition{Type: domain.ConditionPriceAbove, Threshold: 0.72}}
	require.NoError(t, db.UpsertAlert(context.Background(), alert))

	require.NoError(t, e.Scan(context.Background()))
	got, err := db.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, got.Triggered)
	assert.Empty(t, sender.texts)

	clk.Advance(time.Minute)
	adapter := e.registry[domain.VenuePolymarket].(*fakeAdapter)
	adapter.market.Outcomes[0].Price = 0.725

	require.NoError(t, e.Scan(context.Background()))
	got, err = db.GetAlert(context.Background(), "a1")
	require.NoError(t, err)
	assert.True(t, got.Triggered)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "72.5¢")
	assert.Contains(t, sender.texts[0], "above 72.0¢")
}

func TestScan_S2_PriceChangePctWithWindow(t *testing.T) {
	market := domain.Market{Platform: domain.VenuePolymarket, MarketID: "m2", Question: "Will rates rise?",
		Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.40}}}
	e, db, sender, clk := setup(t, market)

	alert := domain.Alert{ID: "a2", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m2", Enabled: true,
		Condition: domain.AlertCondition{Type: domain.ConditionPriceChangePct, Threshold: 5, Direction: domain.DirectionUp, TimeWindowSecs: 600}}
	require.NoError(t, db.UpsertAlert(context.Background(), alert))

	require.NoError(t, e.Scan(context.Background()))
	assert.Empty(t, sender.texts)

	clk.Advance(500 * time.Second)
	adapter := e.registry[domain.VenuePolymarket].(*fakeAdapter)
	adapter.market.Outcomes[0].Price = 0.424

	require.NoError(t, e.Scan(context.Background()))
	got, err := db.GetAlert(context.Background(), "a2")
	require.NoError(t, err)
	assert.True(t, got.Triggered)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "+6.00%")
	assert.Contains(t, sender.texts[0], "40.0¢ → 42.4¢")
}

func TestScan_PriceChangePct_StaleWindowIsIgnored(t *testing.T) {
	market := domain.Market{Platform: domain.VenuePolymarket, MarketID: "m3", Question: "Q",
		Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.40}}}
	e, db, sender, clk := setup(t, market)

	alert := domain.Alert{ID: "a3", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m3", Enabled: true,
		Condition: domain.AlertCondition{Type: domain.ConditionPriceChangePct, Threshold: 5, Direction: domain.DirectionUp, TimeWindowSecs: 600}}
	require.NoError(t, db.UpsertAlert(context.Background(), alert))
	require.NoError(t, e.Scan(context.Background()))

	clk.Advance(700 * time.Second)
	adapter := e.registry[domain.VenuePolymarket].(*fakeAdapter)
	adapter.market.Outcomes[0].Price = 0.424

	require.NoError(t, e.Scan(context.Background()))
	got, err := db.GetAlert(context.Background(), "a3")
	require.NoError(t, err)
	assert.False(t, got.Triggered)
	assert.Empty(t, sender.texts)
}

func TestScan_VolumeSpike_RequiresPositivePrevVolume(t *testing.T) {
	vol := 100.0
	market := domain.Market{Platform: domain.VenuePolymarket, MarketID: "m4", Question: "Q",
		Outcomes: []domain.Outcome{{Name: "Yes", Price: 0.5}}, Volume24h: &vol}
	e, db, sender, clk := setup(t, market)

	alert := domain.Alert{ID: "a4", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m4", Enabled: true,
		Condition: domain.AlertCondition{Type: domain.ConditionVolumeSpike, Threshold: 3}}
	require.NoError(t, db.UpsertAlert(context.Background(), alert))
	require.NoError(t, e.Scan(context.Background())) // establishes prev volume = 100

	clk.Advance(time.Minute)
	newVol := 400.0
	adapter := e.registry[domain.VenuePolymarket].(*fakeAdapter)
	adapter.market.Volume24h = &newVol

	require.NoError(t, e.Scan(context.Background()))
	got, err := db.GetAlert(context.Background(), "a4")
	require.NoError(t, err)
	assert.True(t, got.Triggered)
	require.Len(t, sender.texts, 1)
}

func TestScan_MissingPrimaryOutcomeAbortsSilently(t *testing.T) {
	market := domain.Market{Platform: domain.VenuePolymarket, MarketID: "m5", Question: "Q"}
	e, db, sender, _ := setup(t, market)

	alert := domain.Alert{ID: "a5", UserID: "u1", Platform: domain.VenuePolymarket, MarketID: "m5", Enabled: true,
		Condition: domain.AlertCondition{Type: domain.ConditionPriceAbove, Threshold: 0.5}}
	require.NoError(t, db.UpsertAlert(context.Background(), alert))

	require.NoError(t, e.Scan(context.Background()))
	got, err := db.GetAlert(context.Background(), "a5")
	require.NoError(t, err)
	assert.False(t, got.Triggered)
	assert.Empty(t, sender.texts)
}
