// Package venues implements the VenueAdapter set (spec §4.C): one
// adapter per external market/exchange, each translating venue-specific
// wire formats into the canonical domain.Position/domain.Market shapes.
package venues

import (
	"context"

	"github.com/marketwatch/agentcore/internal/domain"
)

// Credentials carries whatever a venue's execute path needs. Read-only
// adapters ignore it entirely.
type Credentials struct {
	APIKey    string
	APISecret string
	Wallet    string
	ExtraJSON string
}

// ExecResult is the outcome of ExecuteMarketSell.
type ExecResult struct {
	Signature string
	TxID      string
}

// Adapter is the uniform interface every venue exposes (spec §4.C).
// ExecuteMarketSell is only meaningful for Polymarket, Kalshi, and
// Manifold; perp/feed adapters return coreerr.ErrVenueClientError for it.
type Adapter interface {
	Platform() domain.Venue
	ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error)
	GetMarket(ctx context.Context, marketID string) (domain.Market, error)
	ExecuteMarketSell(ctx context.Context, creds Credentials, marketOrOutcomeID string, sizeOrAll string) (ExecResult, error)
}

// Registry maps a Venue to its Adapter, the lookup PortfolioSync and
// StopLossEngine use to fan work out per platform.
type Registry map[domain.Venue]Adapter

func (r Registry) Get(v domain.Venue) (Adapter, bool) {
	a, ok := r[v]
	return a, ok
}

// ListingPage is one page of a venue's market catalog, the MarketIndex
// ingestion's unit of work (spec §4.D).
type ListingPage struct {
	Entries []domain.MarketIndexEntry
	HasMore bool
}

// Lister is implemented by adapters that can page a full market
// catalog (Polymarket, Kalshi, Manifold). Perp/feed adapters, which
// only expose single-symbol lookups, do not implement it; ingestion
// skips any venue whose Adapter doesn't satisfy Lister.
type Lister interface {
	ListMarketPage(ctx context.Context, status string, page, pageSize int) (ListingPage, error)
}

// CredentialResolver looks up the secret material for a (user, venue)
// pair. The Store only tracks enablement bookkeeping (the
// TradingCredential row); actual API keys live wherever the deployment
// keeps its secrets, behind this capability.
type CredentialResolver interface {
	Resolve(ctx context.Context, userID string, platform domain.Venue) (Credentials, error)
}
