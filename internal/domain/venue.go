// Package domain holds the core's entity types (spec §3). Venue and
// Channel are kept as distinct types even though both are persisted as
// plain strings, per spec §9's explicit instruction not to guess
// coexistence semantics between venue namespaces (polymarket, kalshi,
// ...) and chat-channel namespaces (telegram, discord, ...).
package domain

// Venue identifies a trading/prediction-market venue the core reads
// positions and markets from.
type Venue string

const (
	VenuePolymarket  Venue = "polymarket"
	VenueKalshi      Venue = "kalshi"
	VenueManifold    Venue = "manifold"
	VenueHyperliquid Venue = "hyperliquid"
	VenueBinance     Venue = "binance"
	VenueBybit       Venue = "bybit"
	VenueMEXC        Venue = "mexc"
	VenueMetaculus   Venue = "metaculus"
)

// Channel identifies a chat/notification routing namespace, distinct
// from Venue even though some string values could coincide in principle.
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelDiscord  Channel = "discord"
	ChannelSlack    Channel = "slack"
)
