package venues

import (
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// Endpoints holds the base URL for every venue's adapter, resolved
// from config at wiring time.
type Endpoints struct {
	PolymarketGammaURL string
	PolymarketCLOBURL  string
	KalshiURL          string
	ManifoldURL        string
	HyperliquidURL     string
	BinanceURL         string
	BybitURL           string
	MEXCURL            string
	MetaculusURL       string
}

// NewRegistry wires every adapter against a shared Fabric.
func NewRegistry(fab *httpfabric.Fabric, ep Endpoints) Registry {
	return Registry{
		domain.VenuePolymarket:  NewPolymarket(fab, ep.PolymarketGammaURL, ep.PolymarketCLOBURL),
		domain.VenueKalshi:      NewKalshi(fab, ep.KalshiURL),
		domain.VenueManifold:    NewManifold(fab, ep.ManifoldURL),
		domain.VenueHyperliquid: NewHyperliquid(fab, ep.HyperliquidURL),
		domain.VenueBinance:     NewBinance(fab, ep.BinanceURL),
		domain.VenueBybit:       NewBybit(fab, ep.BybitURL),
		domain.VenueMEXC:        NewMEXC(fab, ep.MEXCURL),
		domain.VenueMetaculus:   NewMetaculus(fab, ep.MetaculusURL),
	}
}
