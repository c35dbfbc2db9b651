package venues

import (
	"context"
	"fmt"

	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// perpPositionDTO is the common shape across the perp venues' position
// endpoints once field-renamed: entry price, unrealized pnl, and a
// signed size whose sign determines LONG/SHORT (spec §4.C).
type perpPositionDTO struct {
	Symbol        string
	EntryPrice    float64
	UnrealizedPnl float64
	SignedSize    float64
	OpenedAtMS    int64
}

func perpDTOToPosition(platform domain.Venue, d perpPositionDTO) domain.Position {
	cur := PerpCurrentPrice(d.EntryPrice, d.UnrealizedPnl, absf(d.SignedSize))
	pos := domain.Position{
		Platform:     platform,
		MarketID:     d.Symbol,
		OutcomeID:    d.Symbol,
		Side:         DeriveSideFromSigned(d.SignedSize),
		Shares:       absf(d.SignedSize),
		AvgPrice:     d.EntryPrice,
		CurrentPrice: cur,
		OpenedAt:     d.OpenedAtMS,
	}
	pos.Recompute()
	return pos
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// Hyperliquid is a read-only adapter over Hyperliquid's info API.
type Hyperliquid struct{ base }

func NewHyperliquid(fab *httpfabric.Fabric, baseURL string) *Hyperliquid {
	return &Hyperliquid{base{platform: string(domain.VenueHyperliquid), baseURL: baseURL, fab: fab}}
}
func (h *Hyperliquid) Platform() domain.Venue { return domain.VenueHyperliquid }

type hyperliquidAssetPositionDTO struct {
	Position struct {
		Coin          string `json:"coin"`
		EntryPx       string `json:"entryPx"`
		Szi           string `json:"szi"`
		UnrealizedPnl string `json:"unrealizedPnl"`
	} `json:"position"`
}

func (h *Hyperliquid) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	var wrapper struct {
		AssetPositions []hyperliquidAssetPositionDTO `json:"assetPositions"`
	}
	body := map[string]any{"type": "clearinghouseState", "user": creds.Wallet}
	resp, err := postJSON(ctx, h.fab, h.baseURL+"/info", body)
	if err != nil {
		return nil, err
	}
	if err := decodeInto(resp, &wrapper); err != nil {
		return nil, fmt.Errorf("hyperliquid: decode positions: %w", err)
	}
	out := make([]domain.Position, 0, len(wrapper.AssetPositions))
	for _, ap := range wrapper.AssetPositions {
		out = append(out, perpDTOToPosition(domain.VenueHyperliquid, perpPositionDTO{
			Symbol:        ap.Position.Coin,
			EntryPrice:    parseFloatOrZero(ap.Position.EntryPx),
			UnrealizedPnl: parseFloatOrZero(ap.Position.UnrealizedPnl),
			SignedSize:    parseFloatOrZero(ap.Position.Szi),
		}))
	}
	return out, nil
}

func (h *Hyperliquid) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var wrapper struct {
		MarkPx string `json:"markPx"`
	}
	if err := h.getJSON(ctx, "/info?type=meta&coin="+marketID, nil, &wrapper); err != nil {
		return domain.Market{}, err
	}
	return domain.Market{
		Platform: domain.VenueHyperliquid,
		MarketID: marketID,
		Question: marketID + " perp",
		Outcomes: []domain.Outcome{{Name: "mark", Price: parseFloatOrZero(wrapper.MarkPx)}},
	}, nil
}

func (h *Hyperliquid) ExecuteMarketSell(ctx context.Context, creds Credentials, marketOrOutcomeID, sizeOrAll string) (ExecResult, error) {
	return notImplementedExec(h.platform)
}

// binanceLikePerp implements the shared read-only perp adapter shape
// for Binance, Bybit, and MEXC. All three decode the same
// entryPrice/unRealizedProfit/positionAmt JSON fields; only the endpoint
// paths and the symbol query parameter are configured per instance.
type binanceLikePerp struct {
	base
	venue           domain.Venue
	positionsPath   string
	markPricePath   string
	symbolParamName string
}

func (p *binanceLikePerp) Platform() domain.Venue { return p.venue }

type futuresPositionDTO struct {
	Symbol           string `json:"symbol"`
	EntryPrice       string `json:"entryPrice"`
	UnrealizedProfit string `json:"unRealizedProfit"`
	PositionAmt      string `json:"positionAmt"`
}

func (p *binanceLikePerp) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	var dtos []futuresPositionDTO
	if err := p.getJSON(ctx, p.positionsPath, map[string]string{"apiKey": creds.APIKey}, &dtos); err != nil {
		return nil, err
	}
	out := make([]domain.Position, 0, len(dtos))
	for _, d := range dtos {
		amt := parseFloatOrZero(d.PositionAmt)
		if amt == 0 {
			continue
		}
		out = append(out, perpDTOToPosition(p.venue, perpPositionDTO{
			Symbol:        d.Symbol,
			EntryPrice:    parseFloatOrZero(d.EntryPrice),
			UnrealizedPnl: parseFloatOrZero(d.UnrealizedProfit),
			SignedSize:    amt,
		}))
	}
	return out, nil
}

type markPriceDTO struct {
	Symbol   string `json:"symbol"`
	MarkPrice string `json:"markPrice"`
}

func (p *binanceLikePerp) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var dto markPriceDTO
	if err := p.getJSON(ctx, p.markPricePath, map[string]string{p.symbolParamName: marketID}, &dto); err != nil {
		return domain.Market{}, err
	}
	return domain.Market{
		Platform: p.venue,
		MarketID: dto.Symbol,
		Question: dto.Symbol + " perp",
		Outcomes: []domain.Outcome{{Name: "mark", Price: parseFloatOrZero(dto.MarkPrice)}},
	}, nil
}

func (p *binanceLikePerp) ExecuteMarketSell(ctx context.Context, creds Credentials, marketOrOutcomeID, sizeOrAll string) (ExecResult, error) {
	return notImplementedExec(string(p.venue))
}

func NewBinance(fab *httpfabric.Fabric, baseURL string) Adapter {
	return &binanceLikePerp{
		base:            base{platform: string(domain.VenueBinance), baseURL: baseURL, fab: fab},
		venue:           domain.VenueBinance,
		positionsPath:   "/fapi/v2/positionRisk",
		markPricePath:   "/fapi/v1/premiumIndex",
		symbolParamName: "symbol",
	}
}

func NewBybit(fab *httpfabric.Fabric, baseURL string) Adapter {
	return &binanceLikePerp{
		base:            base{platform: string(domain.VenueBybit), baseURL: baseURL, fab: fab},
		venue:           domain.VenueBybit,
		positionsPath:   "/v5/position/list",
		markPricePath:   "/v5/market/tickers",
		symbolParamName: "symbol",
	}
}

func NewMEXC(fab *httpfabric.Fabric, baseURL string) Adapter {
	return &binanceLikePerp{
		base:            base{platform: string(domain.VenueMEXC), baseURL: baseURL, fab: fab},
		venue:           domain.VenueMEXC,
		positionsPath:   "/api/v1/private/position/open_positions",
		markPricePath:   "/api/v1/contract/fair_price",
		symbolParamName: "symbol",
	}
}
