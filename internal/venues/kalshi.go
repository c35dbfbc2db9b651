package venues

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// Kalshi implements Adapter against Kalshi's trade-api, where prices
// arrive in cents-as-percent form for some endpoints and as a raw
// fraction for others (spec §4.C's fractional-vs-percent rule).
type Kalshi struct {
	base
}

func NewKalshi(fab *httpfabric.Fabric, baseURL string) *Kalshi {
	return &Kalshi{base{platform: string(domain.VenueKalshi), baseURL: baseURL, fab: fab}}
}

func (k *Kalshi) Platform() domain.Venue { return domain.VenueKalshi }

type kalshiPositionDTO struct {
	Ticker       string  `json:"ticker"`
	MarketResult string  `json:"market_result"`
	Side         string  `json:"side"`
	Position     float64 `json:"position"`
	AvgPrice     float64 `json:"market_exposure_cost_cents"`
	LastPrice    float64 `json:"last_price"`
}

func (k *Kalshi) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	var wrapper struct {
		MarketPositions []kalshiPositionDTO `json:"market_positions"`
	}
	if err := k.getJSON(ctx, "/portfolio/positions", map[string]string{"api_key": creds.APIKey}, &wrapper); err != nil {
		return nil, err
	}

	out := make([]domain.Position, 0, len(wrapper.MarketPositions))
	for _, d := range wrapper.MarketPositions {
		side := domain.SideYES
		if d.Side == "no" {
			side = domain.SideNO
		}
		pos := domain.Position{
			Platform:     domain.VenueKalshi,
			MarketID:     d.Ticker,
			OutcomeID:    d.Ticker + ":" + d.Side,
			Side:         side,
			Shares:       d.Position,
			AvgPrice:     NormalizeKalshiPrice(d.AvgPrice),
			CurrentPrice: NormalizeKalshiPrice(d.LastPrice),
		}
		pos.Recompute()
		out = append(out, pos)
	}
	return out, nil
}

type kalshiMarketDTO struct {
	Ticker    string  `json:"ticker"`
	Title     string  `json:"title"`
	YesBid    float64 `json:"yes_bid"`
	NoBid     float64 `json:"no_bid"`
	Volume24h float64 `json:"volume_24h"`
}

func (k *Kalshi) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var wrapper struct {
		Market kalshiMarketDTO `json:"market"`
	}
	if err := k.getJSON(ctx, "/markets/"+marketID, nil, &wrapper); err != nil {
		return domain.Market{}, err
	}
	vol := wrapper.Market.Volume24h
	return domain.Market{
		Platform: domain.VenueKalshi,
		MarketID: wrapper.Market.Ticker,
		Question: wrapper.Market.Title,
		Outcomes: []domain.Outcome{
			{Name: "yes", Price: NormalizeKalshiPrice(wrapper.Market.YesBid)},
			{Name: "no", Price: NormalizeKalshiPrice(wrapper.Market.NoBid)},
		},
		Volume24h: &vol,
	}, nil
}

// ListMarketPage pages Kalshi's markets listing via its cursor param,
// translated here to an offset-style page index for the uniform Lister
// contract (spec §4.D).
func (k *Kalshi) ListMarketPage(ctx context.Context, status string, page, pageSize int) (ListingPage, error) {
	var wrapper struct {
		Markets []kalshiMarketDTO `json:"markets"`
	}
	query := map[string]string{"limit": fmt.Sprintf("%d", pageSize)}
	if status != "" && status != "all" {
		query["status"] = status
	}
	if page > 0 {
		query["cursor"] = fmt.Sprintf("%d", page*pageSize)
	}
	if err := k.getJSON(ctx, "/markets", query, &wrapper); err != nil {
		return ListingPage{}, err
	}

	out := ListingPage{HasMore: len(wrapper.Markets) == pageSize}
	for _, m := range wrapper.Markets {
		vol := m.Volume24h
		out.Entries = append(out.Entries, domain.MarketIndexEntry{
			Platform:  domain.VenueKalshi,
			MarketID:  m.Ticker,
			Question:  m.Title,
			Status:    status,
			Volume24h: &vol,
		})
	}
	return out, nil
}

type kalshiOrderResp struct {
	Order struct {
		OrderID string `json:"order_id"`
	} `json:"order"`
}

func (k *Kalshi) ExecuteMarketSell(ctx context.Context, creds Credentials, marketID, sizeOrAll string) (ExecResult, error) {
	body := map[string]any{
		"ticker": marketID,
		"action": "sell",
		"type":   "market",
		"count":  sizeOrAll,
	}
	resp, err := k.fab.Do(ctx, http.MethodPost, k.baseURL+"/portfolio/orders", func(r *resty.Request) *resty.Request {
		return r.SetHeader("Authorization", "Bearer "+creds.APIKey).SetBody(body)
	})
	if err != nil {
		return ExecResult{}, err
	}
	var out kalshiOrderResp
	if err := decodeInto(resp.Body(), &out); err != nil {
		return ExecResult{}, fmt.Errorf("kalshi: decode order response: %w", err)
	}
	if out.Order.OrderID == "" {
		return ExecResult{}, fmt.Errorf("kalshi: empty order id: %w", coreerr.ErrExecutionFailed)
	}
	return ExecResult{TxID: out.Order.OrderID}, nil
}
