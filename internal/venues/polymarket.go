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

// Polymarket talks to the Gamma (market metadata) and CLOB (positions,
// orders) APIs, grounded on GoPolymarket-polymarket-trader's split
// between a read-only markets client and an authenticated CLOB client.
type Polymarket struct {
	base
	clobURL string
}

func NewPolymarket(fab *httpfabric.Fabric, gammaURL, clobURL string) *Polymarket {
	return &Polymarket{base: base{platform: string(domain.VenuePolymarket), baseURL: gammaURL, fab: fab}, clobURL: clobURL}
}

func (p *Polymarket) Platform() domain.Venue { return domain.VenuePolymarket }

type polymarketPositionDTO struct {
	Market    string  `json:"market"`
	Asset     string  `json:"asset"`
	Outcome   string  `json:"outcome"`
	Size      float64 `json:"size,string"`
	AvgPrice  float64 `json:"avgPrice,string"`
	CurPrice  float64 `json:"curPrice,string"`
	UpdatedAt int64   `json:"updatedAtMs"`
}

func (p *Polymarket) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	var dtos []polymarketPositionDTO
	url := p.clobURL + "/positions"
	resp, err := p.fab.Do(ctx, http.MethodGet, url, func(r *resty.Request) *resty.Request {
		if creds.Wallet != "" {
			r = r.SetQueryParam("user", creds.Wallet)
		}
		return r
	})
	if err != nil {
		return nil, err
	}
	if err := decodeInto(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("polymarket: decode positions: %w", err)
	}

	out := make([]domain.Position, 0, len(dtos))
	for _, d := range dtos {
		pos := domain.Position{
			Platform:     domain.VenuePolymarket,
			MarketID:     d.Market,
			OutcomeID:    d.Asset,
			Side:         DeriveSideFromOutcomeText(d.Outcome),
			Shares:       d.Size,
			AvgPrice:     d.AvgPrice,
			CurrentPrice: d.CurPrice,
			OpenedAt:     d.UpdatedAt,
		}
		pos.Recompute()
		out = append(out, pos)
	}
	return out, nil
}

type polymarketMarketDTO struct {
	ConditionID string   `json:"conditionId"`
	Question    string   `json:"question"`
	Outcomes    []string `json:"outcomes"`
	OutcomePric []string `json:"outcomePrices"`
	Volume24hr  *float64 `json:"volume24hr"`
}

func (p *Polymarket) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var dto polymarketMarketDTO
	if err := p.getJSON(ctx, "/markets/"+marketID, nil, &dto); err != nil {
		return domain.Market{}, err
	}
	m := domain.Market{
		Platform:  domain.VenuePolymarket,
		MarketID:  dto.ConditionID,
		Question:  dto.Question,
		Volume24h: dto.Volume24hr,
	}
	for i, name := range dto.Outcomes {
		price := 0.0
		if i < len(dto.OutcomePric) {
			price = parseFloatOrZero(dto.OutcomePric[i])
		}
		m.Outcomes = append(m.Outcomes, domain.Outcome{Name: name, Price: price})
	}
	return m, nil
}

type polymarketOrderResp struct {
	Success bool   `json:"success"`
	Error   string `json:"errorMsg"`
	OrderID string `json:"orderID"`
}

// ListMarketPage pages the Gamma markets listing, page size fixed at
// the caller's request (spec §4.D ingestion pages at 100).
func (p *Polymarket) ListMarketPage(ctx context.Context, status string, page, pageSize int) (ListingPage, error) {
	var dtos []polymarketMarketDTO
	query := map[string]string{
		"limit":  fmt.Sprintf("%d", pageSize),
		"offset": fmt.Sprintf("%d", page*pageSize),
	}
	if status != "" && status != "all" {
		query["closed"] = fmt.Sprintf("%t", status == "closed" || status == "settled")
	}
	if err := p.getJSON(ctx, "/markets", query, &dtos); err != nil {
		return ListingPage{}, err
	}

	out := ListingPage{HasMore: len(dtos) == pageSize}
	for _, d := range dtos {
		out.Entries = append(out.Entries, polymarketDTOToEntry(d))
	}
	return out, nil
}

func polymarketDTOToEntry(d polymarketMarketDTO) domain.MarketIndexEntry {
	return domain.MarketIndexEntry{
		Platform:     domain.VenuePolymarket,
		MarketID:     d.ConditionID,
		Question:     d.Question,
		OutcomesJSON: toJSON(d.Outcomes),
		Volume24h:    d.Volume24hr,
	}
}

func (p *Polymarket) ExecuteMarketSell(ctx context.Context, creds Credentials, outcomeID, sizeOrAll string) (ExecResult, error) {
	var resp polymarketOrderResp
	body := map[string]any{
		"tokenID": outcomeID,
		"side":    "SELL",
		"size":    sizeOrAll,
	}
	httpResp, err := p.fab.Do(ctx, http.MethodPost, p.clobURL+"/order", func(r *resty.Request) *resty.Request {
		return r.SetHeader("POLY-API-KEY", creds.APIKey).SetBody(body)
	})
	if err != nil {
		return ExecResult{}, err
	}
	if err := decodeInto(httpResp.Body(), &resp); err != nil {
		return ExecResult{}, fmt.Errorf("polymarket: decode order response: %w", err)
	}
	if !resp.Success {
		return ExecResult{}, fmt.Errorf("polymarket: order rejected: %s: %w", resp.Error, coreerr.ErrExecutionFailed)
	}
	return ExecResult{Signature: resp.OrderID}, nil
}
