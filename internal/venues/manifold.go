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

// Manifold implements Adapter against the Manifold Markets API, whose
// probabilities already live in [0,1] (spec §4.C).
type Manifold struct {
	base
}

func NewManifold(fab *httpfabric.Fabric, baseURL string) *Manifold {
	return &Manifold{base{platform: string(domain.VenueManifold), baseURL: baseURL, fab: fab}}
}

func (m *Manifold) Platform() domain.Venue { return domain.VenueManifold }

type manifoldBetDTO struct {
	ContractID string  `json:"contractId"`
	Outcome    string  `json:"outcome"`
	Shares     float64 `json:"shares"`
	Amount     float64 `json:"amount"`
	ProbAfter  float64 `json:"probAfter"`
	CreatedAt  int64   `json:"createdTime"`
}

func (m *Manifold) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	var bets []manifoldBetDTO
	if err := m.getJSON(ctx, "/v0/bets", map[string]string{"userId": creds.ExtraJSON}, &bets); err != nil {
		return nil, err
	}

	out := make([]domain.Position, 0, len(bets))
	for _, b := range bets {
		if b.Shares == 0 {
			continue
		}
		price := b.ProbAfter
		side := domain.SideYES
		if b.Outcome == "NO" {
			side = domain.SideNO
			price = ManifoldNoPrice(b.ProbAfter)
		}
		avg := 0.0
		if b.Shares != 0 {
			avg = b.Amount / b.Shares
		}
		pos := domain.Position{
			Platform:     domain.VenueManifold,
			MarketID:     b.ContractID,
			OutcomeID:    b.ContractID + ":" + b.Outcome,
			Side:         side,
			Shares:       b.Shares,
			AvgPrice:     avg,
			CurrentPrice: price,
			OpenedAt:     b.CreatedAt,
		}
		pos.Recompute()
		out = append(out, pos)
	}
	return out, nil
}

type manifoldMarketDTO struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Probability float64  `json:"probability"`
	Volume      *float64 `json:"volume"`
}

func (m *Manifold) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var dto manifoldMarketDTO
	if err := m.getJSON(ctx, "/v0/market/"+marketID, nil, &dto); err != nil {
		return domain.Market{}, err
	}
	return domain.Market{
		Platform: domain.VenueManifold,
		MarketID: dto.ID,
		Question: dto.Question,
		Outcomes: []domain.Outcome{
			{Name: "yes", Price: dto.Probability},
			{Name: "no", Price: ManifoldNoPrice(dto.Probability)},
		},
		Volume24h: dto.Volume,
	}, nil
}

// ListMarketPage pages Manifold's public markets listing.
func (m *Manifold) ListMarketPage(ctx context.Context, status string, page, pageSize int) (ListingPage, error) {
	var dtos []manifoldMarketDTO
	query := map[string]string{
		"limit": fmt.Sprintf("%d", pageSize),
		"order": "created-time",
	}
	if err := m.getJSON(ctx, "/v0/markets", query, &dtos); err != nil {
		return ListingPage{}, err
	}

	out := ListingPage{HasMore: len(dtos) == pageSize}
	for _, d := range dtos {
		out.Entries = append(out.Entries, domain.MarketIndexEntry{
			Platform:     domain.VenueManifold,
			MarketID:     d.ID,
			Question:     d.Question,
			OutcomesJSON: toJSON([]domain.Outcome{{Name: "yes", Price: d.Probability}, {Name: "no", Price: ManifoldNoPrice(d.Probability)}}),
			Status:       status,
			Volume24h:    d.Volume,
		})
	}
	return out, nil
}

type manifoldSellResp struct {
	BetID string `json:"betId"`
	Error string `json:"message"`
}

func (m *Manifold) ExecuteMarketSell(ctx context.Context, creds Credentials, outcomeID, sizeOrAll string) (ExecResult, error) {
	body := map[string]any{"contractId": outcomeID, "shares": sizeOrAll}
	resp, err := m.fab.Do(ctx, http.MethodPost, m.baseURL+"/v0/sell", func(r *resty.Request) *resty.Request {
		return r.SetHeader("Authorization", "Key "+creds.APIKey).SetBody(body)
	})
	if err != nil {
		return ExecResult{}, err
	}
	var out manifoldSellResp
	if err := decodeInto(resp.Body(), &out); err != nil {
		return ExecResult{}, fmt.Errorf("manifold: decode sell response: %w", err)
	}
	if out.BetID == "" {
		return ExecResult{}, fmt.Errorf("manifold: sell failed: %s: %w", out.Error, coreerr.ErrExecutionFailed)
	}
	return ExecResult{TxID: out.BetID}, nil
}
