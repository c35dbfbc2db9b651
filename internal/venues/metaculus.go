package venues

import (
	"context"

	"github.com/marketwatch/agentcore/internal/domain"
	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// Metaculus is a feeds-only adapter: forecasting questions have no
// tradeable position, so ListPositions always returns empty and
// ExecuteMarketSell is unsupported.
type Metaculus struct{ base }

func NewMetaculus(fab *httpfabric.Fabric, baseURL string) *Metaculus {
	return &Metaculus{base{platform: string(domain.VenueMetaculus), baseURL: baseURL, fab: fab}}
}

func (m *Metaculus) Platform() domain.Venue { return domain.VenueMetaculus }

func (m *Metaculus) ListPositions(ctx context.Context, creds Credentials) ([]domain.Position, error) {
	return nil, nil
}

type metaculusQuestionDTO struct {
	ID                int     `json:"id"`
	Title             string  `json:"title"`
	CommunityPrediction struct {
		Full struct {
			Q2 float64 `json:"q2"`
		} `json:"full"`
	} `json:"community_prediction"`
}

func (m *Metaculus) GetMarket(ctx context.Context, marketID string) (domain.Market, error) {
	var dto metaculusQuestionDTO
	if err := m.getJSON(ctx, "/questions/"+marketID, nil, &dto); err != nil {
		return domain.Market{}, err
	}
	return domain.Market{
		Platform: domain.VenueMetaculus,
		MarketID: marketID,
		Question: dto.Title,
		Outcomes: []domain.Outcome{{Name: "community", Price: dto.CommunityPrediction.Full.Q2}},
	}, nil
}

func (m *Metaculus) ExecuteMarketSell(ctx context.Context, creds Credentials, marketOrOutcomeID, sizeOrAll string) (ExecResult, error) {
	return notImplementedExec(m.platform)
}
