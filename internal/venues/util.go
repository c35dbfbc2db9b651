package venues

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/marketwatch/agentcore/internal/httpfabric"
)

func decodeInto(body []byte, out any) error {
	return json.Unmarshal(body, out)
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func parseFloatOrZero(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// postJSON issues a POST with a JSON body through the shared Fabric,
// returning the raw response body for callers to decode.
func postJSON(ctx context.Context, fab *httpfabric.Fabric, url string, body any) ([]byte, error) {
	resp, err := fab.Do(ctx, http.MethodPost, url, func(r *resty.Request) *resty.Request {
		return r.SetBody(body)
	})
	if err != nil {
		return nil, err
	}
	return resp.Body(), nil
}
