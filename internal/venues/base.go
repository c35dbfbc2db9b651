package venues

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/marketwatch/agentcore/internal/coreerr"
	"github.com/marketwatch/agentcore/internal/httpfabric"
)

// base is embedded by every concrete adapter; it centralizes the
// httpfabric call + JSON decode boilerplate so each venue file only
// has to describe its own wire shapes and field mapping.
type base struct {
	platform string
	baseURL  string
	fab      *httpfabric.Fabric
}

func (b base) getJSON(ctx context.Context, path string, query map[string]string, out any) error {
	url := b.baseURL + path
	resp, err := b.fab.Do(ctx, http.MethodGet, url, func(r *resty.Request) *resty.Request {
		if len(query) > 0 {
			r = r.SetQueryParams(query)
		}
		return r
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", b.platform, path, err)
	}
	return nil
}

// notImplementedExec is shared by the read-only/perp adapters, all of
// which decline ExecuteMarketSell (spec §4.C: "perp venues are
// read-only here").
func notImplementedExec(platform string) (ExecResult, error) {
	return ExecResult{}, fmt.Errorf("%s: execute not supported: %w", platform, coreerr.ErrVenueClientError)
}
