// Package auditreg queries smart-contract audit registries. The best
// score across registries wins, matching how listing sites advertise
// "audited by" badges.
package auditreg

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// Registry names one audit provider endpoint.
type Registry struct {
	Name    string
	BaseURL string
}

// Client queries a set of audit registries for a contract address.
type Client struct {
	registries []Registry
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(registries []Registry, gw *gateway.Gateway) *Client {
	return &Client{
		registries: registries,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

type apiAudit struct {
	Score float64 `json:"score"`
}

// Check queries each registry in turn. Registries that error or report a
// zero score are skipped; the result carries the best score found and the
// names of every registry that had an audit on file.
func (c *Client) Check(ctx context.Context, address string) (domain.AuditCheck, error) {
	if len(c.registries) == 0 {
		return domain.AuditCheck{}, fmt.Errorf("auditreg: no registries configured")
	}

	var out domain.AuditCheck
	for _, reg := range c.registries {
		u := fmt.Sprintf("%s/audits/%s", reg.BaseURL, url.PathEscape(address))
		var resp apiAudit
		if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err != nil {
			continue
		}
		if resp.Score <= 0 {
			continue
		}
		out.HasAudit = true
		out.Auditors = append(out.Auditors, reg.Name)
		if resp.Score > out.Score {
			out.Score = resp.Score
		}
	}
	return out, nil
}
