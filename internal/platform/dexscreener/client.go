// Package dexscreener wraps the DEXScreener pair API for liquidity checks.
package dexscreener

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// Client is the REST client for the DEXScreener API.
type Client struct {
	baseURL         string
	minLiquidityUSD float64
	gw              *gateway.Gateway
	httpClient      *http.Client
}

// NewClient creates a Client. baseURL is the API root, e.g.
// "https://api.dexscreener.com". minLiquidityUSD is the threshold below
// which HasLiquidity reports false.
func NewClient(baseURL string, minLiquidityUSD float64, gw *gateway.Gateway) *Client {
	return &Client{
		baseURL:         baseURL,
		minLiquidityUSD: minLiquidityUSD,
		gw:              gw,
		httpClient:      fetch.NewHTTPClient(),
	}
}

// apiPair is the wire shape of one trading pair.
type apiPair struct {
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
}

type apiResponse struct {
	Pairs []apiPair `json:"pairs"`
}

// CheckLiquidity sums the USD liquidity across every pair listing the
// token. A token with no pairs at all has zero liquidity, which is a
// valid answer, not an error.
func (c *Client) CheckLiquidity(ctx context.Context, address string) (domain.LiquidityCheck, error) {
	u := c.baseURL + "/latest/dex/tokens/" + url.PathEscape(address)

	var resp apiResponse
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err != nil {
		return domain.LiquidityCheck{}, fmt.Errorf("dexscreener: liquidity %s: %w", address, err)
	}

	var totalUSD float64
	for _, p := range resp.Pairs {
		totalUSD += p.Liquidity.USD
	}

	return domain.LiquidityCheck{
		HasLiquidity: totalUSD > c.minLiquidityUSD,
		LiquidityUSD: totalUSD,
		PairCount:    len(resp.Pairs),
	}, nil
}
