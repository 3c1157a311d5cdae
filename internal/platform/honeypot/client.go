// Package honeypot wraps the honeypot.is simulation API, which buys and
// sells a token in a forked environment to detect sell-blocking contracts
// and hidden transfer taxes.
package honeypot

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// Client is the REST client for the honeypot simulation API.
type Client struct {
	baseURL    string
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewClient creates a Client. baseURL is the API root, e.g.
// "https://api.honeypot.is".
func NewClient(baseURL string, gw *gateway.Gateway) *Client {
	return &Client{
		baseURL:    baseURL,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

// apiResponse is the wire shape of /v2/IsHoneypot.
type apiResponse struct {
	HoneypotResult struct {
		IsHoneypot bool `json:"isHoneypot"`
	} `json:"honeypotResult"`
	SimulationResult struct {
		BuyTax  float64 `json:"buyTax"`
		SellTax float64 `json:"sellTax"`
	} `json:"simulationResult"`
}

// chainID maps a supported chain to the API's numeric chain identifier.
func chainID(chain domain.Chain) (int, bool) {
	switch chain {
	case domain.ChainEth:
		return 1, true
	case domain.ChainBsc:
		return 56, true
	default:
		return 0, false
	}
}

// Check runs the honeypot simulation for a token contract.
func (c *Client) Check(ctx context.Context, address string, chain domain.Chain) (domain.HoneypotCheck, error) {
	if !common.IsHexAddress(address) {
		return domain.HoneypotCheck{}, fmt.Errorf("honeypot: invalid token address %q", address)
	}
	id, ok := chainID(chain)
	if !ok {
		return domain.HoneypotCheck{}, fmt.Errorf("honeypot: unsupported chain %q", chain)
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("chainID", fmt.Sprintf("%d", id))
	u := c.baseURL + "/v2/IsHoneypot?" + params.Encode()

	var resp apiResponse
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err != nil {
		return domain.HoneypotCheck{}, fmt.Errorf("honeypot: check %s: %w", address, err)
	}

	return domain.HoneypotCheck{
		IsHoneypot: resp.HoneypotResult.IsHoneypot,
		BuyTaxPct:  resp.SimulationResult.BuyTax,
		SellTaxPct: resp.SimulationResult.SellTax,
	}, nil
}
