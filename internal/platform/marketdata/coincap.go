// Package marketdata wraps the listing providers (CoinCap and
// CoinMarketCap) that feed the analysis loop with candidate tokens.
package marketdata

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// defaultListingLimit is how many assets one listing fetch returns.
const defaultListingLimit = 100

// CoinCapClient is the REST client for the CoinCap asset API.
type CoinCapClient struct {
	baseURL    string
	apiKey     string
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewCoinCapClient creates a CoinCapClient. baseURL is the API root, e.g.
// "https://api.coincap.io/v2".
func NewCoinCapClient(baseURL, apiKey string, gw *gateway.Gateway) *CoinCapClient {
	return &CoinCapClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

// apiCoinCapAsset is the wire shape of one CoinCap asset. Numbers arrive
// as decimal strings.
type apiCoinCapAsset struct {
	ID               string `json:"id"`
	Symbol           string `json:"symbol"`
	Name             string `json:"name"`
	PriceUsd         string `json:"priceUsd"`
	ChangePercent24h string `json:"changePercent24Hr"`
	VolumeUsd24h     string `json:"volumeUsd24Hr"`
	MarketCapUsd     string `json:"marketCapUsd"`
}

type apiCoinCapResponse struct {
	Data []apiCoinCapAsset `json:"data"`
}

// Listings returns the current top assets as normalized tokens.
func (c *CoinCapClient) Listings(ctx context.Context) ([]domain.Token, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(defaultListingLimit))
	u := c.baseURL + "/assets?" + params.Encode()

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("Authorization", "Bearer "+c.apiKey)
	}

	var resp apiCoinCapResponse
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, header, &resp); err != nil {
		return nil, fmt.Errorf("coincap: listings: %w", err)
	}

	now := time.Now().UTC()
	tokens := make([]domain.Token, 0, len(resp.Data))
	for _, a := range resp.Data {
		tokens = append(tokens, domain.Token{
			Symbol:    a.Symbol,
			Name:      a.Name,
			Chain:     DetectChain(a.ID),
			Price:     parseFloat(a.PriceUsd),
			Change24h: parseFloat(a.ChangePercent24h),
			Volume24h: parseFloat(a.VolumeUsd24h),
			MarketCap: parseFloat(a.MarketCapUsd),
			Source:    "coincap",
			ListedAt:  now,
		})
	}
	return tokens, nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
