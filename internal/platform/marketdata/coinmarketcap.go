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

// CoinMarketCapClient is the REST client for the CoinMarketCap Pro API.
type CoinMarketCapClient struct {
	baseURL    string
	apiKey     string
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewCoinMarketCapClient creates a CoinMarketCapClient. baseURL is the
// API root, e.g. "https://pro-api.coinmarketcap.com/v1".
func NewCoinMarketCapClient(baseURL, apiKey string, gw *gateway.Gateway) *CoinMarketCapClient {
	return &CoinMarketCapClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

// apiCMCListing is the wire shape of one CoinMarketCap listing.
type apiCMCListing struct {
	ID       int64  `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Platform *struct {
		TokenAddress string `json:"token_address"`
		Slug         string `json:"slug"`
	} `json:"platform"`
	Quote struct {
		USD struct {
			Price            float64 `json:"price"`
			PercentChange24h float64 `json:"percent_change_24h"`
			Volume24h        float64 `json:"volume_24h"`
			MarketCap        float64 `json:"market_cap"`
		} `json:"USD"`
	} `json:"quote"`
}

type apiCMCResponse struct {
	Data []apiCMCListing `json:"data"`
}

// Listings returns the latest listings as normalized tokens.
func (c *CoinMarketCapClient) Listings(ctx context.Context) ([]domain.Token, error) {
	params := url.Values{}
	params.Set("start", "1")
	params.Set("limit", strconv.Itoa(defaultListingLimit))
	params.Set("convert", "USD")
	u := c.baseURL + "/cryptocurrency/listings/latest?" + params.Encode()

	header := http.Header{}
	header.Set("X-CMC_PRO_API_KEY", c.apiKey)

	var resp apiCMCResponse
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, header, &resp); err != nil {
		return nil, fmt.Errorf("coinmarketcap: listings: %w", err)
	}

	now := time.Now().UTC()
	tokens := make([]domain.Token, 0, len(resp.Data))
	for _, l := range resp.Data {
		t := domain.Token{
			Symbol:    l.Symbol,
			Name:      l.Name,
			Price:     l.Quote.USD.Price,
			Change24h: l.Quote.USD.PercentChange24h,
			Volume24h: l.Quote.USD.Volume24h,
			MarketCap: l.Quote.USD.MarketCap,
			Source:    "coinmarketcap",
			ListedAt:  now,
		}
		if l.Platform != nil {
			t.Address = l.Platform.TokenAddress
			t.Chain = DetectChain(l.Platform.Slug)
		} else {
			t.Chain = DetectChain(l.Symbol)
		}
		tokens = append(tokens, t)
	}
	return tokens, nil
}
