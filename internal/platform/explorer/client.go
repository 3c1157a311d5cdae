// Package explorer wraps Etherscan-compatible block explorer APIs
// (Etherscan, BscScan) for holder-distribution lookups and raw token
// transaction logs.
package explorer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/gateway"
	"github.com/tokenscout/tokenscout/internal/platform/fetch"
)

// defaultTxLimit caps how many transactions one log fetch returns.
const defaultTxLimit = 1000

// Endpoint describes one chain's explorer.
type Endpoint struct {
	BaseURL string
	APIKey  string
}

// Config maps chains to their explorer endpoints and carries the
// distribution-health thresholds.
type Config struct {
	Endpoints           map[domain.Chain]Endpoint
	MinHolders          int
	MaxOwnershipPercent float64
}

// Client is the REST client for Etherscan-compatible explorers.
type Client struct {
	cfg        Config
	gw         *gateway.Gateway
	httpClient *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config, gw *gateway.Gateway) *Client {
	return &Client{
		cfg:        cfg,
		gw:         gw,
		httpClient: fetch.NewHTTPClient(),
	}
}

func (c *Client) endpoint(chain domain.Chain) (Endpoint, error) {
	ep, ok := c.cfg.Endpoints[chain]
	if !ok || ep.BaseURL == "" {
		return Endpoint{}, fmt.Errorf("explorer: no endpoint configured for chain %q", chain)
	}
	return ep, nil
}

// apiHolders is the wire shape of the holder-list response.
type apiHolders struct {
	TotalSupply float64 `json:"totalSupply,string"`
	Holders     []struct {
		Address string  `json:"address"`
		Balance float64 `json:"balance,string"`
	} `json:"holders"`
}

// CheckDistribution fetches the holder list and derives the health
// verdict from holder count and top-holder concentration.
func (c *Client) CheckDistribution(ctx context.Context, address string, chain domain.Chain) (domain.DistributionCheck, error) {
	if !common.IsHexAddress(address) {
		return domain.DistributionCheck{}, fmt.Errorf("explorer: invalid token address %q", address)
	}
	ep, err := c.endpoint(chain)
	if err != nil {
		return domain.DistributionCheck{}, err
	}

	u := fmt.Sprintf("%s/token/%s/holders?apikey=%s", ep.BaseURL, url.PathEscape(address), url.QueryEscape(ep.APIKey))

	var resp apiHolders
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err != nil {
		return domain.DistributionCheck{}, fmt.Errorf("explorer: distribution %s: %w", address, err)
	}
	if len(resp.Holders) == 0 || resp.TotalSupply <= 0 {
		return domain.DistributionCheck{TopHolderPct: 100}, nil
	}

	topPct := resp.Holders[0].Balance / resp.TotalSupply * 100
	return domain.DistributionCheck{
		HolderCount:  len(resp.Holders),
		TopHolderPct: topPct,
		IsHealthy:    len(resp.Holders) >= c.cfg.MinHolders && topPct <= c.cfg.MaxOwnershipPercent,
	}, nil
}

// apiTx is the wire shape of one explorer transaction row. Numeric fields
// arrive as decimal strings.
type apiTx struct {
	From         string `json:"from"`
	To           string `json:"to"`
	Value        string `json:"value"`
	GasPrice     string `json:"gasPrice"`
	MaxFeePerGas string `json:"maxFeePerGas"`
	Input        string `json:"input"`
	TimeStamp    string `json:"timeStamp"`
}

type apiTxList struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Result  []apiTx `json:"result"`
}

// Transactions fetches the most recent token transfer log for a contract.
func (c *Client) Transactions(ctx context.Context, address string, chain domain.Chain) ([]domain.TransactionRecord, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("explorer: invalid token address %q", address)
	}
	ep, err := c.endpoint(chain)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "tokentx")
	params.Set("contractaddress", address)
	params.Set("page", "1")
	params.Set("offset", strconv.Itoa(defaultTxLimit))
	params.Set("sort", "desc")
	params.Set("apikey", ep.APIKey)
	u := ep.BaseURL + "/api?" + params.Encode()

	var resp apiTxList
	if err := fetch.GetJSON(ctx, c.gw, c.httpClient, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("explorer: transactions %s: %w", address, err)
	}

	txs := make([]domain.TransactionRecord, 0, len(resp.Result))
	for i := range resp.Result {
		txs = append(txs, resp.Result[i].toDomain())
	}
	return txs, nil
}

func (t *apiTx) toDomain() domain.TransactionRecord {
	rec := domain.TransactionRecord{
		From:         strings.ToLower(t.From),
		To:           strings.ToLower(t.To),
		Value:        parseFloat(t.Value),
		GasPrice:     parseFloat(t.GasPrice),
		MaxFeePerGas: parseFloat(t.MaxFeePerGas),
	}
	// Input stays as the raw payload string; the anomaly detector scans
	// it for markers rather than decoding calldata.
	if t.Input != "" && t.Input != "0x" {
		rec.Input = []byte(t.Input)
	}
	if ts, err := strconv.ParseInt(t.TimeStamp, 10, 64); err == nil {
		rec.Timestamp = time.Unix(ts, 0).UTC()
	}
	return rec
}

// parseFloat tolerates the explorer's habit of returning empty strings
// for pre-EIP-1559 fields.
func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
