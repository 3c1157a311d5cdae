package domain

import "time"

// Chain identifies the network a token lives on.
type Chain string

const (
	ChainEth     Chain = "eth"
	ChainBsc     Chain = "bsc"
	ChainSol     Chain = "sol"
	ChainPolygon Chain = "polygon"
)

// Token is a tradable asset as reported by a market-data provider.
type Token struct {
	Symbol    string
	Name      string
	Chain     Chain
	Address   string // contract address; empty when the provider has none
	Price     float64
	Change24h float64 // signed 24h price change, percent
	Volume24h float64 // USD
	MarketCap float64 // USD
	Source    string  // provider that reported the listing
	ListedAt  time.Time
}
