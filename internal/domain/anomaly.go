package domain

// PatternCounts holds per-heuristic hit counts over a transaction log.
type PatternCounts struct {
	Sandwich    int
	WashTrading int
	PumpAndDump int
	FlashLoan   int
}

// AnomalyProfile summarizes the trading-pattern analysis of one token.
//
// RiskScore is in [0,100]. Zero transactions yield 0 ("insufficient
// evidence"); a failed transaction fetch yields 100 ("unknown, assume
// unsafe"). The two cases are deliberately distinct.
type AnomalyProfile struct {
	UniqueWallets  int
	AvgTxPerWallet float64
	Patterns       PatternCounts
	RiskScore      float64
}
