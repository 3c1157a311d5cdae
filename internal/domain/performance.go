package domain

// ChainPerformance buckets realized PnL for one chain.
type ChainPerformance struct {
	Profit float64
	Loss   float64
}

// PerformanceLedger aggregates realized trading performance process-wide.
// It is mutated only by the position tracker, atomically per position
// transition, and read through snapshot copies.
type PerformanceLedger struct {
	AllTimeProfit    float64
	AllTimeLoss      float64 // positive magnitude
	SuccessfulTrades int
	FailedTrades     int
	PerChain         map[Chain]ChainPerformance
}

// NewPerformanceLedger returns an empty ledger with the chain map allocated.
func NewPerformanceLedger() PerformanceLedger {
	return PerformanceLedger{PerChain: make(map[Chain]ChainPerformance)}
}

// Clone returns a deep copy safe to hand to readers.
func (l PerformanceLedger) Clone() PerformanceLedger {
	out := l
	out.PerChain = make(map[Chain]ChainPerformance, len(l.PerChain))
	for c, p := range l.PerChain {
		out.PerChain[c] = p
	}
	return out
}

// Record applies one realized result to the ledger.
func (l *PerformanceLedger) Record(chain Chain, pnl float64) {
	cp := l.PerChain[chain]
	if pnl >= 0 {
		l.AllTimeProfit += pnl
		l.SuccessfulTrades++
		cp.Profit += pnl
	} else {
		l.AllTimeLoss += -pnl
		l.FailedTrades++
		cp.Loss += -pnl
	}
	l.PerChain[chain] = cp
}
