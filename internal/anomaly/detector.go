// Package anomaly scans raw transaction logs for heuristic manipulation
// patterns (sandwich attacks, wash trading, pump-and-dump, flash loans)
// and reduces them to a 0-100 pattern-risk score.
package anomaly

import (
	"bytes"
	"math"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// Pattern weights for the risk score. They sum to 100.
const (
	weightSandwich    = 30
	weightWashTrading = 25
	weightPumpAndDump = 25
	weightFlashLoan   = 20
)

// flashLoanMarker flags flash-loan execution payloads.
var flashLoanMarker = []byte("flashloan")

// Detector performs single-pass trading-pattern analysis.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector { return &Detector{} }

// walletActivity counts buys and sells attributed to one wallet.
type walletActivity struct {
	buys  int
	sells int
}

// Detect walks the transaction log once, accumulating the unique wallet
// set, per-wallet activity, and the four heuristic counters, then derives
// the weighted risk score.
//
// An empty log yields RiskScore 0: no transactions is insufficient
// evidence, not proof of manipulation. (A failed fetch is handled by the
// caller with FailureProfile.)
func (d *Detector) Detect(txs []domain.TransactionRecord) domain.AnomalyProfile {
	wallets := make(map[string]struct{})
	activity := make(map[string]*walletActivity)
	var patterns domain.PatternCounts

	for i := range txs {
		tx := &txs[i]
		if tx.From != "" {
			wallets[tx.From] = struct{}{}
		}
		if tx.To != "" {
			wallets[tx.To] = struct{}{}
		}

		act := activity[tx.From]
		if act == nil {
			act = &walletActivity{}
			activity[tx.From] = act
		}
		if tx.Value > 0 {
			act.buys++
		} else {
			act.sells++
		}

		// Sandwich: priority fee far above the declared fee cap.
		if tx.MaxFeePerGas > 0 && tx.GasPrice > 1.5*tx.MaxFeePerGas {
			patterns.Sandwich++
		}
		// Wash trading: self-transfer or zero-value transfer.
		if tx.From == tx.To || tx.Value == 0 {
			patterns.WashTrading++
		}
		// Pump-and-dump: transfer value dwarfing the gas price. A zero
		// gas price still counts when any value moved.
		if tx.Value > 1_000_000*tx.GasPrice {
			patterns.PumpAndDump++
		}
		// Flash loan: marker in the call payload.
		if bytes.Contains(bytes.ToLower(tx.Input), flashLoanMarker) {
			patterns.FlashLoan++
		}
	}

	profile := domain.AnomalyProfile{
		UniqueWallets: len(wallets),
		Patterns:      patterns,
	}
	if len(wallets) == 0 {
		return profile
	}

	profile.AvgTxPerWallet = float64(len(txs)) / float64(len(wallets))
	profile.RiskScore = riskScore(patterns, len(wallets))
	return profile
}

// riskScore sums each pattern's per-wallet rate weighted by severity,
// clamped to [0,100].
func riskScore(p domain.PatternCounts, uniqueWallets int) float64 {
	n := float64(uniqueWallets)
	score := 0.0
	score += float64(p.Sandwich) / n * weightSandwich
	score += float64(p.WashTrading) / n * weightWashTrading
	score += float64(p.PumpAndDump) / n * weightPumpAndDump
	score += float64(p.FlashLoan) / n * weightFlashLoan
	return math.Min(100, score)
}

// FailureProfile is the profile substituted when the transaction log could
// not be fetched at all: maximum risk, because nothing could be verified.
func FailureProfile() domain.AnomalyProfile {
	return domain.AnomalyProfile{RiskScore: 100}
}
