package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenscout/tokenscout/internal/domain"
)

func tx(from, to string, value, gasPrice, maxFee float64) domain.TransactionRecord {
	return domain.TransactionRecord{From: from, To: to, Value: value, GasPrice: gasPrice, MaxFeePerGas: maxFee}
}

func TestDetectEmptyLog(t *testing.T) {
	got := NewDetector().Detect(nil)

	assert.Equal(t, 0, got.UniqueWallets)
	assert.Zero(t, got.RiskScore, "no transactions is insufficient evidence, not risk")
}

func TestDetectZeroWalletsNoDivisionPanic(t *testing.T) {
	// Records with empty addresses produce an empty wallet set.
	txs := []domain.TransactionRecord{tx("", "", 0, 0, 0)}

	assert.NotPanics(t, func() {
		got := NewDetector().Detect(txs)
		assert.Zero(t, got.RiskScore)
	})
}

func TestDetectCleanTraffic(t *testing.T) {
	txs := []domain.TransactionRecord{
		tx("0xa", "0xb", 10, 5, 10),
		tx("0xc", "0xd", 25, 5, 10),
		tx("0xe", "0xf", 3, 5, 10),
	}
	got := NewDetector().Detect(txs)

	assert.Equal(t, 6, got.UniqueWallets)
	assert.Equal(t, domain.PatternCounts{}, got.Patterns)
	assert.Zero(t, got.RiskScore)
	assert.InDelta(t, 0.5, got.AvgTxPerWallet, 1e-9)
}

func TestDetectPatterns(t *testing.T) {
	cases := []struct {
		name string
		tx   domain.TransactionRecord
		want domain.PatternCounts
	}{
		{"sandwich", tx("0xa", "0xb", 10, 20, 10), domain.PatternCounts{Sandwich: 1}},
		{"wash self transfer", tx("0xa", "0xa", 10, 5, 10), domain.PatternCounts{WashTrading: 1}},
		{"wash zero value", tx("0xa", "0xb", 0, 5, 10), domain.PatternCounts{WashTrading: 1}},
		{"pump and dump", tx("0xa", "0xb", 6_000_000, 5, 10), domain.PatternCounts{PumpAndDump: 1}},
		{"pump and dump zero gas price", tx("0xa", "0xb", 1, 0, 10), domain.PatternCounts{PumpAndDump: 1}},
		{
			"flash loan",
			domain.TransactionRecord{From: "0xa", To: "0xb", Value: 1, GasPrice: 5, MaxFeePerGas: 10, Input: []byte("exec FlashLoan(0x..)")},
			domain.PatternCounts{FlashLoan: 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewDetector().Detect([]domain.TransactionRecord{tc.tx})
			assert.Equal(t, tc.want, got.Patterns)
		})
	}
}

func TestDetectRiskScoreWeighted(t *testing.T) {
	// Two wallets, one sandwich hit: 1/2 * 30 = 15.
	txs := []domain.TransactionRecord{
		tx("0xa", "0xb", 10, 20, 10),
	}
	got := NewDetector().Detect(txs)
	assert.InDelta(t, 15.0, got.RiskScore, 1e-9)
}

func TestDetectRiskScoreClamped(t *testing.T) {
	// Every record from the same two wallets trips several heuristics.
	var txs []domain.TransactionRecord
	for i := 0; i < 50; i++ {
		txs = append(txs, domain.TransactionRecord{
			From: "0xa", To: "0xa", Value: 0, GasPrice: 100, MaxFeePerGas: 1,
			Input: []byte("flashloan"),
		})
	}
	got := NewDetector().Detect(txs)
	assert.Equal(t, 100.0, got.RiskScore)
}

func TestFailureProfile(t *testing.T) {
	got := FailureProfile()
	assert.Equal(t, 100.0, got.RiskScore, "unfetchable history is treated as unsafe")
	assert.Zero(t, got.UniqueWallets)
}
