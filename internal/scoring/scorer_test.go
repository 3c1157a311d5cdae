package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tokenscout/tokenscout/internal/domain"
)

func TestScoreComponents(t *testing.T) {
	s := NewScorer()

	cases := []struct {
		name string
		in   Inputs
		want float64
	}{
		{"floor", Inputs{}, 10},
		{"volume tiers", Inputs{Volume24h: 600_000}, 30},
		{"volume top tier", Inputs{Volume24h: 2_000_000}, 40},
		{"momentum negative counts", Inputs{Change24h: -60}, 10 + 30},
		{"momentum mid tier", Inputs{Change24h: 35}, 10 + 20},
		{"healthy liquidity", Inputs{LiquidityHealthy: true}, 10 + 30},
		{
			"high risk without liquidity",
			Inputs{Security: domain.SecurityAssessment{RiskLevel: domain.RiskHigh}},
			10 + 15,
		},
		{
			"everything",
			Inputs{Volume24h: 2_000_000, Change24h: 80, LiquidityHealthy: true},
			100,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, s.Score(tc.in))
		})
	}
}

func TestRankDeterministic(t *testing.T) {
	opps := []domain.Opportunity{
		{Symbol: "AAA", Score: 50, Volume24h: 100},
		{Symbol: "BBB", Score: 80, Volume24h: 10},
		{Symbol: "CCC", Score: 50, Volume24h: 900},
		{Symbol: "DDD", Score: 50, Volume24h: 900},
	}
	Rank(opps)

	var symbols []string
	for _, o := range opps {
		symbols = append(symbols, o.Symbol)
	}
	// Score desc, then volume desc; CCC before DDD by stable arrival order.
	assert.Equal(t, []string{"BBB", "CCC", "DDD", "AAA"}, symbols)
}
