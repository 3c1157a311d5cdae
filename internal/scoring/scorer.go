// Package scoring ranks analyzed tokens. The composite opportunity score
// sums a volume component, a price-momentum component, and a security
// component; higher is better.
package scoring

import (
	"math"
	"sort"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// Scorer computes opportunity scores. Stateless and pure.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer { return &Scorer{} }

// Inputs carries everything Score needs for one token.
type Inputs struct {
	Volume24h        float64
	Change24h        float64 // signed; magnitude is what matters
	Security         domain.SecurityAssessment
	LiquidityHealthy bool // liquidity check passed with HasLiquidity
}

// Score computes the composite:
//
//	volume    0-40: >1M 40, >500K 30, >100K 20, else 10
//	momentum  0-30: |change| >50% 30, >30% 20, >10% 10, else 0
//	security  0-30: healthy liquidity 30; else HIGH risk 15; else 0
//
// The components cap the result at 100 by construction.
func (s *Scorer) Score(in Inputs) float64 {
	score := 0.0

	switch {
	case in.Volume24h > 1_000_000:
		score += 40
	case in.Volume24h > 500_000:
		score += 30
	case in.Volume24h > 100_000:
		score += 20
	default:
		score += 10
	}

	change := math.Abs(in.Change24h)
	switch {
	case change > 50:
		score += 30
	case change > 30:
		score += 20
	case change > 10:
		score += 10
	}

	if in.LiquidityHealthy {
		score += 30
	} else if in.Security.RiskLevel == domain.RiskHigh {
		// A known-bad token still scores above one with no signal at all;
		// the security gate downstream is what blocks it from trading.
		score += 15
	}

	return score
}

// Rank sorts opportunities by score descending, breaking ties on 24h
// volume descending. The sort is stable so equal entries keep their
// arrival order and batches stay deterministic.
func Rank(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		if opps[i].Score != opps[j].Score {
			return opps[i].Score > opps[j].Score
		}
		return opps[i].Volume24h > opps[j].Volume24h
	})
}
