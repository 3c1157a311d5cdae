// Package security merges independent provider check results into a single
// SecurityAssessment: a 0-100 composite score, an ordered warning list, and
// a LOW/MEDIUM/HIGH risk level. Score and risk level are independent
// signals; neither is derived from the other.
package security

import (
	"math"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// Config holds the assessment thresholds.
type Config struct {
	MinLiquidityUSD     float64 // liquidity score saturates at this value
	MinHolders          int
	MaxOwnershipPercent float64
}

// Aggregator computes security assessments. It is stateless; Assess is a
// pure function of its inputs.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates an Aggregator.
func NewAggregator(cfg Config) *Aggregator {
	if cfg.MinLiquidityUSD <= 0 {
		cfg.MinLiquidityUSD = 50_000
	}
	return &Aggregator{cfg: cfg}
}

// Warning messages, emitted in this fixed order.
const (
	WarnLowLiquidity    = "insufficient liquidity"
	WarnBadDistribution = "unhealthy token distribution"
	WarnLowVolume       = "low trading volume"
	WarnLowMarketCap    = "low market capitalization"
)

// Assess combines check results with market figures into an assessment.
// Sub-checks that failed to fetch (nil, or Err set) contribute neither a
// bonus nor a penalty: a missing signal is unknown, not unhealthy.
func (a *Aggregator) Assess(checks domain.SecurityChecks, volume24h, marketCap float64) domain.SecurityAssessment {
	return domain.SecurityAssessment{
		Score:     a.score(checks, volume24h, marketCap),
		RiskLevel: a.riskLevel(checks),
		Warnings:  a.warnings(checks, volume24h, marketCap),
	}
}

// score builds the 0-100 composite: liquidity up to 40 (scaled), healthy
// distribution 20, then a 20/10/5/0 step each for volume and market cap.
func (a *Aggregator) score(checks domain.SecurityChecks, volume24h, marketCap float64) int {
	score := 0.0

	if liq := checks.Liquidity; liq != nil && liq.Err == "" {
		ratio := math.Min(liq.LiquidityUSD/a.cfg.MinLiquidityUSD, 1)
		score += 40 * ratio
	}
	if dist := checks.Distribution; dist != nil && dist.Err == "" && dist.IsHealthy {
		score += 20
	}
	score += stepScore(volume24h)
	score += stepScore(marketCap)

	s := int(math.Round(score))
	if s > 100 {
		s = 100
	}
	if s < 0 {
		s = 0
	}
	return s
}

// stepScore maps a USD figure to the shared 20/10/5/0 step function.
func stepScore(usd float64) float64 {
	switch {
	case usd > 1_000_000:
		return 20
	case usd > 500_000:
		return 10
	case usd > 100_000:
		return 5
	default:
		return 0
	}
}

// warnings lists the human-readable problems in emission order:
// liquidity, distribution, volume, market cap.
func (a *Aggregator) warnings(checks domain.SecurityChecks, volume24h, marketCap float64) []string {
	var warnings []string

	if liq := checks.Liquidity; liq != nil && liq.Err == "" && !liq.HasLiquidity {
		warnings = append(warnings, WarnLowLiquidity)
	}
	if dist := checks.Distribution; dist != nil && dist.Err == "" && !dist.IsHealthy {
		warnings = append(warnings, WarnBadDistribution)
	}
	if volume24h < 100_000 {
		warnings = append(warnings, WarnLowVolume)
	}
	if marketCap < 100_000 {
		warnings = append(warnings, WarnLowMarketCap)
	}
	return warnings
}

// riskLevel accumulates risk points across the checks and maps the total:
// >=10 HIGH, >=5 MEDIUM, else LOW. The thresholds and point values mirror
// the composite score's concerns but are deliberately separate.
func (a *Aggregator) riskLevel(checks domain.SecurityChecks) domain.RiskLevel {
	points := 0

	if hp := checks.Honeypot; hp != nil && hp.Err == "" {
		if hp.IsHoneypot {
			points += 5
		}
		if hp.BuyTaxPct > 10 {
			points += 2
		}
		if hp.SellTaxPct > 10 {
			points += 3
		}
	}
	if liq := checks.Liquidity; liq != nil && liq.Err == "" {
		if !liq.HasLiquidity {
			points += 2
		}
		if liq.LiquidityUSD < 10_000 {
			points += 2
		}
	}
	if dist := checks.Distribution; dist != nil && dist.Err == "" {
		if dist.TopHolderPct > 80 {
			points += 3
		}
		if dist.HolderCount < 100 {
			points += 2
		}
	}

	switch {
	case points >= 10:
		return domain.RiskHigh
	case points >= 5:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}
