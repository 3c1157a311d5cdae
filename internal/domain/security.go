package domain

// RiskLevel classifies a token's security risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// HoneypotCheck is the normalized result of a honeypot simulation.
// IsHoneypot and the tax fields are only meaningful when Err is empty.
type HoneypotCheck struct {
	IsHoneypot bool
	BuyTaxPct  float64
	SellTaxPct float64
	Err        string
}

// LiquidityCheck is the normalized result of a DEX liquidity lookup.
type LiquidityCheck struct {
	HasLiquidity bool
	LiquidityUSD float64
	PairCount    int
	Err          string
}

// DistributionCheck is the normalized result of a holder-distribution lookup.
type DistributionCheck struct {
	HolderCount  int
	TopHolderPct float64
	IsHealthy    bool
	Err          string
}

// AuditCheck is the normalized result of querying audit registries.
type AuditCheck struct {
	HasAudit bool
	Score    float64
	Auditors []string
	Err      string
}

// SocialMetrics is the normalized result of a social-presence lookup.
type SocialMetrics struct {
	TwitterFollowers int
	TelegramMembers  int
	DiscordMembers   int
	Err              string
}

// SecurityChecks bundles the per-provider check results for one token.
// A nil field means the corresponding fetch never completed; a non-nil
// field with Err set means the fetch ran and failed. Either way the rest
// of the assessment proceeds.
type SecurityChecks struct {
	Honeypot     *HoneypotCheck
	Liquidity    *LiquidityCheck
	Distribution *DistributionCheck
	Audit        *AuditCheck
	Social       *SocialMetrics
}

// SecurityAssessment is the derived security verdict for one token.
// It is recomputed on every scoring pass and never patched in place.
type SecurityAssessment struct {
	Score     int // 0-100 composite
	RiskLevel RiskLevel
	Warnings  []string // fixed emission order, see security.Aggregator
}
