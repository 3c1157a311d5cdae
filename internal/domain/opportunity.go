package domain

import "time"

// Opportunity is a scored trading candidate produced by one analysis pass.
// Ranking key is Score descending; ties break on Volume24h descending.
type Opportunity struct {
	ID         string // UUID assigned at analysis time
	Symbol     string
	Name       string
	Chain      Chain
	Address    string
	Price      float64
	Change24h  float64
	Volume24h  float64
	MarketCap  float64
	Security   SecurityAssessment
	Anomaly    *AnomalyProfile // nil when no transaction log was available
	Audit      *AuditCheck     // nil when no registry check ran
	Social     *SocialMetrics  // nil when no social lookup ran
	Score      float64
	AnalyzedAt time.Time
}
