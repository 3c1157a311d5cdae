package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tokenscout/tokenscout/internal/anomaly"
	"github.com/tokenscout/tokenscout/internal/domain"
	"github.com/tokenscout/tokenscout/internal/scoring"
	"github.com/tokenscout/tokenscout/internal/security"
)

// HoneypotChecker runs a honeypot simulation for a token contract.
type HoneypotChecker interface {
	Check(ctx context.Context, address string, chain domain.Chain) (domain.HoneypotCheck, error)
}

// LiquidityChecker looks up DEX liquidity for a token contract.
type LiquidityChecker interface {
	CheckLiquidity(ctx context.Context, address string) (domain.LiquidityCheck, error)
}

// DistributionChecker looks up the holder distribution of a token.
type DistributionChecker interface {
	CheckDistribution(ctx context.Context, address string, chain domain.Chain) (domain.DistributionCheck, error)
}

// SocialFetcher looks up social-presence metrics for a token symbol.
type SocialFetcher interface {
	Metrics(ctx context.Context, symbol string) (domain.SocialMetrics, error)
}

// AuditChecker queries audit registries for a token contract.
type AuditChecker interface {
	Check(ctx context.Context, address string) (domain.AuditCheck, error)
}

// TransactionFetcher retrieves recent transfer activity for a token.
type TransactionFetcher interface {
	Transactions(ctx context.Context, address string, chain domain.Chain) ([]domain.TransactionRecord, error)
}

// AnalyzerFetchers bundles the per-provider fetchers the analyzer fans
// out to. Any field may be nil; a nil fetcher leaves the corresponding
// check unset rather than failing the analysis.
type AnalyzerFetchers struct {
	Honeypot     HoneypotChecker
	Liquidity    LiquidityChecker
	Distribution DistributionChecker
	Social       SocialFetcher
	Audit        AuditChecker
	Transactions TransactionFetcher
}

// AnalyzerConfig holds the analyzer's concurrency bound.
type AnalyzerConfig struct {
	BatchConcurrency int // parallel tokens per batch; <=0 means 8
}

// AnalyzerService turns raw token listings into scored opportunities:
// it fans out the security fetchers per token, aggregates the results
// into an assessment, detects trading anomalies from on-chain activity,
// and computes the composite opportunity score.
type AnalyzerService struct {
	cfg      AnalyzerConfig
	fetchers AnalyzerFetchers
	agg      *security.Aggregator
	detector *anomaly.Detector
	scorer   *scoring.Scorer
	opps     domain.OpportunityStore
	bus      domain.SignalBus
	logger   *slog.Logger
}

// NewAnalyzerService creates an AnalyzerService with all required dependencies.
func NewAnalyzerService(
	cfg AnalyzerConfig,
	fetchers AnalyzerFetchers,
	agg *security.Aggregator,
	detector *anomaly.Detector,
	scorer *scoring.Scorer,
	opps domain.OpportunityStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *AnalyzerService {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 8
	}
	return &AnalyzerService{
		cfg:      cfg,
		fetchers: fetchers,
		agg:      agg,
		detector: detector,
		scorer:   scorer,
		opps:     opps,
		bus:      bus,
		logger:   logger,
	}
}

// Analyze assesses a single token and returns its scored opportunity.
// Every fetcher failure is captured in the corresponding check rather
// than aborting the siblings; a transaction-fetch failure yields the
// maximum-risk anomaly profile instead of a partial one.
func (s *AnalyzerService) Analyze(ctx context.Context, token domain.Token) (domain.Opportunity, error) {
	if ctx.Err() != nil {
		return domain.Opportunity{}, fmt.Errorf("analyzer_service: analyze %q: %w", token.Symbol, ctx.Err())
	}

	checks, profile := s.fetchAll(ctx, token)
	assessment := s.agg.Assess(checks, token.Volume24h, token.MarketCap)

	score := s.scorer.Score(scoring.Inputs{
		Volume24h:        token.Volume24h,
		Change24h:        token.Change24h,
		Security:         assessment,
		LiquidityHealthy: checks.Liquidity != nil && checks.Liquidity.Err == "" && checks.Liquidity.HasLiquidity,
	})

	opp := domain.Opportunity{
		ID:         uuid.NewString(),
		Symbol:     token.Symbol,
		Name:       token.Name,
		Chain:      token.Chain,
		Address:    token.Address,
		Price:      token.Price,
		Change24h:  token.Change24h,
		Volume24h:  token.Volume24h,
		MarketCap:  token.MarketCap,
		Security:   assessment,
		Anomaly:    profile,
		Audit:      checks.Audit,
		Social:     checks.Social,
		Score:      score,
		AnalyzedAt: time.Now().UTC(),
	}

	s.logger.DebugContext(ctx, "analyzer_service: token analyzed",
		slog.String("symbol", token.Symbol),
		slog.String("chain", string(token.Chain)),
		slog.Float64("score", score),
		slog.Int("security_score", assessment.Score),
		slog.String("risk_level", string(assessment.RiskLevel)),
	)
	return opp, nil
}

// AnalyzeBatch analyzes every token concurrently, ranks the results, and
// persists and publishes them. A failed token is logged and skipped; one
// bad token never sinks the batch.
func (s *AnalyzerService) AnalyzeBatch(ctx context.Context, tokens []domain.Token) ([]domain.Opportunity, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	results := make([]*domain.Opportunity, len(tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, token := range tokens {
		g.Go(func() error {
			opp, err := s.Analyze(gctx, token)
			if err != nil {
				s.logger.WarnContext(gctx, "analyzer_service: token analysis failed",
					slog.String("symbol", token.Symbol),
					slog.String("error", err.Error()),
				)
				return nil
			}
			results[i] = &opp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyzer_service: batch: %w", err)
	}

	opps := make([]domain.Opportunity, 0, len(results))
	for _, opp := range results {
		if opp != nil {
			opps = append(opps, *opp)
		}
	}
	scoring.Rank(opps)

	if s.opps != nil && len(opps) > 0 {
		if err := s.opps.InsertBatch(ctx, opps); err != nil {
			s.logger.WarnContext(ctx, "analyzer_service: persist batch failed",
				slog.Int("count", len(opps)),
				slog.String("error", err.Error()),
			)
		}
	}
	s.publishBatch(ctx, opps)

	s.logger.InfoContext(ctx, "analyzer_service: batch analyzed",
		slog.Int("tokens", len(tokens)),
		slog.Int("opportunities", len(opps)),
	)
	return opps, nil
}

// fetchAll runs the security fetchers and the transaction fetch in
// parallel and folds failures into the check values.
func (s *AnalyzerService) fetchAll(ctx context.Context, token domain.Token) (domain.SecurityChecks, *domain.AnomalyProfile) {
	var (
		checks  domain.SecurityChecks
		profile *domain.AnomalyProfile
	)

	// Contract-level checks need an address; listings without one still
	// get social metrics and the market-size scoring downstream.
	hasAddress := token.Address != ""

	g, gctx := errgroup.WithContext(ctx)

	if hasAddress && s.fetchers.Honeypot != nil {
		g.Go(func() error {
			check, err := s.fetchers.Honeypot.Check(gctx, token.Address, token.Chain)
			if err != nil {
				check = domain.HoneypotCheck{Err: err.Error()}
			}
			checks.Honeypot = &check
			return nil
		})
	}
	if hasAddress && s.fetchers.Liquidity != nil {
		g.Go(func() error {
			check, err := s.fetchers.Liquidity.CheckLiquidity(gctx, token.Address)
			if err != nil {
				check = domain.LiquidityCheck{Err: err.Error()}
			}
			checks.Liquidity = &check
			return nil
		})
	}
	if hasAddress && s.fetchers.Distribution != nil {
		g.Go(func() error {
			check, err := s.fetchers.Distribution.CheckDistribution(gctx, token.Address, token.Chain)
			if err != nil {
				check = domain.DistributionCheck{Err: err.Error()}
			}
			checks.Distribution = &check
			return nil
		})
	}
	if s.fetchers.Social != nil {
		g.Go(func() error {
			metrics, err := s.fetchers.Social.Metrics(gctx, token.Symbol)
			if err != nil {
				metrics = domain.SocialMetrics{Err: err.Error()}
			}
			checks.Social = &metrics
			return nil
		})
	}
	if hasAddress && s.fetchers.Audit != nil {
		g.Go(func() error {
			check, err := s.fetchers.Audit.Check(gctx, token.Address)
			if err != nil {
				check = domain.AuditCheck{Err: err.Error()}
			}
			checks.Audit = &check
			return nil
		})
	}
	if hasAddress && s.fetchers.Transactions != nil {
		g.Go(func() error {
			txs, err := s.fetchers.Transactions.Transactions(gctx, token.Address, token.Chain)
			if err != nil {
				// Unreadable activity is treated as maximum risk, not unknown.
				p := anomaly.FailureProfile()
				profile = &p
				s.logger.WarnContext(gctx, "analyzer_service: transaction fetch failed",
					slog.String("symbol", token.Symbol),
					slog.String("error", err.Error()),
				)
				return nil
			}
			p := s.detector.Detect(txs)
			profile = &p
			return nil
		})
	}

	// The closures never return an error; each captures its failure as a
	// check value so one slow or broken provider cannot cancel siblings.
	_ = g.Wait()

	return checks, profile
}

func (s *AnalyzerService) publishBatch(ctx context.Context, opps []domain.Opportunity) {
	if s.bus == nil || len(opps) == 0 {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event": "opportunities_ranked",
		"count": len(opps),
		"top":   topSummary(opps),
	})
	if pubErr := s.bus.Publish(ctx, "opportunities", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "analyzer_service: publish batch failed",
			slog.String("error", pubErr.Error()),
		)
	}
}

// topSummary flattens the highest-ranked opportunities for event payloads.
func topSummary(opps []domain.Opportunity) []map[string]any {
	n := min(len(opps), 5)
	out := make([]map[string]any, 0, n)
	for _, opp := range opps[:n] {
		out = append(out, map[string]any{
			"symbol":     opp.Symbol,
			"chain":      string(opp.Chain),
			"score":      opp.Score,
			"risk_level": string(opp.Security.RiskLevel),
		})
	}
	return out
}
