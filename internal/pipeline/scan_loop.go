package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// scanLockKey is the distributed-lock key guarding the scan pass.
const scanLockKey = "scan"

// CandidateLister fetches the merged token listings to analyze.
type CandidateLister interface {
	Candidates(ctx context.Context) ([]domain.Token, error)
}

// BatchAnalyzer scores a batch of tokens into ranked opportunities.
type BatchAnalyzer interface {
	AnalyzeBatch(ctx context.Context, tokens []domain.Token) ([]domain.Opportunity, error)
}

// Executor opens positions for qualified opportunities when trading is on.
type Executor interface {
	Enabled() bool
	ExecuteBatch(ctx context.Context, opps []domain.Opportunity, maxEntries int) []domain.Position
}

// Alerter pushes operator notifications for noteworthy events.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// ScanLoop runs the discovery-to-scoring pass: fetch listings, analyze
// and rank them, alert on qualified opportunities, and hand the ranked
// list to the executor. A distributed lock makes the pass single-flight
// across processes; an overlapping pass is skipped, not queued.
type ScanLoop struct {
	listings   CandidateLister
	analyzer   BatchAnalyzer
	executor   Executor
	locks      domain.LockManager
	alerter    Alerter
	maxEntries int
	alertScore float64
	trigger    <-chan struct{} // when non-nil, a receive runs one extra pass
	logger     *slog.Logger
}

// NewScanLoop creates a ScanLoop. maxEntries caps positions opened per
// pass; alertScore is the minimum composite score that triggers an
// operator notification.
func NewScanLoop(
	listings CandidateLister,
	analyzer BatchAnalyzer,
	executor Executor,
	locks domain.LockManager,
	alerter Alerter,
	maxEntries int,
	alertScore float64,
	logger *slog.Logger,
) *ScanLoop {
	return &ScanLoop{
		listings:   listings,
		analyzer:   analyzer,
		executor:   executor,
		locks:      locks,
		alerter:    alerter,
		maxEntries: maxEntries,
		alertScore: alertScore,
		logger:     logger,
	}
}

// WithTrigger sets a channel whose receives each run one extra scan pass.
// The HTTP trigger endpoint sends on it.
func (s *ScanLoop) WithTrigger(ch <-chan struct{}) *ScanLoop {
	s.trigger = ch
	return s
}

// Run executes a single scan pass under the distributed lock.
func (s *ScanLoop) Run(ctx context.Context, lockTTL time.Duration) error {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, scanLockKey, lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.Debug("scan pass already running elsewhere, skipping")
				return nil
			}
			return fmt.Errorf("acquiring scan lock: %w", err)
		}
		defer unlock()
	}

	tokens, err := s.listings.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("fetching candidates: %w", err)
	}

	opps, err := s.analyzer.AnalyzeBatch(ctx, tokens)
	if err != nil {
		return fmt.Errorf("analyzing %d candidates: %w", len(tokens), err)
	}

	s.alertQualified(ctx, opps)

	if s.executor != nil && s.executor.Enabled() {
		opened := s.executor.ExecuteBatch(ctx, opps, s.maxEntries)
		if len(opened) > 0 {
			s.logger.Info("scan pass opened positions", slog.Int("count", len(opened)))
		}
	}

	s.logger.Info("scan pass complete",
		slog.Int("candidates", len(tokens)),
		slog.Int("opportunities", len(opps)),
	)
	return nil
}

// RunLoop runs the scan on a repeating interval until the context is
// cancelled. The lock TTL is twice the interval so a crashed holder's
// lock expires before two passes have been missed.
func (s *ScanLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	lockTTL := 2 * interval

	// Run immediately on start.
	if err := s.Run(ctx, lockTTL); err != nil {
		s.logger.Error("scan pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if s.trigger != nil {
			select {
			case <-ctx.Done():
				s.logger.Info("scan loop stopped")
				return ctx.Err()
			case <-ticker.C:
				if err := s.Run(ctx, lockTTL); err != nil {
					s.logger.Error("scan pass failed", slog.String("error", err.Error()))
				}
			case <-s.trigger:
				if err := s.Run(ctx, lockTTL); err != nil {
					s.logger.Error("scan pass failed", slog.String("error", err.Error()))
				}
			}
		} else {
			select {
			case <-ctx.Done():
				s.logger.Info("scan loop stopped")
				return ctx.Err()
			case <-ticker.C:
				if err := s.Run(ctx, lockTTL); err != nil {
					s.logger.Error("scan pass failed", slog.String("error", err.Error()))
				}
			}
		}
	}
}

// alertQualified sends one notification per opportunity at or above the
// alert threshold.
func (s *ScanLoop) alertQualified(ctx context.Context, opps []domain.Opportunity) {
	if s.alerter == nil {
		return
	}
	for _, opp := range opps {
		if opp.Score < s.alertScore {
			// Ranked descending; everything after is below threshold too.
			break
		}
		title := fmt.Sprintf("Opportunity: %s (%s)", opp.Symbol, opp.Chain)
		message := fmt.Sprintf("score %.0f, security %d (%s), 24h volume $%.0f, 24h change %+.1f%%",
			opp.Score, opp.Security.Score, opp.Security.RiskLevel, opp.Volume24h, opp.Change24h)
		if err := s.alerter.Notify(ctx, "opportunity_found", title, message); err != nil {
			s.logger.Warn("opportunity alert failed",
				slog.String("symbol", opp.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}
