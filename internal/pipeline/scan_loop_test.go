package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

type fakeLister struct {
	tokens []domain.Token
	err    error
	calls  int
}

func (f *fakeLister) Candidates(context.Context) ([]domain.Token, error) {
	f.calls++
	return f.tokens, f.err
}

type fakeAnalyzer struct {
	opps  []domain.Opportunity
	err   error
	calls int
}

func (f *fakeAnalyzer) AnalyzeBatch(_ context.Context, _ []domain.Token) ([]domain.Opportunity, error) {
	f.calls++
	return f.opps, f.err
}

type fakeExecutor struct {
	enabled bool
	opened  []domain.Position
	calls   int
}

func (f *fakeExecutor) Enabled() bool { return f.enabled }

func (f *fakeExecutor) ExecuteBatch(_ context.Context, _ []domain.Opportunity, _ int) []domain.Position {
	f.calls++
	return f.opened
}

type fakeLocks struct {
	held bool
	err  error
}

func (f *fakeLocks) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.held {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

type fakeAlerter struct {
	events []string
}

func (f *fakeAlerter) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

func scanOpp(symbol string, score float64) domain.Opportunity {
	return domain.Opportunity{
		Symbol: symbol,
		Chain:  domain.ChainEth,
		Score:  score,
		Security: domain.SecurityAssessment{
			Score:     90,
			RiskLevel: domain.RiskLow,
		},
	}
}

func TestScanLoopRunsFullPass(t *testing.T) {
	lister := &fakeLister{tokens: []domain.Token{{Symbol: "PEPE", Chain: domain.ChainEth}}}
	analyzer := &fakeAnalyzer{opps: []domain.Opportunity{scanOpp("PEPE", 85)}}
	executor := &fakeExecutor{enabled: true}
	alerter := &fakeAlerter{}
	loop := NewScanLoop(lister, analyzer, executor, &fakeLocks{}, alerter, 3, 70, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background(), time.Minute))

	assert.Equal(t, 1, lister.calls)
	assert.Equal(t, 1, analyzer.calls)
	assert.Equal(t, 1, executor.calls)
	assert.Equal(t, []string{"opportunity_found"}, alerter.events)
}

func TestScanLoopSkipsWhenLockHeld(t *testing.T) {
	lister := &fakeLister{}
	analyzer := &fakeAnalyzer{}
	loop := NewScanLoop(lister, analyzer, nil, &fakeLocks{held: true}, nil, 0, 70, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background(), time.Minute))
	assert.Zero(t, lister.calls)
	assert.Zero(t, analyzer.calls)
}

func TestScanLoopDisabledTradingSkipsExecution(t *testing.T) {
	analyzer := &fakeAnalyzer{opps: []domain.Opportunity{scanOpp("PEPE", 85)}}
	executor := &fakeExecutor{enabled: false}
	loop := NewScanLoop(&fakeLister{}, analyzer, executor, &fakeLocks{}, nil, 0, 70, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background(), time.Minute))
	assert.Zero(t, executor.calls)
}

func TestScanLoopAlertThreshold(t *testing.T) {
	analyzer := &fakeAnalyzer{opps: []domain.Opportunity{
		scanOpp("AAA", 90),
		scanOpp("BBB", 75),
		scanOpp("CCC", 40), // below threshold; ranked order means the rest are too
	}}
	alerter := &fakeAlerter{}
	loop := NewScanLoop(&fakeLister{}, analyzer, nil, &fakeLocks{}, alerter, 0, 70, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background(), time.Minute))
	assert.Len(t, alerter.events, 2)
}

func TestScanLoopListingFailurePropagates(t *testing.T) {
	lister := &fakeLister{err: errors.New("providers down")}
	loop := NewScanLoop(lister, &fakeAnalyzer{}, nil, &fakeLocks{}, nil, 0, 70, slog.New(slog.DiscardHandler))

	err := loop.Run(context.Background(), time.Minute)
	require.Error(t, err)
}
