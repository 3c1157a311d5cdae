package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

type fakePositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
	creates   int
	updates   int
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{positions: make(map[string]domain.Position)}
}

func (f *fakePositionStore) Create(_ context.Context, pos domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[pos.ID] = pos
	f.creates++
	return nil
}

func (f *fakePositionStore) Update(_ context.Context, pos domain.Position) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.positions[pos.ID] = pos
	f.updates++
	return nil
}

func (f *fakePositionStore) ListOpen(_ context.Context) ([]domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Position
	for _, pos := range f.positions {
		if pos.Status != domain.PositionStatusClosed {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (f *fakePositionStore) GetByID(_ context.Context, id string) (domain.Position, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pos, ok := f.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (f *fakePositionStore) ListHistory(_ context.Context, _ domain.ListOpts) ([]domain.Position, error) {
	return nil, nil
}

func (f *fakePositionStore) ListClosedBefore(_ context.Context, _ time.Time) ([]domain.Position, error) {
	return nil, nil
}

func (f *fakePositionStore) DeleteClosedBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakePerformanceStore struct {
	mu     sync.Mutex
	ledger domain.PerformanceLedger
	saves  int
}

func newFakePerformanceStore() *fakePerformanceStore {
	return &fakePerformanceStore{ledger: domain.NewPerformanceLedger()}
}

func (f *fakePerformanceStore) Load(_ context.Context) (domain.PerformanceLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ledger.Clone(), nil
}

func (f *fakePerformanceStore) Save(_ context.Context, ledger domain.PerformanceLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ledger = ledger.Clone()
	f.saves++
	return nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	events  []string
	details []map[string]any
}

func (f *fakeAuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.details = append(f.details, detail)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type fakeSignalBus struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeSignalBus) Publish(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeSignalBus) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func newTestPositionService(cfg PositionConfig) (*PositionService, *fakePositionStore, *fakePerformanceStore, *fakeAuditStore) {
	store := newFakePositionStore()
	perf := newFakePerformanceStore()
	audit := &fakeAuditStore{}
	bus := &fakeSignalBus{}
	logger := slog.New(slog.DiscardHandler)
	return NewPositionService(cfg, store, perf, audit, bus, logger), store, perf, audit
}

func defaultPositionConfig() PositionConfig {
	return PositionConfig{
		InitialInvestmentUSD: 10,
		ProfitTargetPct:      50,
		StopLossPct:          25,
	}
}

func TestPositionServiceOpen(t *testing.T) {
	svc, store, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	pos, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.Equal(t, 0.2, pos.InitialAmount)
	assert.Equal(t, 0.2, pos.AmountRemaining)
	assert.Equal(t, float64(100), pos.EntryPrice)
	assert.NotEmpty(t, pos.ID)
	assert.Equal(t, 1, store.creates)

	// Duplicate open on the same key is rejected.
	_, err = svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.1, 110)
	require.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestPositionServiceOpenValidation(t *testing.T) {
	svc, _, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0, 100)
	require.Error(t, err)
	_, err = svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 1, 0)
	require.Error(t, err)
}

func TestPositionServiceProfitTargetPartialClose(t *testing.T) {
	svc, store, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	// Entry at 100 with 0.2 units; $10 initial investment bought 0.1 units.
	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	pos, err := svc.Tick(ctx, domain.ChainEth, "PEPE", 150)
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusPartialClosed, pos.Status)
	assert.InDelta(t, 0.1, pos.AmountRemaining, 1e-9)
	assert.InDelta(t, 5.0, pos.RealizedPnL, 1e-9) // (150-100)*0.1
	assert.Equal(t, 1, store.updates)

	// A second profit tick does not sell another slice.
	again, err := svc.Tick(ctx, domain.ChainEth, "PEPE", 160)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusPartialClosed, again.Status)
	assert.InDelta(t, 0.1, again.AmountRemaining, 1e-9)
	assert.InDelta(t, 5.0, again.RealizedPnL, 1e-9)
	assert.Equal(t, 1, store.updates)
}

func TestPositionServiceStopLossClosesAll(t *testing.T) {
	svc, _, perf, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	// -26% breaches the -25% stop loss.
	pos, err := svc.Tick(ctx, domain.ChainEth, "PEPE", 74)
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusClosed, pos.Status)
	assert.Zero(t, pos.AmountRemaining)
	assert.InDelta(t, -5.2, pos.RealizedPnL, 1e-9) // (74-100)*0.2
	require.NotNil(t, pos.ClosedAt)
	require.NotNil(t, pos.ExitPrice)
	assert.Equal(t, float64(74), *pos.ExitPrice)

	ledger := svc.Performance()
	assert.InDelta(t, 5.2, ledger.AllTimeLoss, 1e-9)
	assert.Equal(t, 1, ledger.FailedTrades)
	assert.Equal(t, 1, perf.saves)

	// Closed positions leave the active set; subsequent ticks find nothing.
	_, err = svc.Tick(ctx, domain.ChainEth, "PEPE", 80)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, svc.Active())
}

func TestPositionServiceStopLossFromPartialClosed(t *testing.T) {
	svc, _, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	_, err = svc.Tick(ctx, domain.ChainEth, "PEPE", 150)
	require.NoError(t, err)

	pos, err := svc.Tick(ctx, domain.ChainEth, "PEPE", 70)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusClosed, pos.Status)
	// 5.0 realized from the partial close plus (70-100)*0.1 from the rest.
	assert.InDelta(t, 2.0, pos.RealizedPnL, 1e-9)

	ledger := svc.Performance()
	assert.InDelta(t, 2.0, ledger.AllTimeProfit, 1e-9)
	assert.Equal(t, 1, ledger.SuccessfulTrades)
}

func TestPositionServiceDoubleCloseIsNoop(t *testing.T) {
	svc, store, perf, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	first, err := svc.Close(ctx, domain.ChainEth, "PEPE", 120)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusClosed, first.Status)

	second, err := svc.Close(ctx, domain.ChainEth, "PEPE", 120)
	require.NoError(t, err)
	assert.Empty(t, second.ID)

	ledger := svc.Performance()
	assert.Equal(t, 1, ledger.SuccessfulTrades)
	assert.InDelta(t, 4.0, ledger.AllTimeProfit, 1e-9)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 1, perf.saves)
}

func TestPositionServiceNeutralTickIsUnchanged(t *testing.T) {
	svc, store, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)

	pos, err := svc.Tick(ctx, domain.ChainEth, "PEPE", 110)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.Equal(t, 0.2, pos.AmountRemaining)
	assert.Zero(t, pos.RealizedPnL)
	assert.Zero(t, store.updates)
}

func TestPositionServicePerChainLedger(t *testing.T) {
	svc, _, _, _ := newTestPositionService(defaultPositionConfig())
	ctx := context.Background()

	_, err := svc.Open(ctx, "PEPE", domain.ChainEth, "0xabc", 0.2, 100)
	require.NoError(t, err)
	_, err = svc.Open(ctx, "CAKE", domain.ChainBsc, "0xdef", 1, 10)
	require.NoError(t, err)

	_, err = svc.Close(ctx, domain.ChainEth, "PEPE", 120)
	require.NoError(t, err)
	_, err = svc.Close(ctx, domain.ChainBsc, "CAKE", 8)
	require.NoError(t, err)

	ledger := svc.Performance()
	assert.InDelta(t, 4.0, ledger.PerChain[domain.ChainEth].Profit, 1e-9)
	assert.InDelta(t, 2.0, ledger.PerChain[domain.ChainBsc].Loss, 1e-9)
	assert.Equal(t, 1, ledger.SuccessfulTrades)
	assert.Equal(t, 1, ledger.FailedTrades)
}

func TestPositionServiceRestore(t *testing.T) {
	store := newFakePositionStore()
	perf := newFakePerformanceStore()
	require.NoError(t, store.Create(context.Background(), domain.Position{
		ID:              "p1",
		Asset:           "PEPE",
		Chain:           domain.ChainEth,
		InitialAmount:   0.2,
		AmountRemaining: 0.2,
		EntryPrice:      100,
		Status:          domain.PositionStatusOpen,
		OpenedAt:        time.Now().UTC(),
	}))
	ledger := domain.NewPerformanceLedger()
	ledger.Record(domain.ChainEth, 12)
	require.NoError(t, perf.Save(context.Background(), ledger))

	svc := NewPositionService(defaultPositionConfig(), store, perf, &fakeAuditStore{}, &fakeSignalBus{}, slog.New(slog.DiscardHandler))
	require.NoError(t, svc.Restore(context.Background()))

	assert.Len(t, svc.Active(), 1)
	restored := svc.Performance()
	assert.InDelta(t, 12.0, restored.AllTimeProfit, 1e-9)
	assert.Equal(t, 1, restored.SuccessfulTrades)

	// The restored position is monitorable.
	pos, err := svc.Tick(context.Background(), domain.ChainEth, "PEPE", 150)
	require.NoError(t, err)
	assert.Equal(t, domain.PositionStatusPartialClosed, pos.Status)
}
