package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

type fakeTracker struct {
	active []domain.Position
	ticks  map[string]float64
	closed map[string]bool
}

func newFakeTracker(active ...domain.Position) *fakeTracker {
	return &fakeTracker{
		active: active,
		ticks:  make(map[string]float64),
		closed: make(map[string]bool),
	}
}

func (f *fakeTracker) Active() []domain.Position { return f.active }

func (f *fakeTracker) Tick(_ context.Context, chain domain.Chain, asset string, price float64) (domain.Position, error) {
	key := domain.PositionKey(chain, asset)
	f.ticks[key] = price
	pos := domain.Position{Asset: asset, Chain: chain, Status: domain.PositionStatusOpen, EntryPrice: 100}
	if f.closed[key] {
		pos.Status = domain.PositionStatusClosed
	}
	return pos, nil
}

func TestMonitorLoopTicksWithMatchedPrices(t *testing.T) {
	tracker := newFakeTracker(
		domain.Position{Asset: "PEPE", Chain: domain.ChainEth, Address: "0xAAA"},
		domain.Position{Asset: "CAKE", Chain: domain.ChainBsc},
	)
	lister := &fakeLister{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Address: "0xaaa", Price: 120},
		{Symbol: "CAKE", Chain: domain.ChainBsc, Price: 8},
	}}
	loop := NewMonitorLoop(tracker, lister, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background()))

	// Address match is case-insensitive; symbol fallback covers the rest.
	assert.Equal(t, float64(120), tracker.ticks["eth-PEPE"])
	assert.Equal(t, float64(8), tracker.ticks["bsc-CAKE"])
}

func TestMonitorLoopSkipsUnpricedPositions(t *testing.T) {
	tracker := newFakeTracker(
		domain.Position{Asset: "GHOST", Chain: domain.ChainSol},
	)
	lister := &fakeLister{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Price: 120},
	}}
	loop := NewMonitorLoop(tracker, lister, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background()))
	assert.Empty(t, tracker.ticks)
}

func TestMonitorLoopNoActivePositionsSkipsFetch(t *testing.T) {
	tracker := newFakeTracker()
	lister := &fakeLister{}
	loop := NewMonitorLoop(tracker, lister, nil, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background()))
	assert.Zero(t, lister.calls)
}

func TestMonitorLoopAlertsOnClose(t *testing.T) {
	tracker := newFakeTracker(
		domain.Position{Asset: "PEPE", Chain: domain.ChainEth},
	)
	tracker.closed["eth-PEPE"] = true
	lister := &fakeLister{tokens: []domain.Token{
		{Symbol: "PEPE", Chain: domain.ChainEth, Price: 60},
	}}
	alerter := &fakeAlerter{}
	loop := NewMonitorLoop(tracker, lister, alerter, slog.New(slog.DiscardHandler))

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, []string{"position_closed"}, alerter.events)
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 8, 29, 2, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 3, 0, 0, 0, time.UTC), next)

	// Already past today's trigger: roll to tomorrow.
	next, err = nextCronTime("0 3 * * *", time.Date(2026, 8, 29, 4, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC), next)

	_, err = nextCronTime("bad cron", after)
	require.Error(t, err)
}
