package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// PositionTracker exposes the active position set and the per-position
// monitoring tick.
type PositionTracker interface {
	Active() []domain.Position
	Tick(ctx context.Context, chain domain.Chain, asset string, currentPrice float64) (domain.Position, error)
}

// MonitorLoop re-prices every active position on an interval and applies
// the profit-target and stop-loss rules through the tracker. Prices come
// from the same listings feed the scanner uses, so monitored assets are
// re-priced for free on every pass.
type MonitorLoop struct {
	tracker  PositionTracker
	listings CandidateLister
	alerter  Alerter
	logger   *slog.Logger
}

// NewMonitorLoop creates a MonitorLoop.
func NewMonitorLoop(
	tracker PositionTracker,
	listings CandidateLister,
	alerter Alerter,
	logger *slog.Logger,
) *MonitorLoop {
	return &MonitorLoop{
		tracker:  tracker,
		listings: listings,
		alerter:  alerter,
		logger:   logger,
	}
}

// Run executes a single monitoring pass over the active positions.
func (m *MonitorLoop) Run(ctx context.Context) error {
	active := m.tracker.Active()
	if len(active) == 0 {
		return nil
	}

	tokens, err := m.listings.Candidates(ctx)
	if err != nil {
		return fmt.Errorf("fetching prices for %d positions: %w", len(active), err)
	}
	prices := priceIndex(tokens)

	ticked, closed := 0, 0
	for _, pos := range active {
		price, ok := lookupPrice(prices, pos)
		if !ok {
			m.logger.Debug("no current price for position",
				slog.String("key", pos.Key()),
			)
			continue
		}

		updated, err := m.tracker.Tick(ctx, pos.Chain, pos.Asset, price)
		if err != nil {
			m.logger.Warn("position tick failed",
				slog.String("key", pos.Key()),
				slog.String("error", err.Error()),
			)
			continue
		}
		ticked++

		if updated.Status == domain.PositionStatusClosed {
			closed++
			m.alertClosed(ctx, updated)
		}
	}

	m.logger.Info("monitor pass complete",
		slog.Int("positions", len(active)),
		slog.Int("ticked", ticked),
		slog.Int("closed", closed),
	)
	return nil
}

// RunLoop runs monitoring on a repeating interval until the context is
// cancelled.
func (m *MonitorLoop) RunLoop(ctx context.Context, interval time.Duration) error {
	if err := m.Run(ctx); err != nil {
		m.logger.Error("monitor pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("monitor loop stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := m.Run(ctx); err != nil {
				m.logger.Error("monitor pass failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (m *MonitorLoop) alertClosed(ctx context.Context, pos domain.Position) {
	if m.alerter == nil {
		return
	}
	title := fmt.Sprintf("Position closed: %s (%s)", pos.Asset, pos.Chain)
	message := fmt.Sprintf("realized PnL %+.2f, entry %.6f", pos.RealizedPnL, pos.EntryPrice)
	if pos.ExitPrice != nil {
		message += fmt.Sprintf(", exit %.6f", *pos.ExitPrice)
	}
	if err := m.alerter.Notify(ctx, "position_closed", title, message); err != nil {
		m.logger.Warn("close alert failed",
			slog.String("key", pos.Key()),
			slog.String("error", err.Error()),
		)
	}
}

// priceIndex indexes listing prices by contract address and by
// (chain, symbol) key.
func priceIndex(tokens []domain.Token) map[string]float64 {
	prices := make(map[string]float64, 2*len(tokens))
	for _, t := range tokens {
		if t.Price <= 0 {
			continue
		}
		if t.Address != "" {
			prices["addr:"+strings.ToLower(t.Address)] = t.Price
		}
		prices["key:"+domain.PositionKey(t.Chain, t.Symbol)] = t.Price
	}
	return prices
}

// lookupPrice resolves a position's current price, preferring the exact
// contract address over the symbol key.
func lookupPrice(prices map[string]float64, pos domain.Position) (float64, bool) {
	if pos.Address != "" {
		if p, ok := prices["addr:"+strings.ToLower(pos.Address)]; ok {
			return p, true
		}
	}
	p, ok := prices["key:"+pos.Key()]
	return p, ok
}
