package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// PositionConfig holds the monitoring thresholds for open positions.
type PositionConfig struct {
	InitialInvestmentUSD float64 // slice sold when the profit target hits
	ProfitTargetPct      float64 // e.g. 50 means +50%
	StopLossPct          float64 // positive number; e.g. 25 means -25%
}

// PositionService tracks open positions and the performance ledger. It
// owns both under a single mutex so concurrent monitoring ticks can never
// interleave a lifecycle transition or double-book the ledger.
type PositionService struct {
	mu     sync.Mutex
	active map[string]domain.Position
	ledger domain.PerformanceLedger

	cfg       PositionConfig
	positions domain.PositionStore
	perf      domain.PerformanceStore
	audit     domain.AuditStore
	bus       domain.SignalBus
	logger    *slog.Logger
}

// NewPositionService creates a PositionService with an empty active set.
// Call Restore to hydrate state from the stores after startup.
func NewPositionService(
	cfg PositionConfig,
	positions domain.PositionStore,
	perf domain.PerformanceStore,
	audit domain.AuditStore,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PositionService {
	return &PositionService{
		active:    make(map[string]domain.Position),
		ledger:    domain.NewPerformanceLedger(),
		cfg:       cfg,
		positions: positions,
		perf:      perf,
		audit:     audit,
		bus:       bus,
		logger:    logger,
	}
}

// Restore loads open positions and the persisted ledger so a restart
// resumes monitoring where the previous process stopped.
func (s *PositionService) Restore(ctx context.Context) error {
	open, err := s.positions.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("position_service: restore open positions: %w", err)
	}
	ledger, err := s.perf.Load(ctx)
	if err != nil {
		return fmt.Errorf("position_service: restore ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pos := range open {
		s.active[pos.Key()] = pos
	}
	if ledger.PerChain == nil {
		ledger.PerChain = make(map[domain.Chain]domain.ChainPerformance)
	}
	s.ledger = ledger

	s.logger.InfoContext(ctx, "position_service: state restored",
		slog.Int("open_positions", len(open)),
		slog.Int("successful_trades", ledger.SuccessfulTrades),
		slog.Int("failed_trades", ledger.FailedTrades),
	)
	return nil
}

// Open enters a new position for (chain, asset). A second open on a key
// that is still live is rejected with domain.ErrAlreadyExists.
func (s *PositionService) Open(ctx context.Context, asset string, chain domain.Chain, address string, amount, entryPrice float64) (domain.Position, error) {
	if amount <= 0 || entryPrice <= 0 {
		return domain.Position{}, fmt.Errorf("position_service: open %s-%s: amount and entry price must be positive", chain, asset)
	}

	pos := domain.Position{
		ID:              uuid.NewString(),
		Asset:           asset,
		Chain:           chain,
		Address:         address,
		InitialAmount:   amount,
		AmountRemaining: amount,
		EntryPrice:      entryPrice,
		Status:          domain.PositionStatusOpen,
		OpenedAt:        time.Now().UTC(),
	}

	s.mu.Lock()
	if _, exists := s.active[pos.Key()]; exists {
		s.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position_service: open %s: %w", pos.Key(), domain.ErrAlreadyExists)
	}
	s.active[pos.Key()] = pos
	s.mu.Unlock()

	if err := s.positions.Create(ctx, pos); err != nil {
		// Roll the in-memory entry back so the tracker and the store agree.
		s.mu.Lock()
		delete(s.active, pos.Key())
		s.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position_service: persist open %s: %w", pos.Key(), err)
	}

	s.publish(ctx, "position_opened", pos)
	s.auditLog(ctx, "position_opened", pos)
	s.logger.InfoContext(ctx, "position_service: position opened",
		slog.String("key", pos.Key()),
		slog.Float64("amount", amount),
		slog.Float64("entry_price", entryPrice),
	)
	return pos, nil
}

// Tick applies the monitoring rules to one position at the given current
// price. Reaching the profit target from the open state sells the
// initial-investment slice exactly once and leaves the residual running;
// breaching the stop loss from any live state sells everything remaining
// and closes the position. Ticking an unknown or already-closed key
// reports domain.ErrNotFound.
func (s *PositionService) Tick(ctx context.Context, chain domain.Chain, asset string, currentPrice float64) (domain.Position, error) {
	key := domain.PositionKey(chain, asset)

	s.mu.Lock()
	pos, ok := s.active[key]
	if !ok {
		s.mu.Unlock()
		return domain.Position{}, fmt.Errorf("position_service: tick %s: %w", key, domain.ErrNotFound)
	}

	pnlPct := (currentPrice - pos.EntryPrice) / pos.EntryPrice * 100

	switch {
	case pnlPct <= -s.cfg.StopLossPct:
		pos = s.closeLocked(pos, currentPrice)
		s.mu.Unlock()
		return s.afterClose(ctx, pos, pnlPct)

	case pnlPct >= s.cfg.ProfitTargetPct && pos.Status == domain.PositionStatusOpen:
		slice := s.cfg.InitialInvestmentUSD / pos.EntryPrice
		if slice > pos.AmountRemaining {
			slice = pos.AmountRemaining
		}
		pos.AmountRemaining -= slice
		pos.RealizedPnL += (currentPrice - pos.EntryPrice) * slice
		pos.Status = domain.PositionStatusPartialClosed
		if pos.AmountRemaining <= 0 {
			// The whole position was the initial slice; nothing left to run.
			pos = s.closeLocked(pos, currentPrice)
			s.mu.Unlock()
			return s.afterClose(ctx, pos, pnlPct)
		}
		s.active[key] = pos
		s.mu.Unlock()

		if err := s.positions.Update(ctx, pos); err != nil {
			return pos, fmt.Errorf("position_service: persist partial close %s: %w", key, err)
		}
		s.publish(ctx, "position_partial_closed", pos)
		s.auditLog(ctx, "position_partial_closed", pos)
		s.logger.InfoContext(ctx, "position_service: profit target hit, initial investment sold",
			slog.String("key", key),
			slog.Float64("pnl_pct", pnlPct),
			slog.Float64("amount_remaining", pos.AmountRemaining),
		)
		return pos, nil

	default:
		s.mu.Unlock()
		return pos, nil
	}
}

// Close force-closes a position at the given price. Closing a key that is
// no longer active is a no-op, so racing monitors record each close in
// the ledger exactly once.
func (s *PositionService) Close(ctx context.Context, chain domain.Chain, asset string, currentPrice float64) (domain.Position, error) {
	key := domain.PositionKey(chain, asset)

	s.mu.Lock()
	pos, ok := s.active[key]
	if !ok {
		s.mu.Unlock()
		return domain.Position{}, nil
	}
	pnlPct := (currentPrice - pos.EntryPrice) / pos.EntryPrice * 100
	pos = s.closeLocked(pos, currentPrice)
	s.mu.Unlock()

	return s.afterClose(ctx, pos, pnlPct)
}

// closeLocked sells all remaining units, records the realized result in
// the ledger, and removes the position from the active set. Caller holds
// s.mu; the ledger update and the removal are one atomic transition.
func (s *PositionService) closeLocked(pos domain.Position, currentPrice float64) domain.Position {
	pos.RealizedPnL += (currentPrice - pos.EntryPrice) * pos.AmountRemaining
	pos.AmountRemaining = 0
	pos.Status = domain.PositionStatusClosed
	now := time.Now().UTC()
	pos.ClosedAt = &now
	pos.ExitPrice = &currentPrice

	s.ledger.Record(pos.Chain, pos.RealizedPnL)
	delete(s.active, pos.Key())
	return pos
}

// afterClose persists and announces a completed close outside the lock.
func (s *PositionService) afterClose(ctx context.Context, pos domain.Position, pnlPct float64) (domain.Position, error) {
	if err := s.positions.Update(ctx, pos); err != nil {
		return pos, fmt.Errorf("position_service: persist close %s: %w", pos.Key(), err)
	}

	s.mu.Lock()
	snapshot := s.ledger.Clone()
	s.mu.Unlock()
	if err := s.perf.Save(ctx, snapshot); err != nil {
		s.logger.WarnContext(ctx, "position_service: ledger persist failed",
			slog.String("key", pos.Key()),
			slog.String("error", err.Error()),
		)
	}

	s.publish(ctx, "position_closed", pos)
	s.auditLog(ctx, "position_closed", pos)
	s.logger.InfoContext(ctx, "position_service: position closed",
		slog.String("key", pos.Key()),
		slog.Float64("pnl_pct", pnlPct),
		slog.Float64("realized_pnl", pos.RealizedPnL),
	)
	return pos, nil
}

// Active returns a copy of the active position set.
func (s *PositionService) Active() []domain.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Position, 0, len(s.active))
	for _, pos := range s.active {
		out = append(out, pos)
	}
	return out
}

// ListHistory returns persisted positions, open and closed, newest first.
func (s *PositionService) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	return s.positions.ListHistory(ctx, opts)
}

// Get returns one persisted position by ID.
func (s *PositionService) Get(ctx context.Context, id string) (domain.Position, error) {
	return s.positions.GetByID(ctx, id)
}

// Performance returns a snapshot of the performance ledger.
func (s *PositionService) Performance() domain.PerformanceLedger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Clone()
}

func (s *PositionService) publish(ctx context.Context, event string, pos domain.Position) {
	if s.bus == nil {
		return
	}
	evt, _ := json.Marshal(map[string]any{
		"event":        event,
		"position_id":  pos.ID,
		"asset":        pos.Asset,
		"chain":        string(pos.Chain),
		"status":       string(pos.Status),
		"realized_pnl": pos.RealizedPnL,
	})
	if pubErr := s.bus.Publish(ctx, "positions", evt); pubErr != nil {
		s.logger.WarnContext(ctx, "position_service: publish event failed",
			slog.String("event", event),
			slog.String("error", pubErr.Error()),
		)
	}
}

func (s *PositionService) auditLog(ctx context.Context, event string, pos domain.Position) {
	if s.audit == nil {
		return
	}
	if auditErr := s.audit.Log(ctx, event, map[string]any{
		"position_id":  pos.ID,
		"asset":        pos.Asset,
		"chain":        string(pos.Chain),
		"entry_price":  pos.EntryPrice,
		"status":       string(pos.Status),
		"realized_pnl": pos.RealizedPnL,
	}); auditErr != nil {
		s.logger.WarnContext(ctx, "position_service: audit log failed",
			slog.String("event", event),
			slog.String("error", auditErr.Error()),
		)
	}
}
