package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// Wallet exposes the funded account used for execution. A nil wallet
// means no credentials are configured and every trade attempt fails
// with domain.ErrNoCredentials. Entries are signed so the audit trail
// is attributable to the account that made them.
type Wallet interface {
	Address() common.Address
	SignMessage(msg []byte) (string, error)
}

// TradingConfig holds the execution gate thresholds.
type TradingConfig struct {
	Enabled           bool    // initial switch state
	SecurityThreshold int     // minimum security score to trade
	MaxAnomalyRisk    float64 // opportunities at or above this anomaly risk are skipped
	PositionSizeUSD   float64 // notional spent per entry
}

// TradingService gates execution behind the runtime trading switch and
// the configured credentials, and sizes and opens positions for
// qualified opportunities. Execution is simulated: entries fill at the
// opportunity's listing price.
type TradingService struct {
	enabled   atomic.Bool
	cfg       TradingConfig
	wallet    Wallet
	positions *PositionService
	audit     domain.AuditStore
	bus       domain.SignalBus
	logger    *slog.Logger
}

// NewTradingService creates a TradingService. The switch starts in the
// configured state.
func NewTradingService(
	cfg TradingConfig,
	wallet Wallet,
	positions *PositionService,
	audit domain.AuditStore,
	logger *slog.Logger,
) *TradingService {
	s := &TradingService{
		cfg:       cfg,
		wallet:    wallet,
		positions: positions,
		audit:     audit,
		logger:    logger,
	}
	s.enabled.Store(cfg.Enabled)
	return s
}

// WithBus sets the signal bus on which switch flips are announced.
func (s *TradingService) WithBus(bus domain.SignalBus) *TradingService {
	s.bus = bus
	return s
}

// Enabled reports the current switch state.
func (s *TradingService) Enabled() bool { return s.enabled.Load() }

// Enable flips the trading switch on.
func (s *TradingService) Enable(ctx context.Context) {
	s.setEnabled(ctx, true)
}

// Disable flips the trading switch off. Open positions keep being
// monitored; only new entries are blocked.
func (s *TradingService) Disable(ctx context.Context) {
	s.setEnabled(ctx, false)
}

func (s *TradingService) setEnabled(ctx context.Context, enabled bool) {
	if s.enabled.Swap(enabled) == enabled {
		return
	}
	if s.audit != nil {
		if auditErr := s.audit.Log(ctx, "trading_switched", map[string]any{
			"enabled": enabled,
		}); auditErr != nil {
			s.logger.WarnContext(ctx, "trading_service: audit log failed",
				slog.String("error", auditErr.Error()),
			)
		}
	}
	if s.bus != nil {
		evt, _ := json.Marshal(map[string]any{
			"event":   "trading_switched",
			"enabled": enabled,
		})
		if pubErr := s.bus.Publish(ctx, "trading", evt); pubErr != nil {
			s.logger.WarnContext(ctx, "trading_service: publish failed",
				slog.String("error", pubErr.Error()),
			)
		}
	}
	s.logger.InfoContext(ctx, "trading_service: switch flipped",
		slog.Bool("enabled", enabled),
	)
}

// Qualified reports whether an opportunity clears the execution gate:
// security score at or above the threshold, risk level below HIGH, and
// anomaly risk below the configured ceiling.
func (s *TradingService) Qualified(opp domain.Opportunity) bool {
	if opp.Security.Score < s.cfg.SecurityThreshold {
		return false
	}
	if opp.Security.RiskLevel == domain.RiskHigh {
		return false
	}
	if opp.Anomaly != nil && s.cfg.MaxAnomalyRisk > 0 && opp.Anomaly.RiskScore >= s.cfg.MaxAnomalyRisk {
		return false
	}
	return true
}

// Execute opens a position for a qualified opportunity. The gates fail
// closed: a disabled switch, missing credentials, or a disqualified
// opportunity block the entry without touching position state.
func (s *TradingService) Execute(ctx context.Context, opp domain.Opportunity) (domain.Position, error) {
	if !s.enabled.Load() {
		return domain.Position{}, fmt.Errorf("trading_service: execute %q: %w", opp.Symbol, domain.ErrTradingDisabled)
	}
	if s.wallet == nil {
		return domain.Position{}, fmt.Errorf("trading_service: execute %q: %w", opp.Symbol, domain.ErrNoCredentials)
	}
	if !s.Qualified(opp) {
		return domain.Position{}, fmt.Errorf("trading_service: execute %q: opportunity below execution gate (score %d, risk %s)",
			opp.Symbol, opp.Security.Score, opp.Security.RiskLevel)
	}
	if opp.Price <= 0 {
		return domain.Position{}, fmt.Errorf("trading_service: execute %q: no usable price", opp.Symbol)
	}

	units := s.cfg.PositionSizeUSD / opp.Price
	pos, err := s.positions.Open(ctx, opp.Symbol, opp.Chain, opp.Address, units, opp.Price)
	if err != nil {
		return domain.Position{}, fmt.Errorf("trading_service: execute %q: %w", opp.Symbol, err)
	}

	s.auditEntry(ctx, pos, units, opp.Price)

	s.logger.InfoContext(ctx, "trading_service: position entered",
		slog.String("symbol", opp.Symbol),
		slog.String("chain", string(opp.Chain)),
		slog.String("wallet", s.wallet.Address().Hex()),
		slog.Float64("units", units),
		slog.Float64("entry_price", opp.Price),
	)
	return pos, nil
}

// auditEntry records the entry in the audit log, signed by the wallet
// so the record is attributable to the executing account.
func (s *TradingService) auditEntry(ctx context.Context, pos domain.Position, units, entryPrice float64) {
	if s.audit == nil {
		return
	}
	detail := map[string]any{
		"position_id": pos.ID,
		"symbol":      pos.Asset,
		"chain":       string(pos.Chain),
		"units":       units,
		"entry_price": entryPrice,
		"wallet":      s.wallet.Address().Hex(),
	}
	msg := fmt.Sprintf("%s|%s|%s|%.8f|%.8f", pos.ID, pos.Asset, pos.Chain, units, entryPrice)
	sig, err := s.wallet.SignMessage([]byte(msg))
	if err != nil {
		s.logger.WarnContext(ctx, "trading_service: entry signature failed",
			slog.String("position_id", pos.ID),
			slog.String("error", err.Error()),
		)
	} else {
		detail["signature"] = sig
	}
	if err := s.audit.Log(ctx, "trade_entered", detail); err != nil {
		s.logger.WarnContext(ctx, "trading_service: audit log failed",
			slog.String("error", err.Error()),
		)
	}
}

// ExecuteBatch runs Execute over ranked opportunities, skipping
// disqualified ones and keys that already hold a position. It returns
// the positions actually opened.
func (s *TradingService) ExecuteBatch(ctx context.Context, opps []domain.Opportunity, maxEntries int) []domain.Position {
	var opened []domain.Position
	for _, opp := range opps {
		if maxEntries > 0 && len(opened) >= maxEntries {
			break
		}
		if !s.Qualified(opp) {
			continue
		}
		pos, err := s.Execute(ctx, opp)
		if err != nil {
			// A blocked switch or missing credentials blocks the whole batch.
			if !s.enabled.Load() || s.wallet == nil {
				s.logger.InfoContext(ctx, "trading_service: batch halted",
					slog.String("reason", err.Error()),
				)
				break
			}
			s.logger.DebugContext(ctx, "trading_service: entry skipped",
				slog.String("symbol", opp.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		opened = append(opened, pos)
	}
	return opened
}
