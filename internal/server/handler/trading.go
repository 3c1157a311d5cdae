package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// TradingService defines the methods that the trading handler requires.
type TradingService interface {
	Enable(ctx context.Context)
	Disable(ctx context.Context)
	Enabled() bool
}

// TradingHandler serves the trading kill-switch HTTP endpoints.
type TradingHandler struct {
	trading TradingService
	logger  *slog.Logger
}

// NewTradingHandler creates a TradingHandler with the given service and logger.
func NewTradingHandler(trading TradingService, logger *slog.Logger) *TradingHandler {
	return &TradingHandler{
		trading: trading,
		logger:  logHandler(logger, "trading"),
	}
}

// tradingStatusResponse reports the current switch state.
type tradingStatusResponse struct {
	Enabled bool `json:"enabled"`
}

// GetStatus returns whether live trade entry is currently enabled.
// GET /api/trading
func (h *TradingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tradingStatusResponse{Enabled: h.trading.Enabled()})
}

// Enable turns live trade entry on.
// POST /api/trading/enable
func (h *TradingHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.trading.Enable(r.Context())
	writeJSON(w, http.StatusOK, tradingStatusResponse{Enabled: h.trading.Enabled()})
}

// Disable turns live trade entry off.
// POST /api/trading/disable
func (h *TradingHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.trading.Disable(r.Context())
	writeJSON(w, http.StatusOK, tradingStatusResponse{Enabled: h.trading.Enabled()})
}
