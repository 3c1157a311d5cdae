package handler

import (
	"log/slog"
	"net/http"

	"github.com/tokenscout/tokenscout/internal/domain"
)

// PerformanceService defines the methods that the performance handler requires.
type PerformanceService interface {
	Performance() domain.PerformanceLedger
}

// PerformanceHandler serves realized-performance HTTP endpoints.
type PerformanceHandler struct {
	positions PerformanceService
	logger    *slog.Logger
}

// NewPerformanceHandler creates a PerformanceHandler with the given service and logger.
func NewPerformanceHandler(positions PerformanceService, logger *slog.Logger) *PerformanceHandler {
	return &PerformanceHandler{
		positions: positions,
		logger:    logHandler(logger, "performance"),
	}
}

// performanceResponse reports the realized ledger plus the derived net figure.
type performanceResponse struct {
	AllTimeProfit    float64                                  `json:"all_time_profit"`
	AllTimeLoss      float64                                  `json:"all_time_loss"`
	NetPnL           float64                                  `json:"net_pnl"`
	SuccessfulTrades int                                      `json:"successful_trades"`
	FailedTrades     int                                      `json:"failed_trades"`
	PerChain         map[domain.Chain]domain.ChainPerformance `json:"per_chain"`
}

// GetPerformance returns the accumulated trading performance ledger.
// GET /api/performance
func (h *PerformanceHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	ledger := h.positions.Performance()
	writeJSON(w, http.StatusOK, performanceResponse{
		AllTimeProfit:    ledger.AllTimeProfit,
		AllTimeLoss:      ledger.AllTimeLoss,
		NetPnL:           ledger.AllTimeProfit - ledger.AllTimeLoss,
		SuccessfulTrades: ledger.SuccessfulTrades,
		FailedTrades:     ledger.FailedTrades,
		PerChain:         ledger.PerChain,
	})
}
