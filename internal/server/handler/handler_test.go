package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenscout/tokenscout/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakePositionService struct {
	active  []domain.Position
	history []domain.Position
	byID    map[string]domain.Position
	histErr error
}

func (f *fakePositionService) Active() []domain.Position { return f.active }

func (f *fakePositionService) ListHistory(_ context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	if f.histErr != nil {
		return nil, f.histErr
	}
	if opts.Limit < len(f.history) {
		return f.history[:opts.Limit], nil
	}
	return f.history, nil
}

func (f *fakePositionService) Get(_ context.Context, id string) (domain.Position, error) {
	pos, ok := f.byID[id]
	if !ok {
		return domain.Position{}, fmt.Errorf("store: position %s: %w", id, domain.ErrNotFound)
	}
	return pos, nil
}

type fakeOpportunityService struct {
	opps []domain.Opportunity
}

func (f *fakeOpportunityService) ListRecent(_ context.Context, limit int) ([]domain.Opportunity, error) {
	if limit > 0 && limit < len(f.opps) {
		return f.opps[:limit], nil
	}
	return f.opps, nil
}

type fakeTradingService struct {
	enabled bool
}

func (f *fakeTradingService) Enable(context.Context)  { f.enabled = true }
func (f *fakeTradingService) Disable(context.Context) { f.enabled = false }
func (f *fakeTradingService) Enabled() bool           { return f.enabled }

type fakePerformanceService struct {
	ledger domain.PerformanceLedger
}

func (f *fakePerformanceService) Performance() domain.PerformanceLedger { return f.ledger }

func samplePosition(id, asset string) domain.Position {
	return domain.Position{
		ID:              id,
		Asset:           asset,
		Chain:           domain.ChainEth,
		Address:         "0x1111111111111111111111111111111111111111",
		InitialAmount:   100,
		AmountRemaining: 100,
		EntryPrice:      1.5,
		Status:          domain.PositionStatusOpen,
		OpenedAt:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestListPositions(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{
		active: []domain.Position{samplePosition("p1", "AAA"), samplePosition("p2", "BBB")},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.ListPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var resp listPositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Positions, 2)
	assert.Equal(t, "AAA", resp.Positions[0].Asset)
}

func TestListPositionsEmptyIsArray(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"positions":[]}`, rec.Body.String())
}

func TestGetPosition(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{
		byID: map[string]domain.Position{"p1": samplePosition("p1", "AAA")},
	}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{id}", h.GetPosition)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/p1", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var pos domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pos))
	assert.Equal(t, "p1", pos.ID)
	assert.Equal(t, "AAA", pos.Asset)
}

func TestGetPositionNotFound(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{byID: map[string]domain.Position{}}, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{id}", h.GetPosition)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"position not found"}`, rec.Body.String())
}

func TestListHistoryAppliesLimit(t *testing.T) {
	history := []domain.Position{
		samplePosition("p1", "AAA"),
		samplePosition("p2", "BBB"),
		samplePosition("p3", "CCC"),
	}
	h := NewPositionHandler(&fakePositionService{history: history}, testLogger())

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/positions/history?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listPositionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Positions, 2)
}

func TestListHistoryError(t *testing.T) {
	h := NewPositionHandler(&fakePositionService{histErr: fmt.Errorf("store: boom")}, testLogger())

	rec := httptest.NewRecorder()
	h.ListHistory(rec, httptest.NewRequest(http.MethodGet, "/api/positions/history", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListOpportunities(t *testing.T) {
	h := NewOpportunityHandler(&fakeOpportunityService{
		opps: []domain.Opportunity{
			{ID: "o1", Symbol: "AAA", Score: 85},
			{ID: "o2", Symbol: "BBB", Score: 70},
		},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listOpportunitiesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Opportunities, 2)
	assert.Equal(t, "AAA", resp.Opportunities[0].Symbol)
}

func TestListOpportunitiesRejectsBadLimit(t *testing.T) {
	h := NewOpportunityHandler(&fakeOpportunityService{}, testLogger())

	for _, limit := range []string{"abc", "-1"} {
		rec := httptest.NewRecorder()
		h.ListOpportunities(rec, httptest.NewRequest(http.MethodGet, "/api/opportunities?limit="+limit, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit=%s", limit)
	}
}

func TestGetPerformance(t *testing.T) {
	h := NewPerformanceHandler(&fakePerformanceService{
		ledger: domain.PerformanceLedger{
			AllTimeProfit:    120.5,
			AllTimeLoss:      20.5,
			SuccessfulTrades: 4,
			FailedTrades:     1,
		},
	}, testLogger())

	rec := httptest.NewRecorder()
	h.GetPerformance(rec, httptest.NewRequest(http.MethodGet, "/api/performance", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.InDelta(t, 120.5, resp["all_time_profit"], 0.0001)
	assert.InDelta(t, 20.5, resp["all_time_loss"], 0.0001)
	assert.InDelta(t, 100.0, resp["net_pnl"], 0.0001)
	assert.EqualValues(t, 4, resp["successful_trades"])
}

func TestTradingEnableDisable(t *testing.T) {
	svc := &fakeTradingService{}
	h := NewTradingHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.Enable(rec, httptest.NewRequest(http.MethodPost, "/api/trading/enable", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":true}`, rec.Body.String())
	assert.True(t, svc.enabled)

	rec = httptest.NewRecorder()
	h.Disable(rec, httptest.NewRequest(http.MethodPost, "/api/trading/disable", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
	assert.False(t, svc.enabled)

	rec = httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/trading", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"enabled":false}`, rec.Body.String())
}

func TestTriggerScan(t *testing.T) {
	ch := make(chan struct{}, 1)
	h := NewScanHandler(testLogger()).WithTriggerChannel(ch)

	rec := httptest.NewRecorder()
	h.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan/trigger", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case <-ch:
	default:
		t.Fatal("expected a trigger on the channel")
	}
}

func TestTriggerScanFullChannel(t *testing.T) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}
	h := NewScanHandler(testLogger()).WithTriggerChannel(ch)

	rec := httptest.NewRecorder()
	h.TriggerScan(rec, httptest.NewRequest(http.MethodPost, "/api/scan/trigger", nil))

	// A pending trigger already covers the request.
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestParseListOpts(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults", query: "", wantLimit: 50, wantOffset: 0},
		{name: "explicit", query: "limit=10&offset=20", wantLimit: 10, wantOffset: 20},
		{name: "capped", query: "limit=9999", wantLimit: 500, wantOffset: 0},
		{name: "garbage ignored", query: "limit=abc&offset=-5", wantLimit: 50, wantOffset: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/positions?"+tt.query, nil)
			opts := parseListOpts(r)
			assert.Equal(t, tt.wantLimit, opts.Limit)
			assert.Equal(t, tt.wantOffset, opts.Offset)
		})
	}
}
