package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReportService struct {
	report     *domain.PriceControlReport
	runs       []domain.AnalysisRun
	err        error
	gotMonth   domain.AnalysisMonth
	gotLimit   int
	gotTrigger domain.RunTrigger
}

func (f *fakeReportService) MonthlyReport(_ context.Context, month domain.AnalysisMonth, trigger domain.RunTrigger) (*domain.PriceControlReport, error) {
	f.gotMonth = month
	f.gotTrigger = trigger
	if f.err != nil {
		return nil, f.err
	}
	return f.report, nil
}

func (f *fakeReportService) ListRuns(_ context.Context, limit int) ([]domain.AnalysisRun, error) {
	f.gotLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.runs, nil
}

func emptyReport(month string) *domain.PriceControlReport {
	return &domain.PriceControlReport{
		Month:           month,
		Stats:           domain.NewAnalysisStats(),
		FixedPriceLines: []domain.AnalysisLine{},
		BasePriceLines:  []domain.AnalysisLine{},
	}
}

func TestGetReport(t *testing.T) {
	svc := &fakeReportService{report: emptyReport("2025-03")}
	h := NewPriceControlHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control?month=2025-03", nil)
	rec := httptest.NewRecorder()
	h.GetReport(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.AnalysisMonth{Year: 2025, Month: time.March}, svc.gotMonth)
	assert.Equal(t, domain.RunTriggerAPI, svc.gotTrigger)

	var body domain.PriceControlReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2025-03", body.Month)
	assert.NotNil(t, body.FixedPriceLines)
	assert.NotNil(t, body.BasePriceLines)
}

func TestGetReport_MalformedMonthFallsBack(t *testing.T) {
	svc := &fakeReportService{report: emptyReport("fallback")}
	h := NewPriceControlHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control?month=bogus", nil)
	rec := httptest.NewRecorder()
	h.GetReport(rec, req)

	// Malformed input is recovered, never rejected
	assert.Equal(t, http.StatusOK, rec.Code)
	now := time.Now()
	assert.Equal(t, domain.AnalysisMonth{Year: now.Year(), Month: now.Month()}, svc.gotMonth)
}

func TestGetReport_UpstreamFailure(t *testing.T) {
	svc := &fakeReportService{err: fmt.Errorf("connection refused")}
	h := NewPriceControlHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control", nil)
	rec := httptest.NewRecorder()
	h.GetReport(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeUpstream, apiErr.Type)
	// The raw upstream error never leaks to the caller
	assert.NotContains(t, apiErr.Detail, "connection refused")
}

func TestListRuns(t *testing.T) {
	svc := &fakeReportService{runs: []domain.AnalysisRun{
		{Month: "2025-03", TriggeredBy: domain.RunTriggerAPI, Succeeded: true},
	}}
	h := NewPriceControlHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control/runs?limit=5", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.gotLimit)

	var runs []domain.AnalysisRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "2025-03", runs[0].Month)
}

func TestListRuns_InvalidLimit(t *testing.T) {
	h := NewPriceControlHandler(&fakeReportService{}, zap.NewNop())

	tests := []struct {
		name  string
		query string
	}{
		{"not a number", "limit=abc"},
		{"negative", "limit=-3"},
		{"too large", "limit=5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control/runs?"+tt.query, nil)
			rec := httptest.NewRecorder()
			h.ListRuns(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListRuns_DefaultLimit(t *testing.T) {
	svc := &fakeReportService{runs: []domain.AnalysisRun{}}
	h := NewPriceControlHandler(svc, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/price-control/runs", nil)
	rec := httptest.NewRecorder()
	h.ListRuns(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, svc.gotLimit)
}
