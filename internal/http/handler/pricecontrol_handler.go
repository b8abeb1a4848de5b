package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"go.uber.org/zap"
)

// PriceControlReporter is the service surface the handler depends on.
type PriceControlReporter interface {
	MonthlyReport(ctx context.Context, month domain.AnalysisMonth, trigger domain.RunTrigger) (*domain.PriceControlReport, error)
	ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error)
}

type PriceControlHandler struct {
	service PriceControlReporter
	logger  *zap.Logger
}

func NewPriceControlHandler(service PriceControlReporter, logger *zap.Logger) *PriceControlHandler {
	return &PriceControlHandler{
		service: service,
		logger:  logger,
	}
}

type listRunsRequest struct {
	Limit int `validate:"omitempty,gte=1,lte=100"`
}

// @Summary Run the monthly price control analysis
// @Description Evaluates every open sale order line of the requested month against the
// @Description customer's price agreements and partitions the results into fixed-price
// @Description and base-price findings.
// @Description
// @Description The `month` parameter uses the YYYY-MM format. A missing or malformed
// @Description value falls back to the current month, matching how the analysis was
// @Description run historically.
// @Tags PriceControl
// @Produce json
// @Param month query string false "Month to analyze (YYYY-MM), defaults to current month"
// @Success 200 {object} domain.PriceControlReport
// @Failure 502 {object} domain.APIError
// @Router /price-control [get]
func (h *PriceControlHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	month := domain.ParseMonth(r.URL.Query().Get("month"), time.Now())

	report, err := h.service.MonthlyReport(r.Context(), month, domain.RunTriggerAPI)
	if err != nil {
		h.logger.Error("price control analysis failed",
			zap.String("month", month.String()),
			zap.Error(err))
		respondWithError(w, http.StatusBadGateway, "order management system unavailable")
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// @Summary List recent analysis runs
// @Description Returns metadata for recent analysis runs (month, trigger, line counts,
// @Description duration). The computed report itself is never stored.
// @Tags PriceControl
// @Produce json
// @Param limit query int false "Maximum number of runs to return (1-100, default 20)"
// @Success 200 {array} domain.AnalysisRun
// @Failure 400 {object} domain.APIError
// @Router /price-control/runs [get]
func (h *PriceControlHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	req := listRunsRequest{}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		req.Limit = limit
	}

	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	runs, err := h.service.ListRuns(r.Context(), req.Limit)
	if err != nil {
		h.logger.Error("failed to list analysis runs", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "failed to list analysis runs")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}
