package jobs

import (
	"context"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"go.uber.org/zap"
)

// MonthlyReportJobName is the name of the scheduled price control run
const MonthlyReportJobName = "monthly_price_control"

// ReportService defines the interface for running the price control analysis.
// This interface allows the job to call the service without importing the
// service package directly.
type ReportService interface {
	MonthlyReport(ctx context.Context, month domain.AnalysisMonth, trigger domain.RunTrigger) (*domain.PriceControlReport, error)
}

// MonthlyReportJob runs the price control analysis for the previous month.
// It is scheduled shortly after month close so the run covers a complete
// month of orders; the result lands in the run log only, nothing is stored.
type MonthlyReportJob struct {
	service ReportService
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewMonthlyReportJob creates a new monthly report job.
// The timeout controls how long the analysis is allowed to run.
func NewMonthlyReportJob(service ReportService, logger *zap.Logger, timeout time.Duration) *MonthlyReportJob {
	return &MonthlyReportJob{
		service: service,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
	}
}

// Run executes the previous-month analysis.
// This is called by the scheduler according to the cron expression.
func (j *MonthlyReportJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	month := domain.ParseMonth("", j.now()).Previous()
	start := time.Now()
	j.logger.Info("starting scheduled price control run",
		zap.String("month", month.String()))

	report, err := j.service.MonthlyReport(ctx, month, domain.RunTriggerScheduled)
	if err != nil {
		j.logger.Error("scheduled price control run failed",
			zap.String("month", month.String()),
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("scheduled price control run completed",
		zap.String("month", month.String()),
		zap.Int("fixed_price_lines", len(report.FixedPriceLines)),
		zap.Int("base_price_lines", len(report.BasePriceLines)),
		zap.Int64("performance_ms", report.PerformanceMs),
		zap.Duration("duration", time.Since(start)))
}

// RegisterMonthlyReportJob wires the job into the scheduler.
func RegisterMonthlyReportJob(
	scheduler *Scheduler,
	service ReportService,
	logger *zap.Logger,
	cronExpr string,
	timeout time.Duration,
) error {
	job := NewMonthlyReportJob(service, logger, timeout)
	return scheduler.AddJob(MonthlyReportJobName, cronExpr, job.Run)
}
