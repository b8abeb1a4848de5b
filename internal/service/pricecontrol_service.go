package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/demarchi-food/pricecontrol-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// equalityThreshold: deviations below one cent count as equal.
var equalityThreshold = decimal.NewFromFloat(0.01)

var oneHundred = decimal.NewFromInt(100)

// PriceControlService runs the monthly pricing-variance analysis: it loads a
// bulk snapshot from the ERP, resolves the contractual reference price for
// every sold line, and aggregates the deviations. The computation is
// read-only and request-scoped; only run metadata is persisted.
type PriceControlService struct {
	erp       SearchReader
	companyID int64
	runRepo   *repository.AnalysisRunRepository
	logger    *zap.Logger
}

// NewPriceControlService creates the service. runRepo may be nil when the
// run log database is not configured; runs then go unrecorded.
func NewPriceControlService(client SearchReader, companyID int64, runRepo *repository.AnalysisRunRepository, logger *zap.Logger) *PriceControlService {
	return &PriceControlService{
		erp:       client,
		companyID: companyID,
		runRepo:   runRepo,
		logger:    logger,
	}
}

// MonthlyReport computes the price-control report for one month.
// A month with no qualifying orders yields a well-formed empty report, not
// an error; any upstream fetch failure aborts the whole computation.
func (s *PriceControlService) MonthlyReport(ctx context.Context, month domain.AnalysisMonth, trigger domain.RunTrigger) (*domain.PriceControlReport, error) {
	start := time.Now()

	snap, err := s.loadSnapshot(ctx, month)
	if err != nil {
		s.recordRun(ctx, month, trigger, nil, 0, start, err)
		return nil, fmt.Errorf("price control %s: %w", month, err)
	}

	report := &domain.PriceControlReport{
		Month:           month.String(),
		Stats:           domain.NewAnalysisStats(),
		FixedPriceLines: []domain.AnalysisLine{},
		BasePriceLines:  []domain.AnalysisLine{},
	}

	skipped := 0
	if len(snap.Orders) > 0 {
		idx := BuildIndices(snap)

		for _, line := range snap.Lines {
			analysed, ok := evaluateLine(line, idx)
			if !ok {
				// The order or product vanished between fetches; expected
				// under concurrent mutation upstream, not an error.
				skipped++
				continue
			}
			if analysed.Tier == domain.TierFixed {
				report.FixedPriceLines = append(report.FixedPriceLines, analysed)
			} else {
				report.BasePriceLines = append(report.BasePriceLines, analysed)
			}
		}

		report.Stats = aggregate(report.FixedPriceLines, report.BasePriceLines)
		sortByAbsDiff(report.FixedPriceLines)
		sortByAbsDiff(report.BasePriceLines)
	}

	report.PerformanceMs = time.Since(start).Milliseconds()

	s.logger.Info("price control run completed",
		zap.String("month", month.String()),
		zap.String("trigger", string(trigger)),
		zap.Int("orders", len(snap.Orders)),
		zap.Int("lines", report.Stats.TotalLines),
		zap.Int("skipped_lines", skipped),
		zap.Int64("duration_ms", report.PerformanceMs),
	)

	s.recordRun(ctx, month, trigger, snap, skipped, start, nil)
	return report, nil
}

// ListRuns returns the most recent analysis run records.
func (s *PriceControlService) ListRuns(ctx context.Context, limit int) ([]domain.AnalysisRun, error) {
	if s.runRepo == nil {
		return []domain.AnalysisRun{}, nil
	}
	return s.runRepo.ListRecent(ctx, limit)
}

// evaluateLine resolves the reference price for one sold line and computes
// its deviation figures. ok is false when the line's order or product is
// missing from the snapshot and the line must be skipped.
func evaluateLine(line domain.OrderLine, idx *Indices) (domain.AnalysisLine, bool) {
	order, ok := idx.Order(line.OrderID)
	if !ok {
		return domain.AnalysisLine{}, false
	}
	product, ok := idx.Product(line.ProductID)
	if !ok {
		return domain.AnalysisLine{}, false
	}

	resolved := idx.Resolve(order.RuleListID, product.ID, product.TemplateID, product)

	effective := line.UnitPrice.Mul(oneHundred.Sub(line.DiscountPercent)).Div(oneHundred)
	diff := effective.Sub(resolved.Price)

	diffPercent := decimal.Zero
	if resolved.Price.IsPositive() {
		diffPercent = diff.Div(resolved.Price).Mul(oneHundred)
	}

	profit := effective.Sub(product.CostPrice).Mul(line.Quantity)

	margin := decimal.Zero
	if product.CostPrice.IsPositive() {
		margin = effective.Sub(product.CostPrice).Div(product.CostPrice).Mul(oneHundred)
	}

	return domain.AnalysisLine{
		LineID:          line.ID,
		OrderID:         order.ID,
		CustomerName:    order.CustomerName,
		ProductID:       product.ID,
		ProductCode:     product.Code,
		Description:     line.Description,
		Quantity:        line.Quantity,
		SoldPrice:       line.UnitPrice,
		DiscountPercent: line.DiscountPercent,
		EffectivePrice:  effective,
		ReferencePrice:  resolved.Price,
		CostPrice:       product.CostPrice,
		Diff:            diff,
		DiffPercent:     diffPercent,
		Profit:          profit,
		MarginPercent:   margin,
		Tier:            resolved.Tier,
		Classification:  classify(diff),
		PriceSource:     resolved.Provenance,
	}, true
}

// classify maps a deviation to its tri-state class.
func classify(diff decimal.Decimal) domain.PriceClass {
	if diff.Abs().LessThan(equalityThreshold) {
		return domain.PriceClassEqual
	}
	if diff.IsPositive() {
		return domain.PriceClassHigher
	}
	return domain.PriceClassLower
}

// aggregate folds the evaluated lines into per-tier counts and run totals.
func aggregate(fixedLines, baseLines []domain.AnalysisLine) domain.AnalysisStats {
	stats := domain.NewAnalysisStats()

	marginTotal := decimal.Zero
	for _, tier := range [][]domain.AnalysisLine{fixedLines, baseLines} {
		for _, line := range tier {
			marginTotal = marginTotal.Add(line.MarginPercent)
			stats.TotalProfit = stats.TotalProfit.Add(line.Profit)
		}
	}

	stats.Fixed = tierStats(fixedLines)
	stats.Base = tierStats(baseLines)
	stats.TotalLines = len(fixedLines) + len(baseLines)
	if stats.TotalLines > 0 {
		stats.AverageMargin = marginTotal.Div(decimal.NewFromInt(int64(stats.TotalLines)))
	}

	return stats
}

func tierStats(lines []domain.AnalysisLine) domain.TierStats {
	ts := domain.TierStats{DiffTotal: decimal.Zero}
	for _, line := range lines {
		ts.Count++
		switch line.Classification {
		case domain.PriceClassHigher:
			ts.Higher++
		case domain.PriceClassLower:
			ts.Lower++
		}
		ts.DiffTotal = ts.DiffTotal.Add(line.Diff)
	}
	return ts
}

// sortByAbsDiff orders lines with the largest discrepancies first, the
// intended audit reading order.
func sortByAbsDiff(lines []domain.AnalysisLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Diff.Abs().GreaterThan(lines[j].Diff.Abs())
	})
}

// recordRun appends one audit row for the run. Best effort: a run-log
// failure never fails the analysis itself.
func (s *PriceControlService) recordRun(ctx context.Context, month domain.AnalysisMonth, trigger domain.RunTrigger, snap *Snapshot, skipped int, start time.Time, runErr error) {
	if s.runRepo == nil {
		return
	}

	run := &domain.AnalysisRun{
		Month:        month.String(),
		TriggeredBy:  trigger,
		SkippedLines: skipped,
		DurationMs:   time.Since(start).Milliseconds(),
		Succeeded:    runErr == nil,
	}
	if snap != nil {
		run.OrderCount = len(snap.Orders)
		run.LineCount = len(snap.Lines)
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}

	if err := s.runRepo.Create(ctx, run); err != nil {
		s.logger.Warn("failed to record analysis run",
			zap.String("month", month.String()),
			zap.Error(err),
		)
	}
}
