package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		diff decimal.Decimal
		want domain.PriceClass
	}{
		{"well above", dec(1.50), domain.PriceClassHigher},
		{"well below", dec(-1.50), domain.PriceClassLower},
		{"zero", decimal.Zero, domain.PriceClassEqual},
		{"just under threshold", dec(0.009), domain.PriceClassEqual},
		{"just under threshold negative", dec(-0.009), domain.PriceClassEqual},
		{"exactly one cent", dec(0.01), domain.PriceClassHigher},
		{"just over threshold", dec(0.011), domain.PriceClassHigher},
		{"just over threshold negative", dec(-0.011), domain.PriceClassLower},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.diff))
		})
	}
}

func evaluationIndices() *Indices {
	return BuildIndices(&Snapshot{
		Orders: []domain.Order{
			{ID: 1, CustomerName: "Supermercati Rossi", RuleListID: 10},
		},
		Products: []domain.Product{
			{ID: 100, TemplateID: 1000, CostPrice: dec(5.00), ListPrice: dec(9.00), Code: "OLI001"},
		},
		RuleLists: []domain.RuleList{{ID: 10, Name: "Listino GDO"}},
		Entries: []domain.RuleListEntry{
			{ID: 1, RuleListID: 10, Scope: domain.RuleScopeVariant, ComputeMode: domain.ComputeModeFixed, FixedPrice: dec(7.50), VariantID: 100},
		},
	})
}

func TestEvaluateLine(t *testing.T) {
	idx := evaluationIndices()

	line := domain.OrderLine{
		ID:              11,
		OrderID:         1,
		ProductID:       100,
		Description:     "Olio EVO 1L",
		Quantity:        dec(10),
		UnitPrice:       dec(8.00),
		DiscountPercent: dec(25),
	}

	analysed, ok := evaluateLine(line, idx)
	require.True(t, ok)

	// 8.00 with 25% discount invoices at 6.00 against a 7.50 agreement
	assert.True(t, analysed.EffectivePrice.Equal(dec(6.00)), "effective %s", analysed.EffectivePrice)
	assert.True(t, analysed.ReferencePrice.Equal(dec(7.50)))
	assert.True(t, analysed.Diff.Equal(dec(-1.50)))
	assert.True(t, analysed.DiffPercent.Equal(dec(-20)), "diffPercent %s", analysed.DiffPercent)
	assert.True(t, analysed.Profit.Equal(dec(10.00)), "profit %s", analysed.Profit)
	assert.True(t, analysed.MarginPercent.Equal(dec(20)), "margin %s", analysed.MarginPercent)
	assert.Equal(t, domain.PriceClassLower, analysed.Classification)
	assert.Equal(t, domain.TierFixed, analysed.Tier)
	assert.Equal(t, "Listino GDO", analysed.PriceSource)
	assert.Equal(t, "Supermercati Rossi", analysed.CustomerName)
	assert.Equal(t, "OLI001", analysed.ProductCode)
}

func TestEvaluateLine_ZeroGuards(t *testing.T) {
	idx := BuildIndices(&Snapshot{
		Orders:   []domain.Order{{ID: 1, RuleListID: 10}},
		Products: []domain.Product{{ID: 100, TemplateID: 1000, CostPrice: decimal.Zero, ListPrice: decimal.Zero}},
	})

	line := domain.OrderLine{ID: 11, OrderID: 1, ProductID: 100, Quantity: dec(1), UnitPrice: dec(2.00)}

	analysed, ok := evaluateLine(line, idx)
	require.True(t, ok)

	// Reference and cost are zero: diff percent and margin stay zero rather
	// than dividing by zero
	assert.True(t, analysed.DiffPercent.IsZero())
	assert.True(t, analysed.MarginPercent.IsZero())
	assert.True(t, analysed.Profit.Equal(dec(2.00)))
}

func TestEvaluateLine_SkipsDanglingReferences(t *testing.T) {
	idx := evaluationIndices()

	_, ok := evaluateLine(domain.OrderLine{ID: 11, OrderID: 999, ProductID: 100}, idx)
	assert.False(t, ok, "missing order must skip the line")

	_, ok = evaluateLine(domain.OrderLine{ID: 11, OrderID: 1, ProductID: 999}, idx)
	assert.False(t, ok, "missing product must skip the line")
}

func TestAggregate(t *testing.T) {
	fixed := []domain.AnalysisLine{
		{Diff: dec(2.00), Classification: domain.PriceClassHigher, Profit: dec(10), MarginPercent: dec(20)},
		{Diff: dec(-1.00), Classification: domain.PriceClassLower, Profit: dec(5), MarginPercent: dec(10)},
	}
	base := []domain.AnalysisLine{
		{Diff: decimal.Zero, Classification: domain.PriceClassEqual, Profit: dec(3), MarginPercent: dec(30)},
	}

	stats := aggregate(fixed, base)

	assert.Equal(t, 3, stats.TotalLines)
	assert.Equal(t, 2, stats.Fixed.Count)
	assert.Equal(t, 1, stats.Fixed.Higher)
	assert.Equal(t, 1, stats.Fixed.Lower)
	assert.True(t, stats.Fixed.DiffTotal.Equal(dec(1.00)))
	assert.Equal(t, 1, stats.Base.Count)
	assert.Equal(t, 0, stats.Base.Higher)
	assert.Equal(t, 0, stats.Base.Lower)
	assert.True(t, stats.Base.DiffTotal.IsZero())
	assert.True(t, stats.TotalProfit.Equal(dec(18)))
	assert.True(t, stats.AverageMargin.Equal(dec(20)))
}

func TestAggregate_Empty(t *testing.T) {
	stats := aggregate(nil, nil)

	assert.Equal(t, 0, stats.TotalLines)
	assert.True(t, stats.TotalProfit.IsZero())
	assert.True(t, stats.AverageMargin.IsZero())
}

func TestSortByAbsDiff(t *testing.T) {
	lines := []domain.AnalysisLine{
		{LineID: 1, Diff: dec(0.50)},
		{LineID: 2, Diff: dec(-3.00)},
		{LineID: 3, Diff: dec(1.20)},
		{LineID: 4, Diff: decimal.Zero},
	}

	sortByAbsDiff(lines)

	got := []int64{lines[0].LineID, lines[1].LineID, lines[2].LineID, lines[3].LineID}
	assert.Equal(t, []int64{2, 3, 1, 4}, got)
}

func TestMonthlyReport(t *testing.T) {
	reader := newFakeReader()
	queueMonth(reader)
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	report, err := svc.MonthlyReport(context.Background(), domain.AnalysisMonth{Year: 2025, Month: time.March}, domain.RunTriggerAPI)
	require.NoError(t, err)

	assert.Equal(t, "2025-03", report.Month)

	// Line 11: fixed variant rule at 7.50, sold at 8.00 flat
	require.Len(t, report.FixedPriceLines, 1)
	fixedLine := report.FixedPriceLines[0]
	assert.Equal(t, int64(11), fixedLine.LineID)
	assert.True(t, fixedLine.Diff.Equal(dec(0.50)))
	assert.Equal(t, domain.PriceClassHigher, fixedLine.Classification)
	assert.Equal(t, "Listino GDO", fixedLine.PriceSource)

	// Line 12: resolved through the base list at 1.30, sold at 1.50 less 10%
	require.Len(t, report.BasePriceLines, 1)
	baseLine := report.BasePriceLines[0]
	assert.Equal(t, int64(12), baseLine.LineID)
	assert.Equal(t, domain.TierBaseList, baseLine.Tier)
	assert.True(t, baseLine.EffectivePrice.Equal(dec(1.35)))
	assert.True(t, baseLine.Diff.Equal(dec(0.05)))
	assert.Equal(t, domain.PriceClassHigher, baseLine.Classification)
	assert.Equal(t, "Listino Base", baseLine.PriceSource)

	assert.Equal(t, 2, report.Stats.TotalLines)
	assert.Equal(t, 1, report.Stats.Fixed.Count)
	assert.Equal(t, 1, report.Stats.Base.Count)
	assert.GreaterOrEqual(t, report.PerformanceMs, int64(0))
}

func TestMonthlyReport_EmptyMonth(t *testing.T) {
	reader := newFakeReader()
	reader.queue(modelOrder, als{})
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	report, err := svc.MonthlyReport(context.Background(), domain.AnalysisMonth{Year: 2025, Month: time.March}, domain.RunTriggerAPI)
	require.NoError(t, err)

	assert.NotNil(t, report.FixedPriceLines)
	assert.Empty(t, report.FixedPriceLines)
	assert.NotNil(t, report.BasePriceLines)
	assert.Empty(t, report.BasePriceLines)
	assert.Equal(t, 0, report.Stats.TotalLines)
	assert.True(t, report.Stats.TotalProfit.IsZero())
}

func TestMonthlyReport_UpstreamFailure(t *testing.T) {
	reader := newFakeReader()
	reader.err = fmt.Errorf("connection refused")
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	_, err := svc.MonthlyReport(context.Background(), domain.AnalysisMonth{Year: 2025, Month: time.March}, domain.RunTriggerAPI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price control 2025-03")
}

func TestListRuns_NilRepo(t *testing.T) {
	svc := NewPriceControlService(newFakeReader(), 1, nil, zap.NewNop())

	runs, err := svc.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
