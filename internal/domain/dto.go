package domain

import "github.com/shopspring/decimal"

// AnalysisLine is one evaluated order line of the price-control report.
// Diff is effectivePrice minus referencePrice; a positive diff means the
// customer was invoiced above the contractual reference.
type AnalysisLine struct {
	LineID          int64           `json:"lineId"`
	OrderID         int64           `json:"orderId"`
	CustomerName    string          `json:"customerName"`
	ProductID       int64           `json:"productId"`
	ProductCode     string          `json:"productCode,omitempty"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	SoldPrice       decimal.Decimal `json:"soldPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	EffectivePrice  decimal.Decimal `json:"effectivePrice"`
	ReferencePrice  decimal.Decimal `json:"referencePrice"`
	CostPrice       decimal.Decimal `json:"costPrice"`
	Diff            decimal.Decimal `json:"diff"`
	DiffPercent     decimal.Decimal `json:"diffPercent"`
	Profit          decimal.Decimal `json:"profit"`
	MarginPercent   decimal.Decimal `json:"marginPercent"`
	Tier            PriceTier       `json:"tier"`
	Classification  PriceClass      `json:"classification"`
	PriceSource     string          `json:"priceSource"`
}

// TierStats aggregates one tier partition of the report.
type TierStats struct {
	Count     int             `json:"count"`
	Higher    int             `json:"higher"`
	Lower     int             `json:"lower"`
	DiffTotal decimal.Decimal `json:"diffTotal"`
}

// AnalysisStats summarises a whole price-control run.
type AnalysisStats struct {
	Fixed         TierStats       `json:"fixed"`
	Base          TierStats       `json:"base"`
	TotalProfit   decimal.Decimal `json:"totalProfit"`
	AverageMargin decimal.Decimal `json:"averageMargin"`
	TotalLines    int             `json:"totalLines"`
}

// NewAnalysisStats returns a zero-valued stats object with decimal fields
// initialised, so the empty-month payload serialises as "0" rather than null.
func NewAnalysisStats() AnalysisStats {
	return AnalysisStats{
		Fixed:         TierStats{DiffTotal: decimal.Zero},
		Base:          TierStats{DiffTotal: decimal.Zero},
		TotalProfit:   decimal.Zero,
		AverageMargin: decimal.Zero,
	}
}

// PriceControlReport is the terminal payload of one analysis run.
// Both line collections are sorted by |diff| descending so the largest
// discrepancies surface first.
type PriceControlReport struct {
	Month           string         `json:"month"`
	Stats           AnalysisStats  `json:"stats"`
	FixedPriceLines []AnalysisLine `json:"fixedPriceLines"`
	BasePriceLines  []AnalysisLine `json:"basePriceLines"`
	PerformanceMs   int64          `json:"performanceMs"`
}
