package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RuleScope is the scope of a rule-list entry: a single product variant,
// a whole product template, or the entire rule list.
type RuleScope string

const (
	RuleScopeVariant  RuleScope = "variant"
	RuleScopeTemplate RuleScope = "template"
	RuleScopeGlobal   RuleScope = "global"
)

// ComputeMode is how a rule-list entry computes its price.
type ComputeMode string

const (
	ComputeModeFixed   ComputeMode = "fixed"
	ComputeModeFormula ComputeMode = "formula"
)

// PriceTier classifies the provenance of a resolved reference price.
type PriceTier string

const (
	// TierFixed: a fixed variant- or template-level override on the
	// customer's own rule list.
	TierFixed PriceTier = "FIXED"
	// TierBaseList: resolved through the base rule list referenced by the
	// global formula entry of the customer's rule list.
	TierBaseList PriceTier = "BASE_LIST"
	// TierProductFallback: no applicable rule anywhere, plain catalog price.
	TierProductFallback PriceTier = "PRODUCT_FALLBACK"
)

// PriceClass is the tri-state comparison of invoiced vs reference price.
type PriceClass string

const (
	PriceClassHigher PriceClass = "higher"
	PriceClassLower  PriceClass = "lower"
	PriceClassEqual  PriceClass = "equal"
)

// CatalogPriceLabel is the provenance label shown when a price falls back to
// the product's own catalog (list) price.
const CatalogPriceLabel = "Prezzo Listino"

// Order is a read-only snapshot of a confirmed sale order.
type Order struct {
	ID             int64
	CustomerID     int64
	CustomerName   string
	RuleListID     int64
	CommitmentDate time.Time
	State          string
	InvoiceStatus  string
}

// OrderLine is a read-only snapshot of one sold line.
type OrderLine struct {
	ID              int64
	OrderID         int64
	ProductID       int64
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
}

// Product is a read-only snapshot of a product variant. Many variants may
// share one template.
type Product struct {
	ID          int64
	TemplateID  int64
	CostPrice   decimal.Decimal
	ListPrice   decimal.Decimal
	DisplayName string
	Code        string
}

// RuleList is a named collection of pricing rules assigned to customers.
type RuleList struct {
	ID   int64
	Name string
}

// RuleListEntry is one pricing rule within a rule list.
//
// VariantID is set only for variant-scoped entries and TemplateID only for
// template-scoped ones. A global formula entry may point at another rule
// list (its "base" list) via BaseRuleListID.
type RuleListEntry struct {
	ID             int64
	RuleListID     int64
	Scope          RuleScope
	ComputeMode    ComputeMode
	FixedPrice     decimal.Decimal
	VariantID      int64
	TemplateID     int64
	BaseIsRuleList bool
	BaseRuleListID int64
}

// ResolvedPrice is the contractually correct reference price for one
// (rule list, variant, template) triple, with its provenance.
type ResolvedPrice struct {
	Price      decimal.Decimal
	Tier       PriceTier
	Provenance string
}

// RunTrigger marks what initiated an analysis run.
type RunTrigger string

const (
	RunTriggerAPI       RunTrigger = "api"
	RunTriggerScheduled RunTrigger = "scheduled"
)

// AnalysisRun is the persisted audit record of one price-control run.
// Only run metadata is stored; computed lines and stats never are.
type AnalysisRun struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Month        string     `gorm:"type:varchar(7);not null;index" json:"month"`
	TriggeredBy  RunTrigger `gorm:"type:varchar(20);not null;column:triggered_by" json:"triggeredBy"`
	OrderCount   int        `gorm:"not null;column:order_count" json:"orderCount"`
	LineCount    int        `gorm:"not null;column:line_count" json:"lineCount"`
	SkippedLines int        `gorm:"not null;column:skipped_lines" json:"skippedLines"`
	DurationMs   int64      `gorm:"not null;column:duration_ms" json:"durationMs"`
	Succeeded    bool       `gorm:"not null" json:"succeeded"`
	Error        string     `gorm:"type:text" json:"error,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// BeforeCreate assigns the run ID so the model works on both postgres and
// the sqlite test database.
func (r *AnalysisRun) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
