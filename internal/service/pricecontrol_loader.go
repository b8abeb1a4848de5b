package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/demarchi-food/pricecontrol-api/internal/erp"
	"go.uber.org/zap"
)

// Upstream record kinds and enum codes. Relational fields arrive as
// [id, displayName] pairs and are unpacked by erp.Record.
const (
	modelOrder     = "sale.order"
	modelOrderLine = "sale.order.line"
	modelProduct   = "product.product"
	modelRuleList  = "product.pricelist"
	modelRuleEntry = "product.pricelist.item"

	appliedOnVariant  = "0_product_variant"
	appliedOnTemplate = "1_product"
	appliedOnGlobal   = "3_global"

	computePriceFixed = "fixed"
	baseRuleListCode  = "pricelist"
)

// SearchReader is the slice of the ERP client the loader depends on.
type SearchReader interface {
	SearchRead(ctx context.Context, model string, filter erp.Filter, fields []string, limit int) ([]erp.Record, error)
}

// Snapshot holds the bulk results of one analysis run. Everything the
// resolution loop needs is fetched here; no network access happens later.
type Snapshot struct {
	Orders        []domain.Order
	Lines         []domain.OrderLine
	Products      []domain.Product
	RuleLists     []domain.RuleList
	Entries       []domain.RuleListEntry
	GlobalEntries []domain.RuleListEntry
	BaseEntries   []domain.RuleListEntry
	BaseRuleLists []domain.RuleList
}

// loadSnapshot performs the fixed sequence of bulk fetches for one month.
// The fetches are sequential because each one depends on ids discovered by
// the previous: orders → lines → products/rule lists → entries → global
// entries → base-list entries → base-list names. Any failure aborts the run.
func (s *PriceControlService) loadSnapshot(ctx context.Context, month domain.AnalysisMonth) (*Snapshot, error) {
	snap := &Snapshot{}

	// Confirmed orders committed in the month and not yet fully invoiced
	orderRecs, err := s.erp.SearchRead(ctx, modelOrder, erp.Filter{
		erp.Cond("state", "=", "sale"),
		erp.Cond("commitment_date", ">=", month.Start().Format("2006-01-02 15:04:05")),
		erp.Cond("commitment_date", "<=", month.End().Format("2006-01-02 15:04:05")),
		erp.Cond("invoice_status", "!=", "invoiced"),
		erp.Cond("company_id", "=", s.companyID),
	}, []string{"partner_id", "pricelist_id", "commitment_date", "state", "invoice_status"}, 0)
	if err != nil {
		return nil, fmt.Errorf("loading orders: %w", err)
	}

	ruleListIDs := map[int64]struct{}{}
	for _, rec := range orderRecs {
		order := domain.Order{
			ID:             rec.Int("id"),
			CommitmentDate: rec.Time("commitment_date"),
			State:          rec.Str("state"),
			InvoiceStatus:  rec.Str("invoice_status"),
		}
		order.CustomerID, order.CustomerName, _ = rec.Many2One("partner_id")
		if id, _, ok := rec.Many2One("pricelist_id"); ok {
			order.RuleListID = id
			ruleListIDs[id] = struct{}{}
		}
		snap.Orders = append(snap.Orders, order)
	}
	if len(snap.Orders) == 0 {
		return snap, nil
	}

	orderIDs := make([]int64, 0, len(snap.Orders))
	for _, o := range snap.Orders {
		orderIDs = append(orderIDs, o.ID)
	}

	// All lines of those orders
	lineRecs, err := s.erp.SearchRead(ctx, modelOrderLine, erp.Filter{
		erp.Cond("order_id", "in", orderIDs),
	}, []string{"order_id", "product_id", "name", "product_uom_qty", "price_unit", "discount"}, 0)
	if err != nil {
		return nil, fmt.Errorf("loading order lines: %w", err)
	}

	productIDs := map[int64]struct{}{}
	for _, rec := range lineRecs {
		line := domain.OrderLine{
			ID:              rec.Int("id"),
			Description:     rec.Str("name"),
			Quantity:        rec.Decimal("product_uom_qty"),
			UnitPrice:       rec.Decimal("price_unit"),
			DiscountPercent: rec.Decimal("discount"),
		}
		line.OrderID, _, _ = rec.Many2One("order_id")
		if id, _, ok := rec.Many2One("product_id"); ok {
			line.ProductID = id
			productIDs[id] = struct{}{}
		}
		snap.Lines = append(snap.Lines, line)
	}

	// Products referenced by the lines
	productRecs, err := s.erp.SearchRead(ctx, modelProduct, erp.Filter{
		erp.Cond("id", "in", sortedKeys(productIDs)),
	}, []string{"product_tmpl_id", "standard_price", "list_price", "display_name", "default_code"}, 0)
	if err != nil {
		return nil, fmt.Errorf("loading products: %w", err)
	}

	templateIDs := map[int64]struct{}{}
	for _, rec := range productRecs {
		product := domain.Product{
			ID:          rec.Int("id"),
			CostPrice:   rec.Decimal("standard_price"),
			ListPrice:   rec.Decimal("list_price"),
			DisplayName: rec.Str("display_name"),
			Code:        rec.Str("default_code"),
		}
		if id, _, ok := rec.Many2One("product_tmpl_id"); ok {
			product.TemplateID = id
			templateIDs[id] = struct{}{}
		}
		snap.Products = append(snap.Products, product)
	}

	// Rule lists assigned to the orders' customers
	listIDs := sortedKeys(ruleListIDs)
	snap.RuleLists, err = s.loadRuleLists(ctx, listIDs)
	if err != nil {
		return nil, err
	}

	variantIDs := sortedKeys(productIDs)
	tmplIDs := sortedKeys(templateIDs)

	// Variant- and template-scoped entries of those rule lists, restricted to
	// the products actually sold in the month
	entryRecs, err := s.erp.SearchRead(ctx, modelRuleEntry, erp.Filter{
		erp.Cond("pricelist_id", "in", listIDs),
		erp.Cond("applied_on", "in", []string{appliedOnVariant, appliedOnTemplate}),
		erp.Or,
		erp.Cond("product_id", "in", variantIDs),
		erp.Cond("product_tmpl_id", "in", tmplIDs),
	}, ruleEntryFields, 0)
	if err != nil {
		return nil, fmt.Errorf("loading rule-list entries: %w", err)
	}
	snap.Entries = decodeRuleEntries(entryRecs)

	// Global entries of those rule lists
	globalRecs, err := s.erp.SearchRead(ctx, modelRuleEntry, erp.Filter{
		erp.Cond("pricelist_id", "in", listIDs),
		erp.Cond("applied_on", "=", appliedOnGlobal),
	}, ruleEntryFields, 0)
	if err != nil {
		return nil, fmt.Errorf("loading global rules: %w", err)
	}
	snap.GlobalEntries = decodeRuleEntries(globalRecs)

	// Base rule lists referenced by global formula entries, one hop deep
	baseIDSet := map[int64]struct{}{}
	for _, entry := range snap.GlobalEntries {
		if entry.BaseIsRuleList && entry.BaseRuleListID != 0 {
			baseIDSet[entry.BaseRuleListID] = struct{}{}
		}
	}
	if len(baseIDSet) > 0 {
		baseIDs := sortedKeys(baseIDSet)

		baseRecs, err := s.erp.SearchRead(ctx, modelRuleEntry, erp.Filter{
			erp.Cond("pricelist_id", "in", baseIDs),
			erp.Cond("applied_on", "in", []string{appliedOnVariant, appliedOnTemplate}),
			erp.Or,
			erp.Cond("product_id", "in", variantIDs),
			erp.Cond("product_tmpl_id", "in", tmplIDs),
		}, ruleEntryFields, 0)
		if err != nil {
			return nil, fmt.Errorf("loading base-list entries: %w", err)
		}
		snap.BaseEntries = decodeRuleEntries(baseRecs)

		snap.BaseRuleLists, err = s.loadRuleLists(ctx, baseIDs)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Debug("bulk snapshot loaded",
		zap.String("month", month.String()),
		zap.Int("orders", len(snap.Orders)),
		zap.Int("lines", len(snap.Lines)),
		zap.Int("products", len(snap.Products)),
		zap.Int("rule_entries", len(snap.Entries)),
		zap.Int("global_entries", len(snap.GlobalEntries)),
		zap.Int("base_entries", len(snap.BaseEntries)),
	)

	return snap, nil
}

func (s *PriceControlService) loadRuleLists(ctx context.Context, ids []int64) ([]domain.RuleList, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	recs, err := s.erp.SearchRead(ctx, modelRuleList, erp.Filter{
		erp.Cond("id", "in", ids),
	}, []string{"name"}, 0)
	if err != nil {
		return nil, fmt.Errorf("loading rule lists: %w", err)
	}
	lists := make([]domain.RuleList, 0, len(recs))
	for _, rec := range recs {
		lists = append(lists, domain.RuleList{ID: rec.Int("id"), Name: rec.Str("name")})
	}
	return lists, nil
}

var ruleEntryFields = []string{
	"pricelist_id", "applied_on", "compute_price", "fixed_price",
	"base", "base_pricelist_id", "product_id", "product_tmpl_id",
}

func decodeRuleEntries(recs []erp.Record) []domain.RuleListEntry {
	entries := make([]domain.RuleListEntry, 0, len(recs))
	for _, rec := range recs {
		entry := domain.RuleListEntry{
			ID:         rec.Int("id"),
			FixedPrice: rec.Decimal("fixed_price"),
		}
		entry.RuleListID, _, _ = rec.Many2One("pricelist_id")
		entry.VariantID, _, _ = rec.Many2One("product_id")
		entry.TemplateID, _, _ = rec.Many2One("product_tmpl_id")

		switch rec.Str("applied_on") {
		case appliedOnVariant:
			entry.Scope = domain.RuleScopeVariant
		case appliedOnTemplate:
			entry.Scope = domain.RuleScopeTemplate
		case appliedOnGlobal:
			entry.Scope = domain.RuleScopeGlobal
		}

		if rec.Str("compute_price") == computePriceFixed {
			entry.ComputeMode = domain.ComputeModeFixed
		} else {
			entry.ComputeMode = domain.ComputeModeFormula
		}

		if rec.Str("base") == baseRuleListCode {
			entry.BaseIsRuleList = true
			entry.BaseRuleListID, _, _ = rec.Many2One("base_pricelist_id")
		}

		entries = append(entries, entry)
	}
	return entries
}

func sortedKeys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
