package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/demarchi-food/pricecontrol-api/internal/domain"
	"github.com/demarchi-food/pricecontrol-api/internal/erp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeReader answers SearchRead from per-model queues, recording every call.
type fakeCall struct {
	model  string
	filter erp.Filter
	fields []string
}

// als is one page of fake upstream rows.
type als = []erp.Record

type fakeReader struct {
	responses map[string][]als
	calls     []fakeCall
	err       error
}

func newFakeReader() *fakeReader {
	return &fakeReader{responses: map[string][]als{}}
}

func (f *fakeReader) queue(model string, recs als) {
	f.responses[model] = append(f.responses[model], recs)
}

func (f *fakeReader) SearchRead(_ context.Context, model string, filter erp.Filter, fields []string, _ int) ([]erp.Record, error) {
	f.calls = append(f.calls, fakeCall{model: model, filter: filter, fields: fields})
	if f.err != nil {
		return nil, f.err
	}
	queue := f.responses[model]
	if len(queue) == 0 {
		return nil, fmt.Errorf("unexpected query for %s", model)
	}
	f.responses[model] = queue[1:]
	return queue[0], nil
}

func many2one(id int64, name string) []any { return []any{float64(id), name} }

// monthSnapshot queues a small but complete month: one order with two lines,
// one of them covered by a fixed variant rule, the other resolved through the
// global formula's base list.
func queueMonth(f *fakeReader) {
	f.queue(modelOrder, als{{
		"id":              float64(1),
		"partner_id":      many2one(7, "Supermercati Rossi"),
		"pricelist_id":    many2one(10, "Listino GDO"),
		"commitment_date": "2025-03-12 08:30:00",
		"state":           "sale",
		"invoice_status":  "to invoice",
	}})
	f.queue(modelOrderLine, als{
		{
			"id":              float64(11),
			"order_id":        many2one(1, "S00001"),
			"product_id":      many2one(100, "Olio EVO 1L"),
			"name":            "Olio EVO 1L",
			"product_uom_qty": float64(10),
			"price_unit":      float64(8.00),
			"discount":        float64(0),
		},
		{
			"id":              float64(12),
			"order_id":        many2one(1, "S00001"),
			"product_id":      many2one(200, "Passata 700g"),
			"name":            "Passata 700g",
			"product_uom_qty": float64(24),
			"price_unit":      float64(1.50),
			"discount":        float64(10),
		},
	})
	f.queue(modelProduct, als{
		{
			"id":             float64(100),
			"product_tmpl_id": many2one(1000, "Olio EVO"),
			"standard_price": float64(5.00),
			"list_price":     float64(9.00),
			"display_name":   "Olio EVO 1L",
			"default_code":   "OLI001",
		},
		{
			"id":             float64(200),
			"product_tmpl_id": many2one(2000, "Passata"),
			"standard_price": float64(0.80),
			"list_price":     float64(1.60),
			"display_name":   "Passata 700g",
			"default_code":   "PAS001",
		},
	})
	// Customer rule lists, then base rule lists
	f.queue(modelRuleList, als{{"id": float64(10), "name": "Listino GDO"}})
	// Scoped entries of the customer list
	f.queue(modelRuleEntry, als{{
		"id":            float64(501),
		"pricelist_id":  many2one(10, "Listino GDO"),
		"applied_on":    appliedOnVariant,
		"compute_price": computePriceFixed,
		"fixed_price":   float64(7.50),
		"product_id":    many2one(100, "Olio EVO 1L"),
		"base":          "list_price",
	}})
	// Global entry pointing at the base list
	f.queue(modelRuleEntry, als{{
		"id":                float64(502),
		"pricelist_id":      many2one(10, "Listino GDO"),
		"applied_on":        appliedOnGlobal,
		"compute_price":     "formula",
		"base":              baseRuleListCode,
		"base_pricelist_id": many2one(20, "Listino Base"),
	}})
	// Base list entries
	f.queue(modelRuleEntry, als{{
		"id":            float64(503),
		"pricelist_id":  many2one(20, "Listino Base"),
		"applied_on":    appliedOnVariant,
		"compute_price": computePriceFixed,
		"fixed_price":   float64(1.30),
		"product_id":    many2one(200, "Passata 700g"),
		"base":          "list_price",
	}})
	f.queue(modelRuleList, als{{"id": float64(20), "name": "Listino Base"}})
}

func TestLoadSnapshot_FullMonth(t *testing.T) {
	reader := newFakeReader()
	queueMonth(reader)
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	snap, err := svc.loadSnapshot(context.Background(), domain.AnalysisMonth{Year: 2025, Month: 3})
	require.NoError(t, err)

	require.Len(t, snap.Orders, 1)
	assert.Equal(t, int64(7), snap.Orders[0].CustomerID)
	assert.Equal(t, "Supermercati Rossi", snap.Orders[0].CustomerName)
	assert.Equal(t, int64(10), snap.Orders[0].RuleListID)

	require.Len(t, snap.Lines, 2)
	assert.Equal(t, int64(1), snap.Lines[0].OrderID)
	assert.True(t, snap.Lines[1].DiscountPercent.Equal(dec(10)))

	require.Len(t, snap.Products, 2)
	assert.Equal(t, int64(1000), snap.Products[0].TemplateID)
	assert.Equal(t, "OLI001", snap.Products[0].Code)

	require.Len(t, snap.Entries, 1)
	assert.Equal(t, domain.RuleScopeVariant, snap.Entries[0].Scope)
	assert.Equal(t, domain.ComputeModeFixed, snap.Entries[0].ComputeMode)

	require.Len(t, snap.GlobalEntries, 1)
	assert.True(t, snap.GlobalEntries[0].BaseIsRuleList)
	assert.Equal(t, int64(20), snap.GlobalEntries[0].BaseRuleListID)

	require.Len(t, snap.BaseEntries, 1)
	require.Len(t, snap.BaseRuleLists, 1)
	assert.Equal(t, "Listino Base", snap.BaseRuleLists[0].Name)
}

func TestLoadSnapshot_OrderFilter(t *testing.T) {
	reader := newFakeReader()
	reader.queue(modelOrder, als{})
	svc := NewPriceControlService(reader, 5, nil, zap.NewNop())

	_, err := svc.loadSnapshot(context.Background(), domain.AnalysisMonth{Year: 2025, Month: 3})
	require.NoError(t, err)

	require.Len(t, reader.calls, 1)
	filter := reader.calls[0].filter
	assert.Contains(t, filter, erp.Cond("state", "=", "sale"))
	assert.Contains(t, filter, erp.Cond("invoice_status", "!=", "invoiced"))
	assert.Contains(t, filter, erp.Cond("company_id", "=", int64(5)))
	assert.Contains(t, filter, erp.Cond("commitment_date", ">=", "2025-03-01 00:00:00"))
	assert.Contains(t, filter, erp.Cond("commitment_date", "<=", "2025-03-31 23:59:59"))
}

func TestLoadSnapshot_EmptyMonthStopsEarly(t *testing.T) {
	reader := newFakeReader()
	reader.queue(modelOrder, als{})
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	snap, err := svc.loadSnapshot(context.Background(), domain.AnalysisMonth{Year: 2025, Month: 3})
	require.NoError(t, err)

	assert.Empty(t, snap.Orders)
	// No follow-up queries for an empty month
	assert.Len(t, reader.calls, 1)
}

func TestLoadSnapshot_NoBaseListsSkipsBaseFetches(t *testing.T) {
	reader := newFakeReader()
	queueMonth(reader)
	// Replace the global entry queue with one that has no base list
	reader.responses[modelRuleEntry][1] = als{{
		"id":            float64(502),
		"pricelist_id":  many2one(10, "Listino GDO"),
		"applied_on":    appliedOnGlobal,
		"compute_price": "formula",
		"base":          "list_price",
	}}
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	snap, err := svc.loadSnapshot(context.Background(), domain.AnalysisMonth{Year: 2025, Month: 3})
	require.NoError(t, err)

	assert.Empty(t, snap.BaseEntries)
	assert.Empty(t, snap.BaseRuleLists)
	// orders, lines, products, rule lists, scoped entries, global entries
	assert.Len(t, reader.calls, 6)
}

func TestLoadSnapshot_UpstreamFailure(t *testing.T) {
	reader := newFakeReader()
	reader.err = fmt.Errorf("connection reset")
	svc := NewPriceControlService(reader, 1, nil, zap.NewNop())

	_, err := svc.loadSnapshot(context.Background(), domain.AnalysisMonth{Year: 2025, Month: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading orders")
}
