package erp

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecord_Int(t *testing.T) {
	rec := Record{"id": float64(42), "other": "text"}

	assert.Equal(t, int64(42), rec.Int("id"))
	assert.Equal(t, int64(0), rec.Int("other"))
	assert.Equal(t, int64(0), rec.Int("missing"))
}

func TestRecord_Str(t *testing.T) {
	// The upstream serialises unset values as false
	rec := Record{"name": "Pasta di Gragnano", "default_code": false}

	assert.Equal(t, "Pasta di Gragnano", rec.Str("name"))
	assert.Equal(t, "", rec.Str("default_code"))
	assert.Equal(t, "", rec.Str("missing"))
}

func TestRecord_Decimal(t *testing.T) {
	rec := Record{"price_unit": 12.5, "discount": false}

	assert.True(t, rec.Decimal("price_unit").Equal(decimal.NewFromFloat(12.5)))
	assert.True(t, rec.Decimal("discount").Equal(decimal.Zero))
	assert.True(t, rec.Decimal("missing").Equal(decimal.Zero))
}

func TestRecord_Many2One(t *testing.T) {
	rec := Record{
		"partner_id":   []any{float64(7), "Supermercati Rossi"},
		"pricelist_id": false,
	}

	id, name, ok := rec.Many2One("partner_id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
	assert.Equal(t, "Supermercati Rossi", name)

	_, _, ok = rec.Many2One("pricelist_id")
	assert.False(t, ok)

	_, _, ok = rec.Many2One("missing")
	assert.False(t, ok)
}

func TestRecord_Time(t *testing.T) {
	rec := Record{
		"commitment_date": "2025-03-12 08:30:00",
		"date_only":       "2025-03-12",
		"unset":           false,
		"garbage":         "yesterday",
	}

	assert.Equal(t, time.Date(2025, time.March, 12, 8, 30, 0, 0, time.UTC), rec.Time("commitment_date"))
	assert.Equal(t, time.Date(2025, time.March, 12, 0, 0, 0, 0, time.UTC), rec.Time("date_only"))
	assert.True(t, rec.Time("unset").IsZero())
	assert.True(t, rec.Time("garbage").IsZero())
}
