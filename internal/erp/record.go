package erp

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is one row of a search-and-read result. The upstream serialises
// absent values as false, numbers as float64 and relations as
// [id, displayName] pairs; the accessors below normalise those shapes.
type Record map[string]any

// Int returns a numeric field as int64, 0 when absent.
func (r Record) Int(field string) int64 {
	switch v := r[field].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	}
	return 0
}

// Str returns a string field, "" when absent.
func (r Record) Str(field string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return ""
}

// Bool returns a boolean field.
func (r Record) Bool(field string) bool {
	b, _ := r[field].(bool)
	return b
}

// Decimal returns a numeric field as a decimal, zero when absent.
func (r Record) Decimal(field string) decimal.Decimal {
	if v, ok := r[field].(float64); ok {
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

// Many2One unpacks a relational field into its id and display name.
// ok is false when the relation is unset.
func (r Record) Many2One(field string) (id int64, name string, ok bool) {
	pair, isPair := r[field].([]any)
	if !isPair || len(pair) < 2 {
		return 0, "", false
	}
	idFloat, isFloat := pair[0].(float64)
	if !isFloat {
		return 0, "", false
	}
	name, _ = pair[1].(string)
	return int64(idFloat), name, true
}

// Time parses a datetime field in the upstream's wire format,
// zero time when absent or malformed.
func (r Record) Time(field string) time.Time {
	s := r.Str(field)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		// Date-only fields use the short format
		t, err = time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}
		}
	}
	return t
}
