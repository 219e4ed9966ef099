// Package validation collects field-level violations before a write is accepted.
package validation

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// String renders violations as "field: reason" pairs sorted by field.
func (v Violations) String() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, ", ")
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func MaxLength(field, value string, maxLen int, v Violations) {
	if utf8.RuneCountInString(value) > maxLen {
		v[field] = "too_long"
	}
}

func NonNegative(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v[field] = "must_not_be_negative"
	}
}

func RangeDecimal(field string, val, minVal, maxVal decimal.Decimal, v Violations) {
	if val.LessThan(minVal) || val.GreaterThan(maxVal) {
		v[field] = "out_of_range"
	}
}

func PositiveID(field string, id uint, v Violations) {
	if id == 0 {
		v[field] = "required"
	}
}
