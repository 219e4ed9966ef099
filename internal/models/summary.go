package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyPlaces is the precision of every stored cost and percentage column.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RowScope narrows a query to a collection of rows. Scopes are applied to a
// fresh *gorm.DB on every use so a single collection can be summed twice.
type RowScope func(db *gorm.DB) *gorm.DB

// CostAggregate is implemented by entities whose cost is the sum of the
// cost and cost_estimate columns over one or more row collections.
type CostAggregate interface {
	CostRows() []RowScope
}

// Round rounds half to even at the precision of the money columns.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

type sumRow struct {
	Total decimal.NullDecimal
}

// SumField returns SUM(field) over the rows selected by scope, or zero when
// the collection is empty.
func SumField(db *gorm.DB, scope RowScope, field string) (decimal.Decimal, error) {
	var out sumRow
	if err := db.Scopes(scope).Select("SUM(" + field + ") AS total").Scan(&out).Error; err != nil {
		return decimal.Zero, err
	}
	if !out.Total.Valid {
		return decimal.Zero, nil
	}
	return Round(out.Total.Decimal), nil
}

// SumFields adds SUM(field) across several collections.
func SumFields(db *gorm.DB, scopes []RowScope, field string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, scope := range scopes {
		part, err := SumField(db, scope, field)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(part)
	}
	return total, nil
}
