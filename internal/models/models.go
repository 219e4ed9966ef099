// Package models holds the cost allocation entities and the write hooks
// that keep their derived values consistent.
package models

// All lists every model in dependency order, for AutoMigrate and fixtures.
func All() []any {
	return []any{
		&FinancialYear{},
		&Contract{},
		&ServicePool{},
		&Division{},
		&EndUserService{},
		&Platform{},
		&Bill{},
		&EndUserCost{},
		&ITPlatformCost{},
		&ITSystem{},
		&SystemDependency{},
	}
}
