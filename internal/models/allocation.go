package models

import "github.com/shopspring/decimal"

// AllocationStatus classifies how much of a bill has been split into cost
// items. Over-allocation is allowed and only flagged.
type AllocationStatus string

const (
	AllocationNone    AllocationStatus = "None"
	AllocationPartial AllocationStatus = "Partially"
	AllocationFull    AllocationStatus = "100%"
	AllocationOver    AllocationStatus = "Over allocated"
)

// ClassifyAllocation maps a bill's allocated percentage to its status.
func ClassifyAllocation(allocated decimal.Decimal) AllocationStatus {
	switch {
	case allocated.Sign() <= 0:
		return AllocationNone
	case allocated.LessThan(hundred):
		return AllocationPartial
	case allocated.Equal(hundred):
		return AllocationFull
	default:
		return AllocationOver
	}
}

// AllocationFilter is the list-filter key used by the reporting UI.
type AllocationFilter string

const (
	FilterUnallocated AllocationFilter = "0"
	FilterPartial     AllocationFilter = "lt_100"
	FilterFull        AllocationFilter = "100"
	FilterOver        AllocationFilter = "gt_100"
)

// Status returns the allocation status selected by the filter key.
func (f AllocationFilter) Status() (AllocationStatus, bool) {
	switch f {
	case FilterUnallocated:
		return AllocationNone, true
	case FilterPartial:
		return AllocationPartial, true
	case FilterFull:
		return AllocationFull, true
	case FilterOver:
		return AllocationOver, true
	}
	return "", false
}
