// Package query translates a coarse time-window selection into
// due-date bounds for the store.
package query

import (
	"fmt"

	"taskmaster/internal/models"
)

// TimeFilter restricts which tasks are loaded by due date
type TimeFilter string

const (
	FilterDay   TimeFilter = "day"
	FilterWeek  TimeFilter = "week"
	FilterMonth TimeFilter = "month"
	FilterAll   TimeFilter = "all"
)

// ParseTimeFilter validates a filter name from config or query input
func ParseTimeFilter(s string) (TimeFilter, error) {
	switch TimeFilter(s) {
	case FilterDay, FilterWeek, FilterMonth, FilterAll:
		return TimeFilter(s), nil
	}
	return "", fmt.Errorf("unknown time filter %q", s)
}

// Bounds is an inclusive-lower, exclusive-upper window on due_date.
// A nil bound is unbounded on that side. Tasks without a due date
// never satisfy a non-nil bound.
type Bounds struct {
	Lower *models.Date
	Upper *models.Date
}

// IsUnbounded reports whether the bounds match every task
func (b Bounds) IsUnbounded() bool {
	return b.Lower == nil && b.Upper == nil
}

// WindowBounds computes the due-date window for a filter relative to
// today. FilterAll returns unbounded bounds.
func WindowBounds(f TimeFilter, today models.Date) Bounds {
	var upper models.Date
	switch f {
	case FilterDay:
		upper = today.AddDays(1)
	case FilterWeek:
		upper = today.AddDays(7)
	case FilterMonth:
		upper = today.AddMonths(1)
	default:
		return Bounds{}
	}
	lower := today
	return Bounds{Lower: &lower, Upper: &upper}
}
