// Package dateparse recognizes English date phrases ("tomorrow", "6/15",
// "June 5th", "next friday", "in 2 months") and resolves them into calendar
// dates relative to a reference instant.
package dateparse

import (
	"fmt"
	"time"
)

// Expr is an unresolved date expression. The concrete types below are the
// only implementations.
type Expr interface {
	isDateExpr()
	String() string
}

// InNDays is a day count relative to the reference date; yesterday is -1.
type InNDays struct {
	Offset int
}

// DayInNWeeks is a weekday in Weeks weeks from the reference week
// (0 this week, 1 next week, -1 last week).
type DayInNWeeks struct {
	Weeks int
	Day   time.Weekday
}

// InNMonths is a month count relative to the reference date, keeping the
// day of month.
type InNMonths struct {
	Offset int
}

// InMonth is a month and day in the reference year.
type InMonth struct {
	Month time.Month
	Day   int
}

// InYear is a fully specified date. Year is kept as written, so "19" in
// "12/15/19" stays 19 until resolution.
type InYear struct {
	Month time.Month
	Day   int
	Year  int
}

func (InNDays) isDateExpr()     {}
func (DayInNWeeks) isDateExpr() {}
func (InNMonths) isDateExpr()   {}
func (InMonth) isDateExpr()     {}
func (InYear) isDateExpr()      {}

func (e InNDays) String() string     { return fmt.Sprintf("InNDays(%d)", e.Offset) }
func (e DayInNWeeks) String() string { return fmt.Sprintf("DayInNWeeks(%d, %s)", e.Weeks, e.Day) }
func (e InNMonths) String() string   { return fmt.Sprintf("InNMonths(%d)", e.Offset) }
func (e InMonth) String() string     { return fmt.Sprintf("InMonth(%s, %d)", e.Month, e.Day) }
func (e InYear) String() string {
	return fmt.Sprintf("InYear(%s, %d, %d)", e.Month, e.Day, e.Year)
}
