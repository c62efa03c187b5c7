// Package timeparse recognizes times of day in English text ("10am",
// "2:30p", "noon", "in 2 hours") and resolves them against a reference
// clock time.
package timeparse

import (
	"fmt"
	"time"
)

const minutesPerDay = 24 * 60

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Of returns the time of day of t in t's location.
func Of(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// On places the time of day on date's calendar day, in date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Before reports whether t is earlier in the day than u.
func (t TimeOfDay) Before(u TimeOfDay) bool {
	return t.minutes() < u.minutes()
}

func (t TimeOfDay) minutes() int {
	return t.Hour*60 + t.Minute
}

func fromMinutes(n int) TimeOfDay {
	n %= minutesPerDay
	if n < 0 {
		n += minutesPerDay
	}
	return TimeOfDay{Hour: n / 60, Minute: n % 60}
}

// Expr is an unresolved time expression: Absolute, InNHours or InNMinutes.
type Expr interface {
	isTimeExpr()
	String() string
}

// Absolute is a clock time; it resolves to itself.
type Absolute struct {
	Hour   int
	Minute int
}

type InNHours struct {
	Hours int
}

type InNMinutes struct {
	Minutes int
}

func (Absolute) isTimeExpr()   {}
func (InNHours) isTimeExpr()   {}
func (InNMinutes) isTimeExpr() {}

func (e Absolute) String() string   { return fmt.Sprintf("Absolute(%02d:%02d)", e.Hour, e.Minute) }
func (e InNHours) String() string   { return fmt.Sprintf("InNHours(%d)", e.Hours) }
func (e InNMinutes) String() string { return fmt.Sprintf("InNMinutes(%d)", e.Minutes) }
